package generation

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// instantRetrier returns a Retrier that records its sleeps instead of waiting.
func instantRetrier(maxAttempts int, base, attemptTimeout time.Duration) (*Retrier, *[]time.Duration) {
	r := NewRetrier(maxAttempts, base, attemptTimeout, testLogger())
	var mu sync.Mutex
	sleeps := []time.Duration{}
	r.jitter = func() float64 { return 1.0 }
	r.sleep = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	return r, &sleeps
}

// fakeBackend answers per model from a script of responses.
type fakeBackend struct {
	name         string
	mu           sync.Mutex
	calls        map[string]int
	respond      func(ctx context.Context, req CompletionRequest) (Completion, error)
	noCredential bool
}

func newFakeBackend(name string, respond func(ctx context.Context, req CompletionRequest) (Completion, error)) *fakeBackend {
	return &fakeBackend{name: name, calls: make(map[string]int), respond: respond}
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	f.mu.Lock()
	f.calls[req.Model]++
	f.mu.Unlock()
	return f.respond(ctx, req)
}

func (f *fakeBackend) CredentialOptional() bool { return f.noCredential }

func (f *fakeBackend) callsFor(model string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[model]
}
