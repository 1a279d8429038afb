package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phrazzld/docgen-api/internal/domain"
	"github.com/phrazzld/docgen-api/internal/generation"
	"github.com/phrazzld/docgen-api/internal/store"
	"github.com/phrazzld/docgen-api/internal/task"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// chainFunc adapts a function to the Chain interface.
type chainFunc func(ctx context.Context, req domain.GenerationRequest, observe generation.AttemptFunc) (generation.Result, error)

func (f chainFunc) Run(ctx context.Context, req domain.GenerationRequest, observe generation.AttemptFunc) (generation.Result, error) {
	return f(ctx, req, observe)
}

// scriptedBackend answers each model with a fixed function.
type scriptedBackend struct {
	name   string
	models map[string]func(ctx context.Context, req generation.CompletionRequest) (generation.Completion, error)
	calls  atomic.Int32
}

func (b *scriptedBackend) Name() string { return b.name }

func (b *scriptedBackend) Complete(ctx context.Context, req generation.CompletionRequest) (generation.Completion, error) {
	b.calls.Add(1)
	fn, ok := b.models[req.Model]
	if !ok {
		return generation.Completion{}, generation.NewError(generation.KindConfiguration, fmt.Errorf("model %s not found", req.Model))
	}
	return fn(ctx, req)
}

type harness struct {
	orch   *Orchestrator
	reader *StatusReader
	store  *store.MemoryJobStore
	queue  *task.TaskQueue
	pool   *task.WorkerPool
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	queueSize      int
	startPool      bool
	attemptTimeout time.Duration
	maxAttempts    int
}

func withQueueSize(n int) harnessOption { return func(c *harnessConfig) { c.queueSize = n } }
func withoutPool() harnessOption        { return func(c *harnessConfig) { c.startPool = false } }
func withAttemptTimeout(d time.Duration) harnessOption {
	return func(c *harnessConfig) { c.attemptTimeout = d }
}

// newChainHarness wires a real backend chain over the given backends.
func newChainHarness(t *testing.T, backends []*scriptedBackend, models map[string][]string, opts ...harnessOption) *harness {
	t.Helper()
	cfg := harnessConfig{queueSize: 10, startPool: true, attemptTimeout: time.Second, maxAttempts: 2}
	for _, opt := range opts {
		opt(&cfg)
	}

	registry := generation.NewRegistry()
	for _, b := range backends {
		registry.Register(b, "server-key", models[b.name]...)
	}
	prompts, err := generation.NewTemplatePromptBuilder("")
	require.NoError(t, err)
	retrier := generation.NewRetrier(cfg.maxAttempts, time.Millisecond, cfg.attemptTimeout, testLogger())
	chain := generation.NewChain(registry, prompts, retrier, testLogger())

	return newHarness(t, chain, cfg)
}

func newStubHarness(t *testing.T, chain Chain, opts ...harnessOption) *harness {
	t.Helper()
	cfg := harnessConfig{queueSize: 10, startPool: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return newHarness(t, chain, cfg)
}

func newHarness(t *testing.T, chain Chain, cfg harnessConfig) *harness {
	t.Helper()
	jobStore := store.NewMemoryJobStore()
	queue := task.NewTaskQueue(cfg.queueSize, testLogger())
	pool := task.NewWorkerPool(queue, task.WorkerPoolConfig{WorkerCount: 2}, testLogger())

	orch, err := NewOrchestrator(jobStore, chain, queue, nil, OrchestratorConfig{FinalizeTimeout: time.Second}, testLogger())
	require.NoError(t, err)
	reader, err := NewStatusReader(jobStore, testLogger())
	require.NoError(t, err)

	var seq atomic.Int32
	orch.newID = func() string { return fmt.Sprintf("req-%d", seq.Add(1)) }

	if cfg.startPool {
		pool.Start()
		t.Cleanup(pool.Stop)
	}
	return &harness{orch: orch, reader: reader, store: jobStore, queue: queue, pool: pool}
}

// waitForTerminal polls the status reader until the job is final.
func (h *harness) waitForTerminal(t *testing.T, requestID string) StatusReport {
	t.Helper()
	var report StatusReport
	require.Eventually(t, func() bool {
		r, err := h.reader.Status(context.Background(), requestID)
		if err != nil {
			return false
		}
		report = r
		return r.Status.IsTerminal()
	}, 3*time.Second, 5*time.Millisecond, "job %s never reached a terminal state", requestID)
	return report
}

func newRequest(t *testing.T, backend, model, credential string, cats ...domain.Category) domain.GenerationRequest {
	t.Helper()
	selected := map[domain.Category]bool{}
	for _, c := range cats {
		selected[c] = true
	}
	req, err := domain.NewGenerationRequest(map[string]string{"name": "Atlas", "description": "maps"}, selected, backend, model, credential)
	require.NoError(t, err)
	return req
}

// failingStore fails writes after a configurable number of successes.
type failingStore struct {
	*store.MemoryJobStore
	mu        sync.Mutex
	failAfter int
	puts      int
	getErr    error
}

func (s *failingStore) Put(ctx context.Context, rec *domain.JobRecord) error {
	s.mu.Lock()
	s.puts++
	n := s.puts
	s.mu.Unlock()
	if n > s.failAfter {
		return fmt.Errorf("%w: connection refused", store.ErrUnavailable)
	}
	return s.MemoryJobStore.Put(ctx, rec)
}

func (s *failingStore) Get(ctx context.Context, id string) (*domain.JobRecord, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.MemoryJobStore.Get(ctx, id)
}
