package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/phrazzld/docgen-api/internal/domain"
)

// AttemptOutcome describes one (backend, model, attempt) interaction.
// Err is nil for the successful attempt.
type AttemptOutcome struct {
	Backend  string
	Model    string
	Attempt  int
	Kind     Kind
	Err      error
	Duration time.Duration
}

// AttemptFunc observes attempt outcomes as the chain runs.
type AttemptFunc func(AttemptOutcome)

// Result is the outcome of a chain run. On failure Backend and Model name
// the last pair tried and Attempts counts every attempt made.
type Result struct {
	Text     string
	Backend  string
	Model    string
	Usage    domain.TokenUsage
	Attempts int
}

// Chain walks the (backend, model) pairs for a request until one produces
// non-empty text.
type Chain struct {
	registry *Registry
	prompts  PromptBuilder
	retrier  *Retrier
	logger   *slog.Logger
}

// NewChain creates a Chain.
func NewChain(registry *Registry, prompts PromptBuilder, retrier *Retrier, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		registry: registry,
		prompts:  prompts,
		retrier:  retrier,
		logger:   logger.With("component", "backend_chain"),
	}
}

// Check reports whether req names a registered backend with at least one
// model. It contacts nothing.
func (c *Chain) Check(req domain.GenerationRequest) error {
	_, err := c.registry.Pairs(req.Backend, req.Model)
	return err
}

// Run executes the chain for req. Every pair gets up to MaxAttempts
// attempts; any failure of a pair advances to the next one. When all pairs
// fail, the error from the last pair is returned. An unknown backend or a
// missing credential fails with KindConfiguration before any attempt.
func (c *Chain) Run(ctx context.Context, req domain.GenerationRequest, observe AttemptFunc) (Result, error) {
	pairs, err := c.registry.Pairs(req.Backend, req.Model)
	if err != nil {
		return Result{Backend: req.Backend, Model: req.Model}, err
	}
	backend, _ := c.registry.Backend(req.Backend)

	// Every pair shares the backend, so a missing credential fails them all.
	credential := c.registry.Credential(req.Backend, req.Credential)
	if credential == "" && requiresCredential(backend) {
		return Result{Backend: req.Backend, Model: pairs[0].Model},
			annotate(NewError(KindConfiguration, ErrMissingCredential), req.Backend, pairs[0].Model, 0)
	}

	prompt, err := c.prompts.Build(req)
	if err != nil {
		return Result{Backend: req.Backend, Model: pairs[0].Model}, annotate(err, req.Backend, pairs[0].Model, 0)
	}

	var (
		result  Result
		lastErr error
	)
	for _, pair := range pairs {
		result.Backend = pair.Backend
		result.Model = pair.Model

		completion, attempts, err := c.runPair(ctx, backend, pair, prompt, credential, observe)
		result.Attempts += attempts
		if err == nil {
			result.Text = completion.Text
			result.Usage = domain.TokenUsage{Input: completion.InputTokens, Output: completion.OutputTokens}
			c.logger.InfoContext(ctx, "generation succeeded",
				"backend", pair.Backend,
				"model", pair.Model,
				"attempts", result.Attempts)
			return result, nil
		}

		lastErr = err
		c.logger.WarnContext(ctx, "pair exhausted, advancing chain",
			"backend", pair.Backend,
			"model", pair.Model,
			"kind", KindOf(err),
			"attempts", attempts)

		if ctx.Err() != nil {
			break
		}
	}

	return result, lastErr
}

func (c *Chain) runPair(
	ctx context.Context,
	backend Backend,
	pair Pair,
	prompt, credential string,
	observe AttemptFunc,
) (Completion, int, error) {
	var started atomic.Int64
	op := func(ctx context.Context) (Completion, error) {
		started.Store(time.Now().UnixNano())
		out, err := backend.Complete(ctx, CompletionRequest{
			Model:      pair.Model,
			Prompt:     prompt,
			Credential: credential,
		})
		if err != nil {
			return Completion{}, err
		}
		if strings.TrimSpace(out.Text) == "" {
			return Completion{}, NewError(KindEmptyOutput, ErrEmptyOutput)
		}
		return out, nil
	}
	elapsed := func() time.Duration {
		ns := started.Load()
		if ns == 0 {
			return 0
		}
		return time.Since(time.Unix(0, ns))
	}

	onFailure := func(attempt int, err error) {
		safeObserve(c.logger, observe, AttemptOutcome{
			Backend:  pair.Backend,
			Model:    pair.Model,
			Attempt:  attempt,
			Kind:     KindOf(err),
			Err:      err,
			Duration: elapsed(),
		})
	}

	completion, attempts, err := Retry(ctx, c.retrier, op, onFailure)
	if err != nil {
		return Completion{}, attempts, annotate(err, pair.Backend, pair.Model, attempts)
	}

	safeObserve(c.logger, observe, AttemptOutcome{
		Backend:  pair.Backend,
		Model:    pair.Model,
		Attempt:  attempts,
		Duration: elapsed(),
	})
	return completion, attempts, nil
}

// CredentialOptional is implemented by backends that can run without a
// credential, such as a local model server.
type CredentialOptional interface {
	CredentialOptional() bool
}

func requiresCredential(b Backend) bool {
	o, ok := b.(CredentialOptional)
	return !ok || !o.CredentialOptional()
}

func safeObserve(logger *slog.Logger, observe AttemptFunc, outcome AttemptOutcome) {
	if observe == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Warn("attempt observer panicked", "panic", fmt.Sprint(p))
		}
	}()
	observe(outcome)
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind == kind
	}
	return KindOf(err) == kind
}
