package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/phrazzld/docgen-api/internal/domain"
	"github.com/phrazzld/docgen-api/internal/events"
	"github.com/phrazzld/docgen-api/internal/generation"
	"github.com/phrazzld/docgen-api/internal/redact"
	"github.com/phrazzld/docgen-api/internal/store"
	"github.com/phrazzld/docgen-api/internal/task"
)

// generationJob is the task that carries one request from placeholder to
// terminal record. It finalizes at most once.
type generationJob struct {
	o       *Orchestrator
	req     domain.GenerationRequest
	current *domain.JobRecord
	logger  *slog.Logger

	once      sync.Once
	finalized atomic.Bool
}

var _ task.Task = (*generationJob)(nil)

var errTerminalWritePanicked = errors.New("terminal write panicked")

func newGenerationJob(o *Orchestrator, req domain.GenerationRequest, placeholder *domain.JobRecord) *generationJob {
	return &generationJob{
		o:       o,
		req:     req,
		current: placeholder,
		logger:  o.logger.With("request_id", placeholder.RequestID),
	}
}

func (j *generationJob) ID() string   { return j.current.RequestID }
func (j *generationJob) Type() string { return TaskTypeGeneration }

// Execute runs the backend chain and writes the terminal record. Panics
// and unexpected errors are converted into a failed record.
func (j *generationJob) Execute(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			j.logger.ErrorContext(ctx, "generation job panicked",
				"panic", fmt.Sprint(p),
				"stack", string(debug.Stack()))
			j.failWith(ctx, domain.JobError{
				Kind:    string(generation.KindInternal),
				Message: "Generation failed due to an internal error",
			}, j.req.Backend, j.req.Model)
			err = fmt.Errorf("%w: %v", task.ErrTaskPanicked, p)
		}
	}()

	if ctxErr := ctx.Err(); ctxErr != nil {
		// Dequeued after the pool was stopped; nothing was attempted.
		j.failWith(ctx, domain.JobError{
			Kind:    string(generation.KindInternal),
			Message: MessageAbandoned,
		}, j.req.Backend, j.req.Model)
		return fmt.Errorf("job abandoned before start: %w", ctxErr)
	}

	result, runErr := j.o.chain.Run(ctx, j.req, j.observe)
	if runErr != nil {
		return j.fail(ctx, result, runErr)
	}
	return j.complete(ctx, result)
}

// observe records every attempt and writes a progress line after each
// failed one.
func (j *generationJob) observe(a generation.AttemptOutcome) {
	e := events.NewJobEvent(events.TypeAttempt, j.ID())
	e.Backend, e.Model, e.Attempt, e.Kind = a.Backend, a.Model, a.Attempt, string(a.Kind)
	e.Elapsed = a.Duration
	j.o.emit(context.Background(), e)

	if a.Err == nil || j.finalized.Load() {
		return
	}

	line := fmt.Sprintf("Attempt %d with %s/%s failed (%s)", a.Attempt, a.Backend, a.Model, a.Kind)
	if a.Kind.Retryable() {
		line += ", retrying"
	}
	updated, err := j.current.WithProgress(line, j.o.now())
	if err != nil {
		return
	}

	ctx, cancel := j.o.detached(context.Background())
	defer cancel()
	if err := j.o.store.Put(ctx, updated); err != nil {
		j.logger.Warn("failed to write progress", "error", err)
		return
	}
	j.current = updated
}

func (j *generationJob) complete(ctx context.Context, result generation.Result) error {
	sections := j.o.sectionize(result.Text)
	rec, err := j.current.Complete(domain.Completion{
		Backend:    result.Backend,
		Model:      result.Model,
		RawContent: result.Text,
		Sections:   sections,
		Tokens:     result.Usage,
	}, j.o.now())
	if err != nil {
		return j.failInternal(ctx, result, fmt.Errorf("failed to build completed record: %w", err))
	}

	var (
		writeErr error
		ran      bool
	)
	storeFailure := domain.JobError{
		Kind:     string(generation.KindInternal),
		Message:  "Generation succeeded but the result could not be stored",
		Backend:  result.Backend,
		Model:    result.Model,
		Attempts: result.Attempts,
	}
	j.once.Do(func() {
		ran = true
		j.finalized.Store(true)
		defer func() {
			// The once is spent, so a panicking write must be resolved here.
			if p := recover(); p != nil {
				writeErr = fmt.Errorf("%w: %v", errTerminalWritePanicked, p)
				j.logger.ErrorContext(ctx, "terminal write panicked",
					"panic", fmt.Sprint(p),
					"stack", string(debug.Stack()))
				j.safeWriteFailure(ctx, storeFailure, result.Backend, result.Model)
			}
		}()
		writeErr = j.write(ctx, rec)
		if writeErr != nil && !errors.Is(writeErr, store.ErrJobFinalized) {
			// Leave a failed record instead of a placeholder that never
			// resolves.
			j.writeFailure(ctx, storeFailure, result.Backend, result.Model)
		}
	})
	switch {
	case !ran, errors.Is(writeErr, store.ErrJobFinalized):
		return nil
	case writeErr != nil:
		return writeErr
	}

	e := events.NewJobEvent(events.TypeJobCompleted, j.ID())
	e.Backend, e.Model = result.Backend, result.Model
	e.InputTokens, e.OutputTokens = result.Usage.Input, result.Usage.Output
	e.Elapsed = rec.UpdatedAt.Sub(rec.CreatedAt)
	j.o.emit(ctx, e)

	j.logger.InfoContext(ctx, "job completed",
		"backend", result.Backend,
		"model", result.Model,
		"sections", len(sections),
		"processing_time_ms", rec.ProcessingTimeMs)
	return nil
}

func (j *generationJob) fail(ctx context.Context, result generation.Result, cause error) error {
	jobErr := domain.JobError{
		Kind:     string(generation.KindOf(cause)),
		Message:  redact.Secrets(cause.Error(), j.req.Credential),
		Backend:  result.Backend,
		Model:    result.Model,
		Attempts: result.Attempts,
	}
	j.failWith(ctx, jobErr, result.Backend, result.Model)
	return cause
}

func (j *generationJob) failInternal(ctx context.Context, result generation.Result, cause error) error {
	j.logger.ErrorContext(ctx, "internal error after placeholder", "error", cause)
	j.failWith(ctx, domain.JobError{
		Kind:     string(generation.KindInternal),
		Message:  "Generation failed due to an internal error",
		Backend:  result.Backend,
		Model:    result.Model,
		Attempts: result.Attempts,
	}, result.Backend, result.Model)
	return cause
}

// failWith writes a failed terminal record unless the job is already final.
func (j *generationJob) failWith(ctx context.Context, jobErr domain.JobError, backend, model string) {
	j.once.Do(func() {
		j.finalized.Store(true)
		j.safeWriteFailure(ctx, jobErr, backend, model)
	})
}

// safeWriteFailure is writeFailure with panics logged and swallowed.
func (j *generationJob) safeWriteFailure(ctx context.Context, jobErr domain.JobError, backend, model string) {
	defer func() {
		if p := recover(); p != nil {
			j.logger.ErrorContext(ctx, "failed terminal write panicked, job left unresolved",
				"panic", fmt.Sprint(p))
		}
	}()
	j.writeFailure(ctx, jobErr, backend, model)
}

func (j *generationJob) writeFailure(ctx context.Context, jobErr domain.JobError, backend, model string) {
	rec, err := j.current.Fail(jobErr, backend, model, j.o.now())
	if err != nil {
		j.logger.ErrorContext(ctx, "failed to build failed record", "error", err)
		return
	}
	if err := j.write(ctx, rec); err != nil {
		return
	}

	e := events.NewJobEvent(events.TypeJobFailed, j.ID())
	e.Backend, e.Model, e.Kind, e.Attempt = backend, model, jobErr.Kind, jobErr.Attempts
	e.Elapsed = rec.UpdatedAt.Sub(rec.CreatedAt)
	j.o.emit(ctx, e)

	j.logger.WarnContext(ctx, "job failed",
		"kind", jobErr.Kind,
		"backend", backend,
		"model", model,
		"attempts", jobErr.Attempts,
		"message", jobErr.Message)
}

// write stores a terminal record using a context detached from ctx.
func (j *generationJob) write(ctx context.Context, rec *domain.JobRecord) error {
	wctx, cancel := j.o.detached(ctx)
	defer cancel()

	err := j.o.store.Put(wctx, rec)
	switch {
	case err == nil:
		j.current = rec
		return nil
	case errors.Is(err, store.ErrJobFinalized):
		j.logger.WarnContext(ctx, "job already finalized, terminal write skipped", "status", rec.Status)
	default:
		j.logger.ErrorContext(ctx, "failed to write terminal record",
			"status", rec.Status,
			"error", redact.Error(err))
	}
	return err
}
