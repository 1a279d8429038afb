package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/docgen-api/internal/content"
	"github.com/phrazzld/docgen-api/internal/domain"
	"github.com/phrazzld/docgen-api/internal/events"
	"github.com/phrazzld/docgen-api/internal/generation"
	"github.com/phrazzld/docgen-api/internal/store"
	"github.com/phrazzld/docgen-api/internal/task"
)

// TaskTypeGeneration identifies generation jobs on the task queue.
const TaskTypeGeneration = "generation"

// Defaults applied by NewOrchestrator to zero config fields.
const (
	DefaultStatusPath          = "/api/generations/"
	DefaultBaseEstimate        = 30 * time.Second
	DefaultPerCategoryEstimate = 20 * time.Second
	DefaultFinalizeTimeout     = 10 * time.Second
)

// Chain runs a generation request against the configured backends.
type Chain interface {
	Run(ctx context.Context, req domain.GenerationRequest, observe generation.AttemptFunc) (generation.Result, error)
}

// RequestChecker is implemented by chains that can reject a request
// before it is accepted, e.g. for naming an unregistered backend.
type RequestChecker interface {
	Check(req domain.GenerationRequest) error
}

// OrchestratorConfig holds tunables for the Orchestrator.
type OrchestratorConfig struct {
	// StatusPath is the prefix of the status check locator returned to callers.
	StatusPath string

	// BaseEstimate and PerCategoryEstimate produce the estimated time
	// returned on submission.
	BaseEstimate        time.Duration
	PerCategoryEstimate time.Duration

	// FinalizeTimeout bounds each terminal store write. Terminal writes do
	// not inherit cancellation from the worker.
	FinalizeTimeout time.Duration
}

// Submission is returned to the caller as soon as a job is accepted.
type Submission struct {
	RequestID          string
	EstimatedTime      time.Duration
	StatusCheckLocator string
}

// Orchestrator accepts generation requests and runs each one as a task on
// the worker pool.
type Orchestrator struct {
	store      store.JobStore
	chain      Chain
	queue      task.TaskQueueWriter
	emitter    events.EventEmitter
	sectionize func(string) []domain.Section
	cfg        OrchestratorConfig
	logger     *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewOrchestrator creates an Orchestrator. A nil emitter discards events.
func NewOrchestrator(
	jobStore store.JobStore,
	chain Chain,
	queue task.TaskQueueWriter,
	emitter events.EventEmitter,
	cfg OrchestratorConfig,
	logger *slog.Logger,
) (*Orchestrator, error) {
	if jobStore == nil {
		return nil, NewServiceError("create_orchestrator", "jobStore cannot be nil", ErrMissingDependency)
	}
	if chain == nil {
		return nil, NewServiceError("create_orchestrator", "chain cannot be nil", ErrMissingDependency)
	}
	if queue == nil {
		return nil, NewServiceError("create_orchestrator", "queue cannot be nil", ErrMissingDependency)
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.StatusPath == "" {
		cfg.StatusPath = DefaultStatusPath
	}
	if cfg.BaseEstimate <= 0 {
		cfg.BaseEstimate = DefaultBaseEstimate
	}
	if cfg.PerCategoryEstimate <= 0 {
		cfg.PerCategoryEstimate = DefaultPerCategoryEstimate
	}
	if cfg.FinalizeTimeout <= 0 {
		cfg.FinalizeTimeout = DefaultFinalizeTimeout
	}

	return &Orchestrator{
		store:      jobStore,
		chain:      chain,
		queue:      queue,
		emitter:    emitter,
		sectionize: content.Sectionize,
		cfg:        cfg,
		logger:     logger.With("component", "orchestrator"),
		now:        time.Now,
		newID:      uuid.NewString,
	}, nil
}

// Submit validates req, writes the processing placeholder and queues the
// job. It returns before any backend is contacted.
//
// A request the chain can already tell will fail, such as one naming an
// unknown backend, is rejected with a validation error and no record.
//
// When the queue cannot take the job the placeholder is finalized as
// failed and the queue error (task.ErrQueueFull or task.ErrQueueClosed) is
// returned.
func (o *Orchestrator) Submit(ctx context.Context, req domain.GenerationRequest) (Submission, error) {
	if err := req.Validate(); err != nil {
		return Submission{}, err
	}
	if checker, ok := o.chain.(RequestChecker); ok {
		if err := checker.Check(req); err != nil {
			return Submission{}, domain.NewValidationError("backend", "is not configured", err)
		}
	}

	requestID := o.newID()
	log := o.logger.With("request_id", requestID)

	placeholder, err := domain.NewPlaceholder(requestID, o.now())
	if err != nil {
		return Submission{}, NewServiceError("submit", "failed to create placeholder", err)
	}
	if err := o.store.Put(ctx, placeholder); err != nil {
		log.ErrorContext(ctx, "failed to write placeholder", "error", err)
		return Submission{}, NewServiceError("submit", "failed to write placeholder",
			errors.Join(ErrPersistence, err))
	}

	job := newGenerationJob(o, req, placeholder)
	if err := o.queue.Enqueue(job); err != nil {
		reason, kind, message := "queue_closed", generation.KindInternal, "Service is shutting down, please retry"
		if errors.Is(err, task.ErrQueueFull) {
			reason, kind, message = "queue_full", generation.KindRateLimit, "Server is busy, please retry later"
		}
		log.WarnContext(ctx, "job rejected by queue", "reason", reason, "error", err)

		job.failWith(ctx, domain.JobError{Kind: string(kind), Message: message}, req.Backend, req.Model)

		rejected := events.NewJobEvent(events.TypeJobRejected, requestID)
		rejected.Reason = reason
		o.emit(ctx, rejected)
		return Submission{}, fmt.Errorf("failed to queue job: %w", err)
	}

	submitted := events.NewJobEvent(events.TypeJobSubmitted, requestID)
	submitted.Backend = req.Backend
	submitted.Model = req.Model
	o.emit(ctx, submitted)

	log.InfoContext(ctx, "job accepted",
		"backend", req.Backend,
		"model", req.Model,
		"categories", len(req.SelectedCategories()))

	return Submission{
		RequestID:          requestID,
		EstimatedTime:      o.estimate(req),
		StatusCheckLocator: o.cfg.StatusPath + requestID,
	}, nil
}

func (o *Orchestrator) estimate(req domain.GenerationRequest) time.Duration {
	return o.cfg.BaseEstimate + time.Duration(len(req.SelectedCategories()))*o.cfg.PerCategoryEstimate
}

func (o *Orchestrator) emit(ctx context.Context, e *events.JobEvent) {
	if err := o.emitter.EmitEvent(ctx, e); err != nil {
		o.logger.WarnContext(ctx, "failed to emit job event",
			"event_type", e.Type,
			"request_id", e.RequestID,
			"error", err)
	}
}

// detached returns a context for store writes that must happen even when
// the worker is being cancelled.
func (o *Orchestrator) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), o.cfg.FinalizeTimeout)
}
