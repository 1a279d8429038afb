package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/docgen-api/internal/domain"
	"github.com/phrazzld/docgen-api/internal/store"
)

// Status messages reported to pollers.
const (
	MessageStillRunning = "Generation is still running"
	MessageInProgress   = "Generation is in progress"
	MessageCompleted    = "Generation completed"
	MessageFailed       = "Generation failed"

	// MessageAbandoned is the error message stored on jobs that were still
	// queued when the service shut down.
	MessageAbandoned = "Generation was abandoned because the service shut down, please resubmit"
)

// Result is the generated output of a completed job.
type Result struct {
	RawContent string
	Sections   []domain.Section
}

// StatusReport is the answer to a status poll. Result is set only for
// completed jobs and Error only for failed ones.
type StatusReport struct {
	RequestID        string
	Status           domain.JobStatus
	Message          string
	Progress         string
	BackendUsed      string
	ModelUsed        string
	Result           *Result
	Error            *domain.JobError
	TokensUsed       *domain.TokenUsage
	ProcessingTimeMs int64
	Timestamp        time.Time
}

// StatusReader answers polls from the result store. It never writes.
type StatusReader struct {
	store  store.JobStore
	logger *slog.Logger
	now    func() time.Time
}

// NewStatusReader creates a StatusReader.
func NewStatusReader(jobStore store.JobStore, logger *slog.Logger) (*StatusReader, error) {
	if jobStore == nil {
		return nil, NewServiceError("create_status_reader", "jobStore cannot be nil", ErrMissingDependency)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusReader{
		store:  jobStore,
		logger: logger.With("component", "status_reader"),
		now:    time.Now,
	}, nil
}

// Status reports the state of requestID. A missing record is reported as
// processing, since the placeholder may not be visible yet. Only store
// failures other than not-found produce an error.
func (r *StatusReader) Status(ctx context.Context, requestID string) (StatusReport, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return StatusReport{}, domain.NewValidationError("requestId", "is required", domain.ErrInvalidID)
	}

	rec, err := r.store.Get(ctx, requestID)
	if store.IsNotFoundError(err) {
		return StatusReport{
			RequestID: requestID,
			Status:    domain.JobStatusProcessing,
			Message:   MessageStillRunning,
			Timestamp: r.now().UTC(),
		}, nil
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to read job record",
			"request_id", requestID,
			"error", err)
		return StatusReport{}, NewServiceError("status", "failed to read job record", err)
	}

	return reportFor(rec), nil
}

func reportFor(rec *domain.JobRecord) StatusReport {
	report := StatusReport{
		RequestID:        rec.RequestID,
		Status:           rec.Status,
		BackendUsed:      rec.BackendUsed,
		ModelUsed:        rec.ModelUsed,
		TokensUsed:       rec.TokensUsed,
		ProcessingTimeMs: rec.ProcessingTimeMs,
		Timestamp:        rec.UpdatedAt,
	}

	switch rec.Status {
	case domain.JobStatusCompleted:
		report.Message = MessageCompleted
		result := &Result{Sections: rec.Sections}
		if rec.RawContent != nil {
			result.RawContent = *rec.RawContent
		}
		if result.Sections == nil {
			result.Sections = []domain.Section{}
		}
		report.Result = result
	case domain.JobStatusFailed:
		report.Message = MessageFailed
		if rec.Error != nil {
			report.Error = rec.Error
			if rec.Error.Message != "" {
				report.Message = rec.Error.Message
			}
		}
	default:
		report.Message = MessageInProgress
		report.Progress = rec.Progress
	}
	return report
}
