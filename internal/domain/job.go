package domain

import (
	"errors"
	"time"
)

// JobStatus represents the lifecycle state of a generation job.
type JobStatus string

// Possible job status values. Completed and failed are terminal.
const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

func isValidJobStatus(s JobStatus) bool {
	switch s {
	case JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

// Section is one titled block of generated content.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// TokenUsage holds best-effort token counters reported by a backend.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// JobError is the structured failure description stored on a failed job.
type JobError struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Backend  string `json:"backend,omitempty"`
	Model    string `json:"model,omitempty"`
	Attempts int    `json:"attempts"`
}

// JobRecord is the unit of state persisted by the result store and read by
// pollers.
type JobRecord struct {
	RequestID        string      `json:"requestId"`
	Status           JobStatus   `json:"status"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
	BackendUsed      string      `json:"backendUsed,omitempty"`
	ModelUsed        string      `json:"modelUsed,omitempty"`
	Progress         string      `json:"progress,omitempty"`
	RawContent       *string     `json:"rawContent,omitempty"`
	Sections         []Section   `json:"sections,omitempty"`
	Error            *JobError   `json:"error,omitempty"`
	TokensUsed       *TokenUsage `json:"tokensUsed,omitempty"`
	ProcessingTimeMs int64       `json:"processingTimeMs,omitempty"`
}

// Errors returned by JobRecord.Validate.
var (
	ErrEmptyRequestID         = errors.New("request ID cannot be empty")
	ErrCompletedWithoutResult = errors.New("completed job must carry raw content")
	ErrCompletedWithError     = errors.New("completed job cannot carry an error")
	ErrFailedWithoutError     = errors.New("failed job must carry an error")
	ErrFailedWithResult       = errors.New("failed job cannot carry raw content or sections")
	ErrProcessingWithOutcome  = errors.New("processing job cannot carry a result or an error")
)

// NewPlaceholder creates the processing record written at submission time.
func NewPlaceholder(requestID string, now time.Time) (*JobRecord, error) {
	rec := &JobRecord{
		RequestID: requestID,
		Status:    JobStatusProcessing,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// Validate enforces the status/outcome invariant: completed carries raw
// content and sections and no error, failed carries an error and no
// result, and processing carries neither.
func (r *JobRecord) Validate() error {
	if r.RequestID == "" {
		return ErrEmptyRequestID
	}
	if !isValidJobStatus(r.Status) {
		return ErrInvalidJobStatus
	}

	hasResult := r.RawContent != nil || r.Sections != nil
	switch r.Status {
	case JobStatusCompleted:
		if r.RawContent == nil {
			return ErrCompletedWithoutResult
		}
		if r.Error != nil {
			return ErrCompletedWithError
		}
	case JobStatusFailed:
		if r.Error == nil {
			return ErrFailedWithoutError
		}
		if hasResult {
			return ErrFailedWithResult
		}
	case JobStatusProcessing:
		if hasResult || r.Error != nil {
			return ErrProcessingWithOutcome
		}
	}
	return nil
}

// Completion carries what a successful job contributes to its terminal record.
type Completion struct {
	Backend    string
	Model      string
	RawContent string
	Sections   []Section
	Tokens     TokenUsage
}

// Complete returns the completed terminal version of a processing record.
func (r *JobRecord) Complete(c Completion, now time.Time) (*JobRecord, error) {
	if r.Status.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	raw := c.RawContent
	sections := c.Sections
	if sections == nil {
		sections = []Section{}
	}
	tokens := c.Tokens

	out := &JobRecord{
		RequestID:        r.RequestID,
		Status:           JobStatusCompleted,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        now.UTC(),
		BackendUsed:      c.Backend,
		ModelUsed:        c.Model,
		RawContent:       &raw,
		Sections:         sections,
		TokensUsed:       &tokens,
		ProcessingTimeMs: now.Sub(r.CreatedAt).Milliseconds(),
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Fail returns the failed terminal version of a processing record.
func (r *JobRecord) Fail(jobErr JobError, backend, model string, now time.Time) (*JobRecord, error) {
	if r.Status.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	e := jobErr
	out := &JobRecord{
		RequestID:        r.RequestID,
		Status:           JobStatusFailed,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        now.UTC(),
		BackendUsed:      backend,
		ModelUsed:        model,
		Error:            &e,
		ProcessingTimeMs: now.Sub(r.CreatedAt).Milliseconds(),
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// WithProgress returns a copy of a processing record with a new progress line.
func (r *JobRecord) WithProgress(line string, now time.Time) (*JobRecord, error) {
	if r.Status.IsTerminal() {
		return nil, ErrInvalidTransition
	}
	out := *r
	out.Progress = line
	out.UpdatedAt = now.UTC()
	return &out, nil
}
