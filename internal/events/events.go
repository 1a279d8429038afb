package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type names a job lifecycle event.
type Type string

// Job lifecycle event types.
const (
	TypeJobSubmitted Type = "job.submitted"
	TypeJobRejected  Type = "job.rejected"
	TypeAttempt      Type = "job.attempt"
	TypeJobCompleted Type = "job.completed"
	TypeJobFailed    Type = "job.failed"
)

// JobEvent describes something that happened to a generation job. Fields
// that do not apply to the event type are left zero.
type JobEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	Type      Type   `json:"type"`
	RequestID string `json:"requestId"`
	Backend   string `json:"backend,omitempty"`
	Model     string `json:"model,omitempty"`
	Attempt   int    `json:"attempt,omitempty"`

	// Kind is the error kind of a failed attempt or job, empty on success.
	Kind string `json:"kind,omitempty"`

	// Reason explains a rejected submission.
	Reason string `json:"reason,omitempty"`

	InputTokens  int           `json:"inputTokens,omitempty"`
	OutputTokens int           `json:"outputTokens,omitempty"`
	Elapsed      time.Duration `json:"elapsed,omitempty"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"createdAt"`
}

// NewJobEvent creates an event of type t for requestID.
func NewJobEvent(t Type, requestID string) *JobEvent {
	return &JobEvent{
		ID:        uuid.New(),
		Type:      t,
		RequestID: requestID,
		CreatedAt: time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *JobEvent) error
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *JobEvent) error
}

// NopEmitter discards every event.
type NopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NopEmitter) EmitEvent(context.Context, *JobEvent) error { return nil }
