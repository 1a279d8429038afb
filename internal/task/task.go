package task

import (
	"context"
)

// Task is one unit of work run by the worker pool. Implementations own
// their own outcome reporting; the error returned from Execute is only
// logged by the pool.
type Task interface {
	// ID identifies the task in logs, usually the job's request ID.
	ID() string

	// Type names the kind of work, e.g. "generation".
	Type() string

	// Execute runs the task. ctx is cancelled when the pool stops.
	Execute(ctx context.Context) error
}

// TaskQueueReader is the consuming side of a queue.
type TaskQueueReader interface {
	GetChannel() <-chan Task
}

// TaskQueueWriter is the producing side of a queue, used by submitters.
type TaskQueueWriter interface {
	// Enqueue never blocks. It fails with ErrQueueFull when the backlog
	// is at capacity and ErrQueueClosed after Close.
	Enqueue(task Task) error

	// Close stops further submissions. Queued tasks are still drained.
	Close()
}
