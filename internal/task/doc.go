// Package task runs background work on a bounded pool of goroutines fed by
// a bounded in-memory queue. Submitters never block: a full queue is
// reported as ErrQueueFull so the caller can refuse the work.
package task
