package generation

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RunBounded runs op with a derived context that expires after timeout and
// returns no later than that deadline, even when op ignores cancellation.
// An op that outlives its budget keeps running in its own goroutine until it
// notices the cancelled context; its result is discarded.
//
// Exceeding the budget yields a KindTimeout *Error. Cancellation of the
// parent context is returned as the parent's error. A non-positive timeout
// runs op directly on ctx.
func RunBounded[T any](ctx context.Context, timeout time.Duration, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if timeout <= 0 {
		return op(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: NewError(KindInternal, fmt.Errorf("operation panicked: %v", r))}
			}
		}()
		v, err := op(attemptCtx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return zero, timeoutError(timeout, r.err)
		}
		return r.value, r.err
	case <-attemptCtx.Done():
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, timeoutError(timeout, nil)
	}
}

func timeoutError(timeout time.Duration, cause error) *Error {
	if cause != nil {
		return NewError(KindTimeout, fmt.Errorf("%w after %s: %w", ErrAttemptTimeout, timeout, cause))
	}
	return NewError(KindTimeout, fmt.Errorf("%w after %s", ErrAttemptTimeout, timeout))
}
