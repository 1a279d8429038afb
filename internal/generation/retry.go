package generation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"
)

// Jitter bounds applied multiplicatively to every backoff delay.
const (
	MinJitter = 0.75
	MaxJitter = 1.25
)

// Retrier repeats an operation with exponential backoff. The wait after the
// k-th failure is BaseDelay * 2^(k-1) * jitter, jitter uniform in
// [MinJitter, MaxJitter]. Each attempt runs under AttemptTimeout via
// RunBounded.
type Retrier struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	AttemptTimeout time.Duration

	logger *slog.Logger
	jitter func() float64
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a Retrier. maxAttempts below one is treated as one.
func NewRetrier(maxAttempts int, baseDelay, attemptTimeout time.Duration, logger *slog.Logger) *Retrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{
		MaxAttempts:    maxAttempts,
		BaseDelay:      baseDelay,
		AttemptTimeout: attemptTimeout,
		logger:         logger.With("component", "retrier"),
		jitter:         randomJitter,
		sleep:          sleepContext,
	}
}

// FailureFunc observes a failed attempt. attempt is 1-based.
type FailureFunc func(attempt int, err error)

// Delay returns the backoff before attempt k+1 after the k-th failure.
func (r *Retrier) Delay(k int) time.Duration {
	if k < 1 {
		return 0
	}
	backoff := float64(r.BaseDelay) * math.Pow(2, float64(k-1)) * r.jitter()
	return time.Duration(backoff)
}

// Do runs op until it succeeds, a non-retryable failure occurs, or
// MaxAttempts is reached. It returns the number of attempts made and, on
// failure, the cause observed on the last attempt.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error, onFailure FailureFunc) (int, error) {
	_, attempts, err := Retry(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, onFailure)
	return attempts, err
}

// Retry is Do for operations that produce a value. The value of an attempt
// abandoned by RunBounded is never returned.
func Retry[T any](ctx context.Context, r *Retrier, op func(ctx context.Context) (T, error), onFailure FailureFunc) (T, int, error) {
	var (
		zero    T
		lastErr error
	)
	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		v, err := RunBounded(ctx, r.AttemptTimeout, op)
		if err == nil {
			return v, attempt, nil
		}
		lastErr = err

		r.notify(onFailure, attempt, err)

		kind := KindOf(err)
		if !kind.Retryable() {
			r.logger.DebugContext(ctx, "non-retryable failure, giving up",
				"attempt", attempt,
				"kind", kind)
			return zero, attempt, err
		}
		if attempt == r.MaxAttempts {
			break
		}
		if ctx.Err() != nil {
			return zero, attempt, fmt.Errorf("retry aborted after attempt %d: %w", attempt, ctx.Err())
		}

		delay := r.Delay(attempt)
		r.logger.InfoContext(ctx, "retrying after delay",
			"attempt", attempt,
			"max_attempts", r.MaxAttempts,
			"kind", kind,
			"delay_ms", delay.Milliseconds())

		if err := r.sleep(ctx, delay); err != nil {
			return zero, attempt, fmt.Errorf("retry aborted after attempt %d: %w", attempt, err)
		}
	}

	return zero, r.MaxAttempts, lastErr
}

// notify calls onFailure, swallowing any panic it raises.
func (r *Retrier) notify(onFailure FailureFunc, attempt int, err error) {
	if onFailure == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("failure callback panicked", "attempt", attempt, "panic", fmt.Sprint(p))
		}
	}()
	onFailure(attempt, err)
}

func randomJitter() float64 {
	return MinJitter + rand.Float64()*(MaxJitter-MinJitter)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
