package store

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/phrazzld/docgen-api/internal/domain"
)

// Fallback writes to a primary store and falls back to a secondary store
// whenever the primary fails. Validation and finalization errors are
// returned as is. Reads consult the secondary when the primary has no
// terminal record, so outcomes written during an outage stay visible.
type Fallback struct {
	primary   JobStore
	secondary JobStore
	logger    *slog.Logger
	degraded  atomic.Bool
}

// NewFallback wraps primary and secondary. When primary implements Pinger
// and cannot be reached, the wrapper starts in degraded mode and uses only
// the secondary.
func NewFallback(ctx context.Context, primary, secondary JobStore, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Fallback{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With("component", "fallback_store"),
	}

	if p, ok := primary.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			f.logger.WarnContext(ctx, "primary store unreachable, using fallback store only",
				"error", err)
			f.degraded.Store(true)
		}
	}
	return f
}

var _ JobStore = (*Fallback)(nil)

// Degraded reports whether the primary store was unreachable at startup.
func (f *Fallback) Degraded() bool {
	return f.degraded.Load()
}

// Put implements JobStore.
func (f *Fallback) Put(ctx context.Context, rec *domain.JobRecord) error {
	if f.degraded.Load() {
		return f.secondary.Put(ctx, rec)
	}

	err := f.primary.Put(ctx, rec)
	if err == nil || errors.Is(err, ErrJobFinalized) || errors.Is(err, ErrInvalidEntity) {
		return err
	}

	f.logger.WarnContext(ctx, "primary store write failed, writing to fallback store",
		"request_id", rec.RequestID,
		"status", rec.Status,
		"error", err)
	if fbErr := f.secondary.Put(ctx, rec); fbErr != nil {
		return errors.Join(err, fbErr)
	}
	return nil
}

// Get implements JobStore.
func (f *Fallback) Get(ctx context.Context, requestID string) (*domain.JobRecord, error) {
	if f.degraded.Load() {
		return f.secondary.Get(ctx, requestID)
	}

	rec, err := f.primary.Get(ctx, requestID)
	switch {
	case err == nil && rec.Status.IsTerminal():
		return rec, nil
	case err != nil && !IsNotFoundError(err):
		f.logger.WarnContext(ctx, "primary store read failed, reading fallback store",
			"request_id", requestID,
			"error", err)
	}

	fbRec, fbErr := f.secondary.Get(ctx, requestID)
	if fbErr == nil && (rec == nil || fbRec.Status.IsTerminal()) {
		return fbRec, nil
	}
	if rec != nil {
		return rec, nil
	}
	if err != nil && !IsNotFoundError(err) {
		return nil, err
	}
	return nil, ErrJobNotFound
}

// Ping reports whether the primary store is reachable. It returns nil when
// the primary does not implement Pinger.
func (f *Fallback) Ping(ctx context.Context) error {
	p, ok := f.primary.(Pinger)
	if !ok {
		return nil
	}
	return p.Ping(ctx)
}
