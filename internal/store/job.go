package store

import (
	"context"
	"fmt"

	"github.com/phrazzld/docgen-api/internal/domain"
)

// JobStore persists job records keyed by request ID.
type JobStore interface {
	// Put writes rec, replacing any processing record with the same ID.
	// Returns ErrJobFinalized if the stored record is already terminal and
	// ErrInvalidEntity if rec fails validation.
	Put(ctx context.Context, rec *domain.JobRecord) error

	// Get returns the record for requestID or ErrJobNotFound.
	Get(ctx context.Context, requestID string) (*domain.JobRecord, error)
}

// Pinger is implemented by stores backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ValidateForPut checks rec before it is written.
func ValidateForPut(rec *domain.JobRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: nil job record", ErrInvalidEntity)
	}
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, err)
	}
	return nil
}
