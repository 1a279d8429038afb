package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/phrazzld/docgen-api/internal/domain"
	"github.com/phrazzld/docgen-api/internal/platform/logger"
	"github.com/phrazzld/docgen-api/internal/store"
)

const (
	selectStatusForUpdate = `SELECT status FROM generation_jobs WHERE request_id = $1 FOR UPDATE`

	insertJob = `
		INSERT INTO generation_jobs (request_id, status, record, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	updateJob = `
		UPDATE generation_jobs
		SET status = $2, record = $3, updated_at = $4
		WHERE request_id = $1
	`

	selectRecord = `SELECT record FROM generation_jobs WHERE request_id = $1`
)

// JobStore implements store.JobStore using PostgreSQL.
type JobStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewJobStore creates a JobStore on an open database handle.
func NewJobStore(db *sql.DB, logger *slog.Logger) *JobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JobStore{
		db:     db,
		logger: logger.With(slog.String("component", "postgres_job_store")),
	}
}

var (
	_ store.JobStore = (*JobStore)(nil)
	_ store.Pinger   = (*JobStore)(nil)
)

// Put implements store.JobStore. The existing row is locked while its
// status is checked so a terminal record can never be replaced.
func (s *JobStore) Put(ctx context.Context, rec *domain.JobRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := store.ValidateForPut(rec); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return store.NewStoreError("job", "put", "failed to encode record", err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, selectStatusForUpdate, rec.RequestID).Scan(&current)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx, insertJob,
				rec.RequestID, string(rec.Status), string(data), rec.CreatedAt, rec.UpdatedAt)
			return MapError(err)
		case err != nil:
			return MapError(err)
		case domain.JobStatus(current).IsTerminal():
			return store.ErrJobFinalized
		}

		_, err = tx.ExecContext(ctx, updateJob, rec.RequestID, string(rec.Status), string(data), rec.UpdatedAt)
		return MapError(err)
	})
	if err != nil {
		if !errors.Is(err, store.ErrJobFinalized) {
			log.Error("failed to put job record",
				slog.String("request_id", rec.RequestID),
				slog.String("error", err.Error()))
		}
		return err
	}

	log.Debug("job record written",
		slog.String("request_id", rec.RequestID),
		slog.String("status", string(rec.Status)))
	return nil
}

// Get implements store.JobStore.
func (s *JobStore) Get(ctx context.Context, requestID string) (*domain.JobRecord, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, selectRecord, requestID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrJobNotFound
	}
	if err != nil {
		return nil, MapError(err)
	}

	var rec domain.JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, store.NewStoreError("job", "get", "failed to decode record", err)
	}
	return &rec, nil
}

// Ping implements store.Pinger.
func (s *JobStore) Ping(ctx context.Context) error {
	return MapError(s.db.PingContext(ctx))
}
