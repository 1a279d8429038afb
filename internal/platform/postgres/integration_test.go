package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/docgen-api/internal/domain"
	"github.com/phrazzld/docgen-api/internal/platform/postgres"
	"github.com/phrazzld/docgen-api/internal/store"
	"github.com/phrazzld/docgen-api/internal/testdb"
)

// TestJobStoreIntegration runs against a real database when one is
// configured for tests.
func TestJobStoreIntegration(t *testing.T) {
	db := testdb.Open(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s := postgres.NewJobStore(db, nil)
	id := testdb.NewRequestID(t, db)

	_, err := s.Get(ctx, id)
	assert.ErrorIs(t, err, store.ErrJobNotFound)

	rec, err := domain.NewPlaceholder(id, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, rec))

	progressed, err := rec.WithProgress("Attempt 1 failed", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, progressed))

	done, err := progressed.Complete(domain.Completion{
		Backend:    "gemini",
		RawContent: "# Title\nbody",
		Sections:   []domain.Section{{Title: "Title", Content: "body"}},
	}, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, done))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	require.NotNil(t, got.RawContent)
	assert.Equal(t, "# Title\nbody", *got.RawContent)

	assert.ErrorIs(t, s.Put(ctx, rec), store.ErrJobFinalized)
	assert.NoError(t, s.Ping(ctx))
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := testdb.Open(t)
	require.NoError(t, postgres.Migrate(context.Background(), db, nil))
	require.NoError(t, postgres.RunMigrations(context.Background(), db, "version", nil))
}
