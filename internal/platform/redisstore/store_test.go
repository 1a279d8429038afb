package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/docgen-api/internal/domain"
	"github.com/phrazzld/docgen-api/internal/store"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := New(Config{URL: "redis://" + mr.Addr(), TTL: ttl}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestStorePutGet(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, 0)

	rec, err := domain.NewPlaceholder("req-1", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, rec))

	assert.True(t, mr.Exists(DefaultKeyPrefix+"req-1"))
	assert.Equal(t, "processing", mr.HGet(DefaultKeyPrefix+"req-1", "status"))

	progressed, err := rec.WithProgress("attempt 1 failed", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, progressed))

	got, err := s.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "attempt 1 failed", got.Progress)

	done, err := progressed.Complete(domain.Completion{
		Backend:    "gemini",
		RawContent: "# A\nbody",
		Sections:   []domain.Section{{Title: "A", Content: "body"}},
	}, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, done))

	got, err = s.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Equal(t, []domain.Section{{Title: "A", Content: "body"}}, got.Sections)
}

func TestStoreTerminalRecordIsFinal(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, 0)

	rec, err := domain.NewPlaceholder("req-2", time.Now())
	require.NoError(t, err)
	failed, err := rec.Fail(domain.JobError{Kind: "timeout_error", Message: "timed out", Attempts: 3}, "openai", "gpt-4o", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, failed))

	assert.ErrorIs(t, s.Put(ctx, rec), store.ErrJobFinalized)

	got, err := s.Get(ctx, "req-2")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
}

func TestStoreGetMissing(t *testing.T) {
	s, _ := newTestStore(t, 0)

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrJobNotFound)
}

func TestStoreInvalidRecord(t *testing.T) {
	s, mr := newTestStore(t, 0)

	err := s.Put(context.Background(), &domain.JobRecord{RequestID: "x", Status: "queued"})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.False(t, mr.Exists(DefaultKeyPrefix+"x"))
}

func TestStoreTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, time.Hour)

	rec, err := domain.NewPlaceholder("req-ttl", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, rec))

	assert.Equal(t, time.Hour, mr.TTL(DefaultKeyPrefix+"req-ttl"))

	mr.FastForward(2 * time.Hour)
	_, err = s.Get(ctx, "req-ttl")
	assert.ErrorIs(t, err, store.ErrJobNotFound)
}

func TestStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, 0)
	require.NoError(t, s.Ping(ctx))

	mr.Close()

	assert.ErrorIs(t, s.Ping(ctx), store.ErrUnavailable)

	rec, err := domain.NewPlaceholder("req-3", time.Now())
	require.NoError(t, err)
	assert.ErrorIs(t, s.Put(ctx, rec), store.ErrUnavailable)
	_, err = s.Get(ctx, "req-3")
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(Config{URL: "not a url"}, nil)
	assert.Error(t, err)
}
