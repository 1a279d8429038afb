package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/docgen-api/internal/platform/postgres"
	"github.com/phrazzld/docgen-api/internal/redact"
)

var idSeq atomic.Int64

// URL returns the test database URL. Without one the test is skipped, or
// failed when running in CI.
func URL(t testing.TB) string {
	t.Helper()
	url := DatabaseURL()
	if url != "" {
		return url
	}
	if IsCI() {
		t.Fatalf("%s must be set in CI", EnvTestDatabaseURL)
	}
	t.Skipf("%s not set, skipping database test", EnvTestDatabaseURL)
	return ""
}

// Open connects to the test database, applies migrations and closes the
// connection when the test ends.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	url := URL(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.Open(ctx, url)
	if err != nil {
		t.Fatalf("failed to open test database: %s", redact.Error(err))
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := postgres.Migrate(ctx, db, logger); err != nil {
		t.Fatalf("failed to migrate test database: %s", redact.Error(err))
	}
	return db
}

// NewRequestID returns a request ID unique to this test run and deletes
// its row when the test ends.
func NewRequestID(t testing.TB, db *sql.DB) string {
	t.Helper()
	id := fmt.Sprintf("test-%d-%d", time.Now().UnixNano(), idSeq.Add(1))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := db.ExecContext(ctx, `DELETE FROM generation_jobs WHERE request_id = $1`, id); err != nil {
			t.Logf("failed to delete test job %s: %v", id, err)
		}
	})
	return id
}
