// Package filestore implements store.JobStore on the local filesystem. Each
// record is written to <dir>/<requestId>.json through a temporary file and
// rename, so readers never observe a partial document.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/phrazzld/docgen-api/internal/domain"
	"github.com/phrazzld/docgen-api/internal/store"
)

// requestIDPattern keeps IDs inside the store directory.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// Store implements store.JobStore on a directory.
type Store struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

var _ store.JobStore = (*Store)(nil)

// New creates the directory if needed and returns a Store writing into it.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("store directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:    dir,
		logger: logger.With("component", "file_job_store"),
	}, nil
}

// Path returns the file a record with requestID is stored in.
func (s *Store) Path(requestID string) (string, error) {
	if requestIDPattern.MatchString(requestID) && requestID != "." && requestID != ".." {
		return filepath.Join(s.dir, requestID+".json"), nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidID, requestID)
}

// Put implements store.JobStore.
func (s *Store) Put(ctx context.Context, rec *domain.JobRecord) error {
	if err := store.ValidateForPut(rec); err != nil {
		return err
	}
	path, err := s.Path(rec.RequestID)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return store.NewStoreError("job", "put", "failed to encode record", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		status, err := store.StatusOf(existing)
		if err != nil {
			return store.NewStoreError("job", "put", "failed to decode stored record", err)
		}
		if status.IsTerminal() {
			return store.ErrJobFinalized
		}
	case !errors.Is(err, fs.ErrNotExist):
		return store.NewStoreError("job", "put", "failed to read stored record", err)
	}

	if err := writeFileAtomic(path, data); err != nil {
		return store.NewStoreError("job", "put", "failed to write record", err)
	}

	s.logger.DebugContext(ctx, "job record written",
		"request_id", rec.RequestID,
		"status", rec.Status,
		"path", path)
	return nil
}

// Get implements store.JobStore.
func (s *Store) Get(ctx context.Context, requestID string) (*domain.JobRecord, error) {
	path, err := s.Path(requestID)
	if err != nil {
		return nil, store.ErrJobNotFound
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.ErrJobNotFound
	}
	if err != nil {
		return nil, store.NewStoreError("job", "get", "failed to read record", err)
	}

	var rec domain.JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, store.NewStoreError("job", "get", "failed to decode record", err)
	}
	return &rec, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
