package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/phrazzld/docgen-api/internal/domain"
)

// MemoryJobStore keeps records in process memory. Records are stored as
// JSON so callers never share mutable state with the store.
type MemoryJobStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryJobStore creates an empty in-memory store.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{records: make(map[string][]byte)}
}

var _ JobStore = (*MemoryJobStore)(nil)

// Put implements JobStore.
func (s *MemoryJobStore) Put(ctx context.Context, rec *domain.JobRecord) error {
	if err := ValidateForPut(rec); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return NewStoreError("job", "put", "failed to encode record", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[rec.RequestID]; ok {
		status, err := StatusOf(existing)
		if err != nil {
			return NewStoreError("job", "put", "failed to decode stored record", err)
		}
		if status.IsTerminal() {
			return ErrJobFinalized
		}
	}
	s.records[rec.RequestID] = data
	return nil
}

// Get implements JobStore.
func (s *MemoryJobStore) Get(ctx context.Context, requestID string) (*domain.JobRecord, error) {
	s.mu.RLock()
	data, ok := s.records[requestID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrJobNotFound
	}

	var rec domain.JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, NewStoreError("job", "get", "failed to decode record", err)
	}
	return &rec, nil
}

// Len returns the number of stored records.
func (s *MemoryJobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// StatusOf extracts the status field from an encoded record.
func StatusOf(data []byte) (domain.JobStatus, error) {
	var head struct {
		Status domain.JobStatus `json:"status"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", fmt.Errorf("decode status: %w", err)
	}
	return head.Status, nil
}
