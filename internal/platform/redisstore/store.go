package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phrazzld/docgen-api/internal/domain"
	"github.com/phrazzld/docgen-api/internal/store"
)

// DefaultKeyPrefix namespaces job keys.
const DefaultKeyPrefix = "docgen:job:"

// putScript writes the record unless the stored status is terminal.
// KEYS[1] job key, ARGV[1] status, ARGV[2] record, ARGV[3] ttl in ms.
var putScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'status')
if current == 'completed' or current == 'failed' then
	return 0
end
redis.call('HSET', KEYS[1], 'status', ARGV[1], 'record', ARGV[2])
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call('PEXPIRE', KEYS[1], ttl)
end
return 1
`)

// Config holds the Redis store settings.
type Config struct {
	URL       string
	KeyPrefix string
	// TTL bounds how long records are retained. Zero keeps them forever.
	TTL time.Duration
}

// Store implements store.JobStore using Redis.
type Store struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	logger    *slog.Logger
}

var (
	_ store.JobStore = (*Store)(nil)
	_ store.Pinger   = (*Store)(nil)
)

// New parses cfg.URL and creates a Store. It does not contact the server.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return NewWithClient(redis.NewClient(opts), cfg, logger), nil
}

// NewWithClient creates a Store around an existing client.
func NewWithClient(client redis.UniversalClient, cfg Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{
		client:    client,
		keyPrefix: prefix,
		ttl:       cfg.TTL,
		logger:    logger.With("component", "redis_job_store"),
	}
}

func (s *Store) key(requestID string) string {
	return s.keyPrefix + requestID
}

// Put implements store.JobStore.
func (s *Store) Put(ctx context.Context, rec *domain.JobRecord) error {
	if err := store.ValidateForPut(rec); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return store.NewStoreError("job", "put", "failed to encode record", err)
	}

	written, err := putScript.Run(ctx, s.client,
		[]string{s.key(rec.RequestID)},
		string(rec.Status), string(data), s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	if written == 0 {
		return store.ErrJobFinalized
	}

	s.logger.DebugContext(ctx, "job record written",
		"request_id", rec.RequestID,
		"status", rec.Status)
	return nil
}

// Get implements store.JobStore.
func (s *Store) Get(ctx context.Context, requestID string) (*domain.JobRecord, error) {
	data, err := s.client.HGet(ctx, s.key(requestID), "record").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}

	var rec domain.JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, store.NewStoreError("job", "get", "failed to decode record", err)
	}
	return &rec, nil
}

// Ping implements store.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
