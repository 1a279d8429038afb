// Package jobstore opens the result store selected by configuration.
// Remote drivers are wrapped with a filesystem fallback so job outcomes
// are recorded even while the backing service is down.
package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/docgen-api/internal/config"
	"github.com/phrazzld/docgen-api/internal/platform/filestore"
	"github.com/phrazzld/docgen-api/internal/platform/postgres"
	"github.com/phrazzld/docgen-api/internal/platform/redisstore"
	"github.com/phrazzld/docgen-api/internal/store"
)

// Supported store drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Handle is an opened result store and the resources behind it.
type Handle struct {
	Store store.JobStore

	// Degraded is true when a remote driver was configured but could not
	// be reached, so only the filesystem fallback is in use.
	Degraded bool

	// DB is the PostgreSQL connection when the postgres driver is active.
	DB *sql.DB

	closers []func() error
}

// Close releases connections held by the store.
func (h *Handle) Close() error {
	var errs []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open builds the store described by cfg. When migrate is true the
// PostgreSQL schema is brought up to date before use.
func Open(ctx context.Context, cfg config.StoreConfig, migrate bool, logger *slog.Logger) (*Handle, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "store_setup", "driver", cfg.Driver)

	switch cfg.Driver {
	case DriverMemory:
		return &Handle{Store: store.NewMemoryJobStore()}, nil

	case DriverFile:
		fs, err := filestore.New(cfg.Dir, logger)
		if err != nil {
			return nil, err
		}
		return &Handle{Store: fs}, nil

	case DriverRedis:
		fallback, err := filestore.New(cfg.Dir, logger)
		if err != nil {
			return nil, err
		}
		rs, err := redisstore.New(redisstore.Config{
			URL:       cfg.RedisURL,
			KeyPrefix: cfg.KeyPrefix,
			TTL:       cfg.RecordTTL,
		}, logger)
		if err != nil {
			return nil, err
		}

		pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		fb := store.NewFallback(pingCtx, rs, fallback, logger)
		log.Info("result store ready", "degraded", fb.Degraded())
		return &Handle{Store: fb, Degraded: fb.Degraded(), closers: []func() error{rs.Close}}, nil

	case DriverPostgres:
		fallback, err := filestore.New(cfg.Dir, logger)
		if err != nil {
			return nil, err
		}

		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Warn("database unreachable, using filesystem store only", "error", err)
			return &Handle{Store: fallback, Degraded: true}, nil
		}
		h := &Handle{DB: db, closers: []func() error{db.Close}}

		if migrate {
			if err := postgres.Migrate(ctx, db, logger); err != nil {
				_ = h.Close()
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}

		fb := store.NewFallback(ctx, postgres.NewJobStore(db, logger), fallback, logger)
		h.Store = fb
		h.Degraded = fb.Degraded()
		log.Info("result store ready", "degraded", h.Degraded)
		return h, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}
