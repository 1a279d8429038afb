package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/docgen-api/internal/api/shared"
	"github.com/phrazzld/docgen-api/internal/store"
)

// Health states reported by /health.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

// DegradedReporter is implemented by stores that can fall back to a
// secondary backend.
type DegradedReporter interface {
	Degraded() bool
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// HealthHandler reports whether the result store is reachable. A store
// that can fall back to a secondary backend still serves requests, so it
// answers 200 with a degraded status; only an unreachable store without a
// fallback answers 503.
type HealthHandler struct {
	store   store.JobStore
	timeout time.Duration
	logger  *slog.Logger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(jobStore store.JobStore, timeout time.Duration, logger *slog.Logger) *HealthHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{store: jobStore, timeout: timeout, logger: logger}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d, hasFallback := h.store.(DegradedReporter)
	if hasFallback && d.Degraded() {
		shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: HealthDegraded, Store: "fallback"})
		return
	}

	if p, ok := h.store.(store.Pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			h.logger.WarnContext(ctx, "health check failed", "error", err)
			if hasFallback {
				shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: HealthDegraded, Store: "fallback"})
				return
			}
			shared.RespondWithJSON(w, r, http.StatusServiceUnavailable,
				HealthResponse{Status: HealthDegraded, Store: "unreachable"})
			return
		}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: HealthOK, Store: "ok"})
}
