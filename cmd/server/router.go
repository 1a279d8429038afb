package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/docgen-api/internal/api"
	apiMiddleware "github.com/phrazzld/docgen-api/internal/api/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	generations := api.NewGenerationHandler(app.orchestrator, app.statuses, app.logger)

	r.Route("/api/generations", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if app.limiter != nil {
				r.Use(app.limiter.Middleware)
			}
			r.Post("/", generations.SubmitGeneration)
		})
		r.Get("/{"+api.RequestIDParam+"}", generations.GetGenerationStatus)
	})

	r.Method(http.MethodGet, "/health", api.NewHealthHandler(app.store.Store, app.config.Store.Timeout, app.logger))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))

	return r
}
