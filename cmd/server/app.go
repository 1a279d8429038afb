package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/docgen-api/internal/api/middleware"
	"github.com/phrazzld/docgen-api/internal/config"
	"github.com/phrazzld/docgen-api/internal/events"
	"github.com/phrazzld/docgen-api/internal/generation"
	"github.com/phrazzld/docgen-api/internal/metrics"
	"github.com/phrazzld/docgen-api/internal/platform/gemini"
	"github.com/phrazzld/docgen-api/internal/platform/jobstore"
	"github.com/phrazzld/docgen-api/internal/platform/ollama"
	"github.com/phrazzld/docgen-api/internal/platform/openai"
	"github.com/phrazzld/docgen-api/internal/service"
	"github.com/phrazzld/docgen-api/internal/task"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	store    *jobstore.Handle
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	backends     *generation.Registry
	emitter      *events.InMemoryEventEmitter
	queue        *task.TaskQueue
	pool         *task.WorkerPool
	orchestrator *service.Orchestrator
	statuses     *service.StatusReader
	limiter      *middleware.RateLimiter
}

// newApplication creates a new application instance with all dependencies
// initialized. Nothing is started until Run is called.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config:   cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.New(app.registry)

	var err error
	app.store, err = jobstore.Open(ctx, cfg.Store, true, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open result store: %w", err)
	}
	app.metrics.StoreDegraded(app.store.Degraded)

	app.backends, err = setupBackends(cfg.LLM, logger)
	if err != nil {
		app.cleanup(ctx)
		return nil, err
	}

	prompts, err := generation.NewTemplatePromptBuilder(cfg.LLM.PromptTemplatePath)
	if err != nil {
		app.cleanup(ctx)
		return nil, fmt.Errorf("failed to load prompt template: %w", err)
	}
	retrier := generation.NewRetrier(cfg.LLM.MaxAttempts, cfg.LLM.BaseDelay, cfg.LLM.AttemptTimeout, logger)
	chain := generation.NewChain(app.backends, prompts, retrier, logger)

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(app.metrics)

	app.queue = task.NewTaskQueue(cfg.Task.QueueSize, logger)
	app.metrics.RegisterQueueDepth(app.queue.Len)

	poolConfig := task.DefaultWorkerPoolConfig()
	if cfg.Task.WorkerCount > 0 {
		poolConfig.WorkerCount = cfg.Task.WorkerCount
	}
	app.pool = task.NewWorkerPool(app.queue, poolConfig, logger)
	app.pool.SetErrorHandler(func(t task.Task, err error) {
		logger.Error("generation task failed", "task_id", t.ID(), "task_type", t.Type(), "error", err)
	})

	app.orchestrator, err = service.NewOrchestrator(app.store.Store, chain, app.queue, app.emitter,
		service.OrchestratorConfig{FinalizeTimeout: cfg.Task.FinalizeTimeout}, logger)
	if err != nil {
		app.cleanup(ctx)
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	app.statuses, err = service.NewStatusReader(app.store.Store, logger)
	if err != nil {
		app.cleanup(ctx)
		return nil, fmt.Errorf("failed to create status reader: %w", err)
	}

	if cfg.RateLimit.Enabled {
		app.limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
			CleanupInterval:   cfg.RateLimit.CleanupInterval,
			IdleTTL:           cfg.RateLimit.IdleTTL,
		}, logger)
		app.limiter.SetRejectHandler(func() { app.metrics.JobRejected("rate_limited") })
	}

	logger.Info("Application initialized successfully",
		"backends", app.backends.Names(),
		"store_degraded", app.store.Degraded)
	return app, nil
}

// setupBackends registers every backend adapter. Server-side keys are used
// for requests that bring no credential of their own.
func setupBackends(cfg config.LLMConfig, logger *slog.Logger) (*generation.Registry, error) {
	registry := generation.NewRegistry()

	registry.Register(gemini.New(logger), cfg.GeminiAPIKey, gemini.DefaultModels...)

	registry.Register(openai.New(openai.Config{
		BaseURL:     cfg.OpenAIBaseURL,
		MaxTokens:   cfg.MaxOutputTokens,
		Temperature: cfg.Temperature,
	}, logger), cfg.OpenAIAPIKey, openai.DefaultModels...)

	registry.Register(openai.New(openai.Config{
		Name:        "openrouter",
		BaseURL:     cfg.OpenRouterBaseURL,
		MaxTokens:   cfg.MaxOutputTokens,
		Temperature: cfg.Temperature,
	}, logger), cfg.OpenRouterAPIKey, openRouterDefaultModels...)

	if cfg.OllamaURL != "" {
		backend, err := ollama.New(cfg.OllamaURL, float64(cfg.Temperature), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to configure Ollama backend: %w", err)
		}
		registry.Register(backend, "", ollama.DefaultModels...)
	}

	return registry, nil
}

// openRouterDefaultModels is the fallback order for the openrouter backend.
var openRouterDefaultModels = []string{"openai/gpt-4o-mini", "meta-llama/llama-3.1-70b-instruct"}

// Run starts the worker pool and the HTTP server and blocks until ctx is
// cancelled and shutdown completes.
func (app *application) Run(ctx context.Context) error {
	app.pool.Start()

	router := app.setupRouter()
	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources. The queue is
// closed first so queued jobs still run to completion within the shutdown
// timeout.
func (app *application) cleanup(ctx context.Context) {
	if app.limiter != nil {
		app.limiter.Stop()
	}

	if app.queue != nil {
		app.queue.Close()
	}
	if app.pool != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.shutdownTimeout())
		if err := app.pool.Shutdown(shutdownCtx); err != nil {
			app.logger.Error("worker pool did not drain before timeout", "error", err)
		}
		cancel()
	}

	if app.store != nil {
		if err := app.store.Close(); err != nil {
			app.logger.Error("Error closing result store", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}

func (app *application) shutdownTimeout() time.Duration {
	if app.config.Server.ShutdownTimeout > 0 {
		return app.config.Server.ShutdownTimeout
	}
	return 30 * time.Second
}
