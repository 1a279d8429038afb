package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/docgen-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 0, LogLevel: "debug", ShutdownTimeout: 5 * time.Second},
		Store:  config.StoreConfig{Driver: "memory", Dir: t.TempDir(), Timeout: time.Second},
		LLM: config.LLMConfig{
			OllamaURL:      "http://127.0.0.1:11434",
			MaxAttempts:    1,
			AttemptTimeout: time.Second,
		},
		Task: config.TaskConfig{WorkerCount: 1, QueueSize: 4, FinalizeTimeout: time.Second},
		RateLimit: config.RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 1,
			Burst:             1,
			CleanupInterval:   time.Minute,
			IdleTTL:           time.Minute,
		},
	}
}

func newTestApplication(t *testing.T) *application {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := newApplication(context.Background(), testConfig(t), logger)
	require.NoError(t, err)
	t.Cleanup(func() { app.cleanup(context.Background()) })
	return app
}

func TestNewApplicationRegistersBackends(t *testing.T) {
	app := newTestApplication(t)
	assert.Equal(t, []string{"gemini", "ollama", "openai", "openrouter"}, app.backends.Names())
	assert.False(t, app.store.Degraded)
	assert.NotNil(t, app.limiter)
}

func TestSetupBackendsRejectsBadOllamaURL(t *testing.T) {
	_, err := setupBackends(config.LLMConfig{OllamaURL: "::not a url"}, nil)
	assert.ErrorContains(t, err, "Ollama")
}

func TestRouter(t *testing.T) {
	app := newTestApplication(t)
	router := app.setupRouter()

	serve := func(method, path, body string) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, reader)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("health", func(t *testing.T) {
		w := serve(http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"ok"`)
		assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
	})

	t.Run("unknown job reads as processing", func(t *testing.T) {
		w := serve(http.MethodGet, "/api/generations/not-yet-visible", "")
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "processing", body["status"])
	})

	t.Run("submission is validated then rate limited", func(t *testing.T) {
		bad := serve(http.MethodPost, "/api/generations", `{"backend":"gemini","categories":{}}`)
		assert.Equal(t, http.StatusBadRequest, bad.Code)

		again := serve(http.MethodPost, "/api/generations", `{"backend":"gemini","categories":{}}`)
		assert.Equal(t, http.StatusTooManyRequests, again.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		w := serve(http.MethodGet, "/metrics", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "docgen_jobs_rejected_total")
		assert.Contains(t, w.Body.String(), "docgen_queue_depth")
	})
}

func TestStartHTTPServerStopsOnCancel(t *testing.T) {
	app := newTestApplication(t)
	app.pool.Start()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.startHTTPServer(ctx, http.NotFoundHandler()) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
