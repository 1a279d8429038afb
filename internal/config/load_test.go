package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs Load from an empty directory so a stray config.yaml in the
// package directory cannot leak into tests.
func isolate(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv(ConfigFileEnv, "")
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "file", cfg.Store.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Store.RecordTTL)
	assert.Equal(t, 3, cfg.LLM.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.LLM.BaseDelay)
	assert.Equal(t, 120*time.Second, cfg.LLM.AttemptTimeout)
	assert.Equal(t, 4, cfg.Task.WorkerCount)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.InDelta(t, 10.0, cfg.RateLimit.RequestsPerMinute, 0.001)
}

func TestLoadFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("DOCGEN_SERVER_PORT", "9090")
	t.Setenv("DOCGEN_SERVER_LOG_LEVEL", "debug")
	t.Setenv("DOCGEN_STORE_DRIVER", "redis")
	t.Setenv("DOCGEN_STORE_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("DOCGEN_LLM_GEMINI_API_KEY", "gemini-key")
	t.Setenv("DOCGEN_LLM_BASE_DELAY", "500ms")
	t.Setenv("DOCGEN_TASK_QUEUE_SIZE", "7")
	t.Setenv("DOCGEN_RATE_LIMIT_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Store.RedisURL)
	assert.Equal(t, "gemini-key", cfg.LLM.GeminiAPIKey)
	assert.Equal(t, 500*time.Millisecond, cfg.LLM.BaseDelay)
	assert.Equal(t, 7, cfg.Task.QueueSize)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "docgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7070
store:
  driver: memory
llm:
  max_attempts: 5
`), 0o600))
	t.Setenv(ConfigFileEnv, path)
	t.Setenv("DOCGEN_LLM_MAX_ATTEMPTS", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 2, cfg.LLM.MaxAttempts, "environment wins over file")
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port out of range", map[string]string{"DOCGEN_SERVER_PORT": "999999"}},
		{"bad log level", map[string]string{"DOCGEN_SERVER_LOG_LEVEL": "verbose"}},
		{"unknown driver", map[string]string{"DOCGEN_STORE_DRIVER": "s3"}},
		{"postgres without url", map[string]string{"DOCGEN_STORE_DRIVER": "postgres"}},
		{"redis without url", map[string]string{"DOCGEN_STORE_DRIVER": "redis"}},
		{"zero attempts", map[string]string{"DOCGEN_LLM_MAX_ATTEMPTS": "0"}},
		{"zero workers", map[string]string{"DOCGEN_TASK_WORKER_COUNT": "0"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config validation failed")
		})
	}
}
