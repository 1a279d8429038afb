package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "DOCGEN"

// ConfigFileEnv names the environment variable holding an explicit config path.
const ConfigFileEnv = "DOCGEN_CONFIG_FILE"

var defaults = map[string]any{
	"server.port":             8080,
	"server.log_level":        "info",
	"server.log_format":       "json",
	"server.read_timeout":     15 * time.Second,
	"server.write_timeout":    30 * time.Second,
	"server.shutdown_timeout": 30 * time.Second,

	"store.driver":       "file",
	"store.dir":          "./data/jobs",
	"store.database_url": "",
	"store.redis_url":    "",
	"store.key_prefix":   "docgen:job:",
	"store.record_ttl":   24 * time.Hour,
	"store.timeout":      5 * time.Second,

	"llm.gemini_api_key":       "",
	"llm.openai_api_key":       "",
	"llm.openai_base_url":      "",
	"llm.openrouter_api_key":   "",
	"llm.openrouter_base_url":  "https://openrouter.ai/api/v1",
	"llm.ollama_url":           "",
	"llm.max_attempts":         3,
	"llm.base_delay":           2 * time.Second,
	"llm.attempt_timeout":      120 * time.Second,
	"llm.prompt_template_path": "",
	"llm.temperature":          0.7,
	"llm.max_output_tokens":    8192,

	"task.worker_count":     4,
	"task.queue_size":       100,
	"task.finalize_timeout": 10 * time.Second,

	"rate_limit.enabled":             true,
	"rate_limit.requests_per_minute": 10.0,
	"rate_limit.burst":               5,
	"rate_limit.cleanup_interval":    5 * time.Minute,
	"rate_limit.idle_ttl":            10 * time.Minute,
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path := os.Getenv(ConfigFileEnv); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
