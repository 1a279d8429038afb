package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"     validate:"required"`
	Store     StoreConfig     `mapstructure:"store"      validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm"        validate:"required"`
	Task      TaskConfig      `mapstructure:"task"       validate:"required"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	LogFormat       string        `mapstructure:"log_format"       validate:"omitempty,oneof=json text"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// StoreConfig selects and configures the result store.
type StoreConfig struct {
	// Driver is one of memory, file, redis or postgres.
	Driver      string        `mapstructure:"driver"       validate:"required,oneof=memory file redis postgres"`
	Dir         string        `mapstructure:"dir"          validate:"required"`
	DatabaseURL string        `mapstructure:"database_url" validate:"required_if=Driver postgres"`
	RedisURL    string        `mapstructure:"redis_url"    validate:"required_if=Driver redis"`
	KeyPrefix   string        `mapstructure:"key_prefix"`
	RecordTTL   time.Duration `mapstructure:"record_ttl"   validate:"gte=0"`
	Timeout     time.Duration `mapstructure:"timeout"      validate:"gt=0"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey       string        `mapstructure:"gemini_api_key"`
	OpenAIAPIKey       string        `mapstructure:"openai_api_key"`
	OpenAIBaseURL      string        `mapstructure:"openai_base_url"      validate:"omitempty,url"`
	OpenRouterAPIKey   string        `mapstructure:"openrouter_api_key"`
	OpenRouterBaseURL  string        `mapstructure:"openrouter_base_url"  validate:"omitempty,url"`
	OllamaURL          string        `mapstructure:"ollama_url"           validate:"omitempty,url"`
	MaxAttempts        int           `mapstructure:"max_attempts"         validate:"gte=1,lte=10"`
	BaseDelay          time.Duration `mapstructure:"base_delay"           validate:"gte=0"`
	AttemptTimeout     time.Duration `mapstructure:"attempt_timeout"      validate:"gt=0"`
	PromptTemplatePath string        `mapstructure:"prompt_template_path"`
	Temperature        float32       `mapstructure:"temperature"          validate:"gte=0,lte=2"`
	MaxOutputTokens    int           `mapstructure:"max_output_tokens"    validate:"gte=0"`
}

// TaskConfig sizes the background worker pool.
type TaskConfig struct {
	WorkerCount     int           `mapstructure:"worker_count"     validate:"gte=1"`
	QueueSize       int           `mapstructure:"queue_size"       validate:"gte=1"`
	FinalizeTimeout time.Duration `mapstructure:"finalize_timeout" validate:"gt=0"`
}

// RateLimitConfig configures the submission rate limiter.
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerMinute float64       `mapstructure:"requests_per_minute" validate:"gt=0"`
	Burst             int           `mapstructure:"burst"               validate:"gte=1"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"    validate:"gt=0"`
	IdleTTL           time.Duration `mapstructure:"idle_ttl"            validate:"gt=0"`
}
