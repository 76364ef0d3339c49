// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.bents/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: provider and model selection, embedder model
//   - Storage: PostgreSQL connection (see storage.go)
//   - Pipeline: retrieval depth, history window, request ceiling
//   - Tracing: OTLP trace export (optional)
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidTopK indicates the retrieval depth is out of range.
	ErrInvalidTopK = errors.New("invalid top k")

	// ErrInvalidHistoryTurns indicates the history window is out of range.
	ErrInvalidHistoryTurns = errors.New("invalid history turns")

	// ErrInvalidRequestTimeout indicates the request ceiling is out of range.
	ErrInvalidRequestTimeout = errors.New("invalid request timeout")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

const (
	// DefaultGeminiEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 supports truncation to 768 dimensions via
	// OutputDimensionality; the transcripts schema uses vector(768).
	DefaultGeminiEmbedderModel = "gemini-embedding-001"

	// DefaultTopK is the default number of transcript chunks retrieved per question.
	DefaultTopK = 5

	// DefaultHistoryTurns is the number of recent (question, answer) turns
	// included in model calls. Bounds prompt size.
	DefaultHistoryTurns = 5

	// DefaultRequestTimeoutSeconds is the ceiling for a whole chat request,
	// sized to accommodate model generation.
	DefaultRequestTimeoutSeconds = 90
)

// TracingConfig holds OTLP trace export settings.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// Config stores application configuration.
type Config struct {
	// AI provider and model configuration
	Provider      string  `mapstructure:"provider" json:"provider"`       // "gemini" (default), "ollama", "openai"
	ModelName     string  `mapstructure:"model_name" json:"model_name"`   // e.g. "gemini-2.5-flash", "llama3.3", "gpt-4o"
	Temperature   float32 `mapstructure:"temperature" json:"temperature"` // 0.0-2.0
	MaxTokens     int     `mapstructure:"max_tokens" json:"max_tokens"`
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Pipeline configuration
	TopK                  int `mapstructure:"top_k" json:"top_k"`
	HistoryTurns          int `mapstructure:"history_turns" json:"history_turns"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds" json:"request_timeout_seconds"`

	// Server configuration
	ServerAddr string `mapstructure:"server_addr" json:"server_addr"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"-"` // SENSITIVE: never serialized
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Observability configuration
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".bents")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".") // Also support current directory

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings when set.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// AI defaults
	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_tokens", 2048)
	v.SetDefault("embedder_model", DefaultGeminiEmbedderModel)

	// Ollama defaults
	v.SetDefault("ollama_host", "http://localhost:11434")

	// Pipeline defaults
	v.SetDefault("top_k", DefaultTopK)
	v.SetDefault("history_turns", DefaultHistoryTurns)
	v.SetDefault("request_timeout_seconds", DefaultRequestTimeoutSeconds)

	// Server defaults
	v.SetDefault("server_addr", "127.0.0.1:3500")

	// PostgreSQL defaults for local development
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "bents")
	v.SetDefault("postgres_password", "bents_dev_password")
	v.SetDefault("postgres_db_name", "bents")
	v.SetDefault("postgres_ssl_mode", "disable")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.environment", "dev")
	v.SetDefault("tracing.service_name", "bents-assistant")
}

// bindEnvVariables binds environment overrides explicitly.
//
// NOTE: GEMINI_API_KEY and OPENAI_API_KEY are read directly by the Genkit
// provider plugins, not via Viper. Validation checks their presence based on
// the selected provider in cfg.Validate().
func bindEnvVariables(v *viper.Viper) {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a bug in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "BENTS_PROVIDER")
	mustBind("model_name", "BENTS_MODEL_NAME")
	mustBind("embedder_model", "BENTS_EMBEDDER_MODEL")
	mustBind("ollama_host", "BENTS_OLLAMA_HOST")
	mustBind("server_addr", "BENTS_SERVER_ADDR")
	mustBind("top_k", "BENTS_TOP_K")
	mustBind("postgres_password", "BENTS_POSTGRES_PASSWORD")
	mustBind("tracing.enabled", "BENTS_TRACING_ENABLED")
	mustBind("tracing.endpoint", "BENTS_TRACING_ENDPOINT")
}
