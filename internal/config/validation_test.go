package config

import (
	"errors"
	"testing"
)

// validConfig returns a config that passes validation, for mutation in tests.
// Uses the ollama provider so no API key env var is required.
func validConfig() *Config {
	return &Config{
		Provider:              ProviderOllama,
		ModelName:             "llama3.3",
		EmbedderModel:         "nomic-embed-text",
		OllamaHost:            "http://localhost:11434",
		TopK:                  DefaultTopK,
		HistoryTurns:          DefaultHistoryTurns,
		RequestTimeoutSeconds: DefaultRequestTimeoutSeconds,
		PostgresHost:          "localhost",
		PostgresPort:          5432,
		PostgresUser:          "bents",
		PostgresPassword:      "secret",
		PostgresDBName:        "bents",
		PostgresSSLMode:       "disable",
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidate_Nil(t *testing.T) {
	var c *Config
	if err := c.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("Validate() = %v, want ErrConfigNil", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"unknown provider", func(c *Config) { c.Provider = "claude" }, ErrInvalidProvider},
		{"empty model name", func(c *Config) { c.ModelName = "  " }, ErrInvalidModelName},
		{"empty embedder model", func(c *Config) { c.EmbedderModel = "" }, ErrInvalidEmbedderModel},
		{"bad ollama host", func(c *Config) { c.OllamaHost = "not a url" }, ErrInvalidOllamaHost},
		{"zero top k", func(c *Config) { c.TopK = 0 }, ErrInvalidTopK},
		{"huge top k", func(c *Config) { c.TopK = 51 }, ErrInvalidTopK},
		{"negative history turns", func(c *Config) { c.HistoryTurns = -1 }, ErrInvalidHistoryTurns},
		{"tiny request timeout", func(c *Config) { c.RequestTimeoutSeconds = 1 }, ErrInvalidRequestTimeout},
		{"empty postgres host", func(c *Config) { c.PostgresHost = "" }, ErrInvalidPostgresHost},
		{"bad postgres port", func(c *Config) { c.PostgresPort = 70000 }, ErrInvalidPostgresPort},
		{"empty db name", func(c *Config) { c.PostgresDBName = "" }, ErrInvalidPostgresDBName},
		{"bad ssl mode", func(c *Config) { c.PostgresSSLMode = "maybe" }, ErrInvalidPostgresSSLMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
