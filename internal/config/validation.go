package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// validSSLModes are the PostgreSQL SSL modes accepted by pgx.
var validSSLModes = map[string]struct{}{
	"disable":     {},
	"allow":       {},
	"prefer":      {},
	"require":     {},
	"verify-ca":   {},
	"verify-full": {},
}

// Validate checks the configuration for consistency.
// Returns the first violation found, wrapped around a package sentinel error.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if err := c.validateAI(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	return c.validateStorage()
}

func (c *Config) validateAI() error {
	switch c.Provider {
	case ProviderGemini, ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: %q (must be one of: gemini, ollama, openai)", ErrInvalidProvider, c.Provider)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder model is empty", ErrInvalidEmbedderModel)
	}

	if c.Provider == ProviderOllama {
		u, err := url.Parse(c.OllamaHost)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidOllamaHost, c.OllamaHost)
		}
	}

	// API keys are read directly by the provider plugins; fail fast here
	// rather than at the first model call.
	switch c.Provider {
	case ProviderGemini:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY not set", ErrInvalidProvider)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY not set", ErrInvalidProvider)
		}
	}

	return nil
}

func (c *Config) validatePipeline() error {
	if c.TopK < 1 || c.TopK > 50 {
		return fmt.Errorf("%w: %d (must be 1-50)", ErrInvalidTopK, c.TopK)
	}
	if c.HistoryTurns < 0 || c.HistoryTurns > 100 {
		return fmt.Errorf("%w: %d (must be 0-100)", ErrInvalidHistoryTurns, c.HistoryTurns)
	}
	if c.RequestTimeoutSeconds < 5 || c.RequestTimeoutSeconds > 600 {
		return fmt.Errorf("%w: %ds (must be 5-600)", ErrInvalidRequestTimeout, c.RequestTimeoutSeconds)
	}
	return nil
}

func (c *Config) validateStorage() error {
	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name is empty", ErrInvalidPostgresDBName)
	}
	if _, ok := validSSLModes[c.PostgresSSLMode]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}
	return nil
}
