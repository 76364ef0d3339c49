package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MohamedRasheqA/bents-v3/db"
	"github.com/MohamedRasheqA/bents-v3/internal/chat"
	"github.com/MohamedRasheqA/bents-v3/internal/config"
	"github.com/MohamedRasheqA/bents-v3/internal/database"
	"github.com/MohamedRasheqA/bents-v3/internal/intent"
	"github.com/MohamedRasheqA/bents-v3/internal/knowledge"
	"github.com/MohamedRasheqA/bents-v3/internal/log"
	"github.com/MohamedRasheqA/bents-v3/internal/observability"
	"github.com/MohamedRasheqA/bents-v3/internal/product"
	"github.com/MohamedRasheqA/bents-v3/internal/session"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup. Call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}

	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing must attach to Genkit's TracerProvider before Init.
	if cfg.Tracing.Enabled {
		a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)
	}

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	a.Sessions = session.New(session.NewQueries(pool), pool, logger)
	a.Knowledge = knowledge.New(knowledge.NewQueries(pool), embedder, logger)
	a.Products = product.NewMatcher(product.NewQueries(pool), logger)

	modelName := qualifiedModelName(cfg)
	engine, err := chat.New(chat.Config{
		Genkit:         g,
		Classifier:     intent.NewClassifier(g, modelName, logger),
		Rewriter:       intent.NewRewriter(g, modelName, logger),
		Knowledge:      a.Knowledge,
		Products:       a.Products,
		Logger:         logger,
		ModelName:      modelName,
		TopK:           cfg.TopK,
		HistoryTurns:   cfg.HistoryTurns,
		RequestTimeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat engine: %w", err)
	}
	a.Engine = engine
	a.Flow = chat.NewFlow(g, engine)

	return a, nil
}

// provideOtelShutdown sets up OTLP tracing before Genkit initialization.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	shutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Environment: cfg.Tracing.Environment,
		ServiceName: cfg.Tracing.ServiceName,
	}, logger)
	if err != nil {
		logger.Warn("tracing setup failed, continuing without traces", "error", err)
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and creates the PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return pool, nil
}

// provideGenkit initializes Genkit with the configured AI provider plugin.
// Supports gemini (default), ollama, and openai providers.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g := genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery)
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)
		return g, nil

	case config.ProviderOpenAI:
		g := genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)
		return g, nil

	default: // gemini
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)
		return g, nil
	}
}

// provideEmbedder looks up the embedder registered by the provider plugin.
// Each provider registers embedders differently:
//   - gemini: GoogleAIEmbedder(g, modelName)
//   - ollama: registered in provideGenkit, keyed by server address
//   - openai: auto-registered in Init(), looked up by model name
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	default:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

// qualifiedModelName prefixes the configured model with its provider
// namespace as registered in Genkit.
func qualifiedModelName(cfg *config.Config) string {
	switch cfg.Provider {
	case config.ProviderOllama:
		return "ollama/" + cfg.ModelName
	case config.ProviderOpenAI:
		return "openai/" + cfg.ModelName
	default:
		return "googleai/" + cfg.ModelName
	}
}
