// Package app provides application initialization and dependency injection.
//
// App is the container that wires configuration, Genkit, the database pool
// and the pipeline components together. Every command builds an App first
// and picks the pieces it needs.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MohamedRasheqA/bents-v3/internal/chat"
	"github.com/MohamedRasheqA/bents-v3/internal/config"
	"github.com/MohamedRasheqA/bents-v3/internal/knowledge"
	"github.com/MohamedRasheqA/bents-v3/internal/log"
	"github.com/MohamedRasheqA/bents-v3/internal/product"
	"github.com/MohamedRasheqA/bents-v3/internal/session"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Pool     *pgxpool.Pool

	Sessions  *session.Store
	Knowledge *knowledge.Store
	Products  *product.Matcher
	Engine    *chat.Engine
	Flow      *chat.Flow

	otelCleanup func()
}

// Close releases all resources. Safe to call on a partially built App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.Pool != nil {
		a.Pool.Close()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}
