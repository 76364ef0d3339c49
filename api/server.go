// Package api provides the HTTP REST API for the assistant.
//
// Endpoints:
//
//	POST /api/chat         - synchronous chat via the Genkit flow handler
//	POST /api/chat/stream  - streaming chat (Server-Sent Events)
//	GET  /api/sessions     - list sessions
//	POST /api/sessions     - create session
//	GET  /api/sessions/{id}/messages - conversation history
//	DELETE /api/sessions/{id} - delete session
//	GET  /health           - liveness probe
//	GET  /ready            - readiness probe
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (request ID, logging, recovery)
//   - health.go: health check endpoints
//   - session.go: session management endpoints
//   - chat.go: chat endpoints (flow handler + SSE streaming)
//   - response.go: JSON response helpers
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MohamedRasheqA/bents-v3/internal/chat"
	"github.com/MohamedRasheqA/bents-v3/internal/log"
	"github.com/MohamedRasheqA/bents-v3/internal/session"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:3500"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Long enough for a full generation to stream out.
	WriteTimeout = 120 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on
	// keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for the REST API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	health   *HealthHandler
	sessions *SessionHandler
	chat     *ChatHandler
}

// NewServer creates a new HTTP server with all routes registered.
func NewServer(engine *chat.Engine, flow *chat.Flow, store *session.Store, pool *pgxpool.Pool, logger log.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	s := &Server{
		mux:      mux,
		logger:   logger,
		health:   NewHealthHandler(pool, logger),
		sessions: NewSessionHandler(store, logger),
		chat:     NewChatHandler(engine, flow, store, logger),
	}

	s.health.RegisterRoutes(mux)
	s.sessions.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: request ID, recovery, logging, handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		requestIDMiddleware(),
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
	)
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
