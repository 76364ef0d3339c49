package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MohamedRasheqA/bents-v3/internal/log"
)

// readyTimeout bounds the database ping on the readiness probe.
const readyTimeout = 3 * time.Second

// HealthHandler serves the health check endpoints.
type HealthHandler struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewHealthHandler creates a health handler. pool may be nil, in which
// case the readiness probe always reports ready.
func NewHealthHandler(pool *pgxpool.Pool, logger log.Logger) *HealthHandler {
	return &HealthHandler{pool: pool, logger: logger}
}

// RegisterRoutes registers the health endpoints on the mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /ready", h.handleReady)
}

// handleHealth is the liveness probe. It returns 200 as long as the
// process is running.
func (h *HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady is the readiness probe. It verifies the database is
// reachable before reporting ready.
func (h *HealthHandler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.pool != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := h.pool.Ping(ctx); err != nil {
			h.logger.Warn("readiness probe failed", "error", err)
			writeError(w, http.StatusServiceUnavailable,
				"not_ready", "database unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
