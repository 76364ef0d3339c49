package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/MohamedRasheqA/bents-v3/internal/log"
	"github.com/MohamedRasheqA/bents-v3/internal/session"
)

const (
	defaultSessionLimit = 20
	maxSessionLimit     = 100
	maxTitleLength      = 200
)

// SessionHandler serves the session management endpoints.
type SessionHandler struct {
	store  *session.Store
	logger log.Logger
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(store *session.Store, logger log.Logger) *SessionHandler {
	return &SessionHandler{store: store, logger: logger}
}

// RegisterRoutes registers the session endpoints on the mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions", h.handleList)
	mux.HandleFunc("POST /api/sessions", h.handleCreate)
	mux.HandleFunc("GET /api/sessions/{id}/messages", h.handleMessages)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.handleDelete)
}

type sessionResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type messageResponse struct {
	SequenceNumber int32     `json:"sequenceNumber"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

func toSessionResponse(s session.Session) sessionResponse {
	return sessionResponse{
		ID:        s.ID.String(),
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func (h *SessionHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", defaultSessionLimit)
	if limit < 1 || limit > maxSessionLimit {
		limit = defaultSessionLimit
	}
	offset := parseIntParam(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	sessions, err := h.store.List(r.Context(), int32(limit), int32(offset))
	if err != nil {
		h.logger.Error("listing sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list sessions")
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}
	if len(req.Title) > maxTitleLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "title too long")
		return
	}

	sess, err := h.store.Create(r.Context(), req.Title)
	if err != nil {
		h.logger.Error("creating session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(*sess))
}

func (h *SessionHandler) handleMessages(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid session id")
		return
	}

	if _, err := h.store.Get(r.Context(), id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		h.logger.Error("getting session", "error", err, "session_id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load session")
		return
	}

	msgs, err := h.store.Messages(r.Context(), id)
	if err != nil {
		h.logger.Error("loading messages", "error", err, "session_id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load messages")
		return
	}

	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{
			SequenceNumber: m.SequenceNumber,
			Role:           m.Role,
			Content:        m.Content,
			CreatedAt:      m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": out})
}

func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid session id")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		h.logger.Error("deleting session", "error", err, "session_id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseIntParam reads an integer query parameter, falling back to def when
// the parameter is absent or malformed.
func parseIntParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
