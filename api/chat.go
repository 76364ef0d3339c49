package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/MohamedRasheqA/bents-v3/internal/chat"
	"github.com/MohamedRasheqA/bents-v3/internal/log"
	"github.com/MohamedRasheqA/bents-v3/internal/session"
)

// maxQuestionLength bounds the request question size.
const maxQuestionLength = 4000

// ChatHandler serves the chat endpoints.
type ChatHandler struct {
	engine   *chat.Engine
	flow     *chat.Flow
	sessions *session.Store
	logger   log.Logger
}

// NewChatHandler creates a chat handler. sessions may be nil, in which
// case sessionId requests are rejected.
func NewChatHandler(engine *chat.Engine, flow *chat.Flow, sessions *session.Store, logger log.Logger) *ChatHandler {
	return &ChatHandler{
		engine:   engine,
		flow:     flow,
		sessions: sessions,
		logger:   logger,
	}
}

// RegisterRoutes registers the chat endpoints on the mux.
// The non-streaming endpoint is served by the Genkit flow handler, which
// accepts the standard flow envelope {"data": <Input>}.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("POST /api/chat", genkit.Handler(h.flow))
	mux.HandleFunc("POST /api/chat/stream", h.handleStream)
}

// streamRequest is the request body for the streaming endpoint. History
// comes either from a stored session or inline, not both; sessionId wins.
type streamRequest struct {
	Question  string             `json:"question"`
	SessionID string             `json:"sessionId,omitempty"`
	History   []chat.HistoryTurn `json:"history,omitempty"`
}

// handleStream runs the pipeline and streams the answer as Server-Sent
// Events. Event order is a sequence of "chunk" events carrying answer
// text, then a single "done" event carrying the full output including
// video references and related products, which only exist once the
// answer text is complete. Failures after the stream has started are
// reported as a terminal "error" event.
func (h *ChatHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	var req streamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "question is required")
		return
	}
	if len(req.Question) > maxQuestionLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "question too long")
		return
	}

	var sess *session.Session
	history := chat.HistoryMessages(req.History)
	if req.SessionID != "" {
		var ok bool
		sess, history, ok = h.loadSessionHistory(w, r, req.SessionID)
		if !ok {
			return
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	resp, err := h.engine.AskStream(r.Context(), chat.Request{
		Question: req.Question,
		History:  history,
	}, func(ctx context.Context, text string) error {
		if err := writeSSEEvent(w, "chunk", chat.StreamChunk{Text: text}); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		h.logger.Error("chat stream failed", "error", err)
		_ = writeSSEEvent(w, "error", errorDetail{
			Code:    errorCode(err),
			Message: "failed to answer question",
		})
		flusher.Flush()
		return
	}

	if sess != nil {
		// Best effort; a failed history write must not lose the answer.
		if err := h.sessions.AppendTurn(r.Context(), sess.ID, req.Question, resp.AnswerText); err != nil {
			h.logger.Warn("appending turn", "error", err, "session_id", sess.ID)
		}
		if sess.Title == "" {
			h.maybeGenerateTitle(r.Context(), sess.ID, req.Question)
		}
	}

	if err := writeSSEEvent(w, "done", chat.OutputFromResponse(resp)); err != nil {
		h.logger.Warn("writing done event", "error", err)
		return
	}
	flusher.Flush()
}

// loadSessionHistory resolves the stored session and its history, writing
// the error response itself when the session is invalid or unknown.
func (h *ChatHandler) loadSessionHistory(w http.ResponseWriter, r *http.Request, raw string) (*session.Session, []*ai.Message, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid session id")
		return nil, nil, false
	}
	if h.sessions == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "sessions are not enabled")
		return nil, nil, false
	}

	sess, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session not found")
			return nil, nil, false
		}
		h.logger.Error("getting session", "error", err, "session_id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load session")
		return nil, nil, false
	}

	history, err := h.sessions.History(r.Context(), id)
	if err != nil {
		h.logger.Error("loading session history", "error", err, "session_id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load history")
		return nil, nil, false
	}
	return sess, history, true
}

// maybeGenerateTitle names an untitled session after its first question.
// Best effort; falls back to truncating the question when the model call
// comes back empty.
func (h *ChatHandler) maybeGenerateTitle(ctx context.Context, id uuid.UUID, question string) {
	title := h.engine.GenerateTitle(ctx, question)
	if title == "" {
		if runes := []rune(question); len(runes) > session.TitleMaxLength {
			question = string(runes[:session.TitleMaxLength-3]) + "..."
		}
		title = question
	}
	if err := h.sessions.UpdateTitle(ctx, id, title); err != nil {
		h.logger.Warn("updating session title", "error", err, "session_id", id)
	}
}

// errorCode maps pipeline failures to stable wire codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, chat.ErrClassification):
		return "classification_failed"
	case errors.Is(err, chat.ErrEmbedding):
		return "embedding_failed"
	case errors.Is(err, chat.ErrRetrieval):
		return "retrieval_failed"
	case errors.Is(err, chat.ErrGenerationNoResponse), errors.Is(err, chat.ErrGenerationCutOff):
		return "generation_failed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal_error"
	}
}

// writeSSEEvent writes one named SSE event with a JSON data payload.
func writeSSEEvent(w http.ResponseWriter, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", event, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}
