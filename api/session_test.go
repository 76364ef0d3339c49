package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MohamedRasheqA/bents-v3/internal/log"
	"github.com/MohamedRasheqA/bents-v3/internal/session"
)

func newSessionMux(querier *memSessionQuerier) *http.ServeMux {
	h := NewSessionHandler(session.New(querier, nil, log.NewNop()), log.NewNop())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

func doRequest(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestSessionCreate(t *testing.T) {
	t.Parallel()
	mux := newSessionMux(newMemSessionQuerier())

	w := doRequest(mux, http.MethodPost, "/api/sessions", `{"title": "Dust collection"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Dust collection", resp.Title)
	assert.NotEmpty(t, resp.ID)
}

func TestSessionCreateNoBody(t *testing.T) {
	t.Parallel()
	mux := newSessionMux(newMemSessionQuerier())

	w := doRequest(mux, http.MethodPost, "/api/sessions", "")

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestSessionCreateTitleTooLong(t *testing.T) {
	t.Parallel()
	mux := newSessionMux(newMemSessionQuerier())

	w := doRequest(mux, http.MethodPost, "/api/sessions",
		`{"title": "`+strings.Repeat("x", maxTitleLength+1)+`"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionList(t *testing.T) {
	t.Parallel()
	querier := newMemSessionQuerier()
	mux := newSessionMux(querier)

	for range 3 {
		_, err := querier.CreateSession(t.Context(), nil)
		require.NoError(t, err)
	}

	w := doRequest(mux, http.MethodGet, "/api/sessions", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Sessions []sessionResponse `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Sessions, 3)
}

func TestSessionListBadPagination(t *testing.T) {
	t.Parallel()
	mux := newSessionMux(newMemSessionQuerier())

	// malformed and out-of-range parameters fall back to defaults
	w := doRequest(mux, http.MethodGet, "/api/sessions?limit=banana&offset=-5", "")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionMessages(t *testing.T) {
	t.Parallel()
	querier := newMemSessionQuerier()
	mux := newSessionMux(querier)

	sess, err := querier.CreateSession(t.Context(), nil)
	require.NoError(t, err)
	require.NoError(t, querier.AddMessage(t.Context(), session.Message{
		SessionID: sess.ID, SequenceNumber: 1, Role: session.RoleUser, Content: "how do I flatten a slab?",
	}))
	require.NoError(t, querier.AddMessage(t.Context(), session.Message{
		SessionID: sess.ID, SequenceNumber: 2, Role: session.RoleModel, Content: "Use a router sled.",
	}))

	w := doRequest(mux, http.MethodGet, "/api/sessions/"+sess.ID.String()+"/messages", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Messages []messageResponse `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, session.RoleUser, resp.Messages[0].Role)
	assert.Equal(t, "Use a router sled.", resp.Messages[1].Content)
}

func TestSessionMessagesNotFound(t *testing.T) {
	t.Parallel()
	mux := newSessionMux(newMemSessionQuerier())

	w := doRequest(mux, http.MethodGet, "/api/sessions/a2fca3b2-78e8-43fa-86a5-6ae6ab1bb89b/messages", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionMessagesInvalidID(t *testing.T) {
	t.Parallel()
	mux := newSessionMux(newMemSessionQuerier())

	w := doRequest(mux, http.MethodGet, "/api/sessions/not-a-uuid/messages", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionDelete(t *testing.T) {
	t.Parallel()
	querier := newMemSessionQuerier()
	mux := newSessionMux(querier)

	sess, err := querier.CreateSession(t.Context(), nil)
	require.NoError(t, err)

	w := doRequest(mux, http.MethodDelete, "/api/sessions/"+sess.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(mux, http.MethodDelete, "/api/sessions/"+sess.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestParseIntParam(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"absent", "", 10},
		{"valid", "n=25", 25},
		{"malformed", "n=abc", 10},
		{"negative", "n=-3", -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			assert.Equal(t, tt.want, parseIntParam(req, "n", 10))
		})
	}
}
