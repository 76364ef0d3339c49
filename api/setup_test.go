package api

import (
	"context"
	"sync"
	"testing"

	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/goleak"

	"github.com/MohamedRasheqA/bents-v3/internal/chat"
	"github.com/MohamedRasheqA/bents-v3/internal/intent"
	"github.com/MohamedRasheqA/bents-v3/internal/knowledge"
	"github.com/MohamedRasheqA/bents-v3/internal/log"
	"github.com/MohamedRasheqA/bents-v3/internal/product"
	"github.com/MohamedRasheqA/bents-v3/internal/session"
	"github.com/MohamedRasheqA/bents-v3/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*http2clientConnReadLoop).run"),
		goleak.IgnoreTopFunction("os/signal.NotifyContext.func1"),
	)
}

// memSessionQuerier is an in-memory session.Querier for handler tests.
type memSessionQuerier struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]session.Session
	messages map[uuid.UUID][]session.Message
	err      error // when set, every method fails with it
}

func newMemSessionQuerier() *memSessionQuerier {
	return &memSessionQuerier{
		sessions: make(map[uuid.UUID]session.Session),
		messages: make(map[uuid.UUID][]session.Message),
	}
}

func (m *memSessionQuerier) CreateSession(ctx context.Context, title *string) (session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return session.Session{}, m.err
	}
	sess := session.Session{ID: uuid.New()}
	if title != nil {
		sess.Title = *title
	}
	m.sessions[sess.ID] = sess
	return sess, nil
}

func (m *memSessionQuerier) GetSession(ctx context.Context, id uuid.UUID) (session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return session.Session{}, m.err
	}
	sess, ok := m.sessions[id]
	if !ok {
		return session.Session{}, pgx.ErrNoRows
	}
	return sess, nil
}

func (m *memSessionQuerier) ListSessions(ctx context.Context, limit, offset int32) ([]session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]session.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	return out, nil
}

func (m *memSessionQuerier) TouchSession(ctx context.Context, id uuid.UUID) error {
	return m.err
}

func (m *memSessionQuerier) UpdateSessionTitle(ctx context.Context, id uuid.UUID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	sess, ok := m.sessions[id]
	if !ok {
		return pgx.ErrNoRows
	}
	sess.Title = title
	m.sessions[id] = sess
	return nil
}

func (m *memSessionQuerier) title(sessionID uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[sessionID].Title
}

func (m *memSessionQuerier) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.sessions[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.sessions, id)
	delete(m.messages, id)
	return nil
}

func (m *memSessionQuerier) LockSession(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return uuid.Nil, m.err
	}
	if _, ok := m.sessions[id]; !ok {
		return uuid.Nil, pgx.ErrNoRows
	}
	return id, nil
}

func (m *memSessionQuerier) MaxSequenceNumber(ctx context.Context, sessionID uuid.UUID) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return int32(len(m.messages[sessionID])), nil
}

func (m *memSessionQuerier) AddMessage(ctx context.Context, msg session.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], msg)
	return nil
}

func (m *memSessionQuerier) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]session.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.messages[sessionID], nil
}

func (m *memSessionQuerier) messageCount(sessionID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages[sessionID])
}

// stubChunkQuerier implements knowledge.Querier for handler tests.
type stubChunkQuerier struct {
	mu      sync.Mutex
	results []knowledge.Result
}

func (s *stubChunkQuerier) UpsertChunk(ctx context.Context, chunk knowledge.Chunk, embedding pgvector.Vector) error {
	return nil
}

func (s *stubChunkQuerier) SearchChunks(ctx context.Context, embedding pgvector.Vector, topK int32) ([]knowledge.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results, nil
}

func (s *stubChunkQuerier) CountChunks(ctx context.Context) (int64, error) {
	return 0, nil
}

// stubProductQuerier implements product.Querier for handler tests.
type stubProductQuerier struct {
	mu       sync.Mutex
	products []product.Product
}

func (s *stubProductQuerier) MatchProducts(ctx context.Context, titles []string) ([]product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products, nil
}

// testServer wires a full Server against the mock model and embedder.
type testServer struct {
	server   *Server
	llm      *testutil.MockLLM
	chunks   *stubChunkQuerier
	catalog  *stubProductQuerier
	sessions *memSessionQuerier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	g := genkit.Init(context.Background())
	llm := testutil.NewMockLLM("fallback response")
	llm.RegisterModel(g)
	mockEmbedder := testutil.NewMockEmbedder(8)
	embedder := mockEmbedder.RegisterEmbedder(g)

	logger := log.NewNop()
	chunks := &stubChunkQuerier{}
	catalog := &stubProductQuerier{}
	sessionQuerier := newMemSessionQuerier()
	store := session.New(sessionQuerier, nil, logger)

	engine, err := chat.New(chat.Config{
		Genkit:     g,
		Classifier: intent.NewClassifier(g, "mock/test-model", logger),
		Rewriter:   intent.NewRewriter(g, "mock/test-model", logger),
		Knowledge:  knowledge.New(chunks, embedder, logger),
		Products:   product.NewMatcher(catalog, logger),
		Logger:     logger,
		ModelName:  "mock/test-model",
	})
	if err != nil {
		t.Fatalf("chat.New() error = %v", err)
	}

	chat.ResetFlowForTesting()
	flow := chat.NewFlow(g, engine)

	return &testServer{
		server:   NewServer(engine, flow, store, nil, logger),
		llm:      llm,
		chunks:   chunks,
		catalog:  catalog,
		sessions: sessionQuerier,
	}
}
