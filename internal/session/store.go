package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier defines the database operations Store needs. The interface lives
// with the consumer so tests can substitute a mock.
type Querier interface {
	CreateSession(ctx context.Context, title *string) (Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (Session, error)
	ListSessions(ctx context.Context, limit, offset int32) ([]Session, error)
	TouchSession(ctx context.Context, id uuid.UUID) error
	UpdateSessionTitle(ctx context.Context, id uuid.UUID, title string) error
	DeleteSession(ctx context.Context, id uuid.UUID) error
	LockSession(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	MaxSequenceNumber(ctx context.Context, sessionID uuid.UUID) (int32, error)
	AddMessage(ctx context.Context, msg Message) error
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]Message, error)
}

// Store manages session persistence with a PostgreSQL backend.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	querier Querier
	pool    *pgxpool.Pool // for transaction support, nil in unit tests
	logger  *slog.Logger
}

// New creates a Store. The pool may be nil when the querier is a mock; in
// that mode AppendTurn runs without a transaction.
func New(querier Querier, pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		querier: querier,
		pool:    pool,
		logger:  logger,
	}
}

// Create creates a new session. An empty title stores NULL.
func (s *Store) Create(ctx context.Context, title string) (*Session, error) {
	var titlePtr *string
	if title != "" {
		titlePtr = &title
	}

	sess, err := s.querier.CreateSession(ctx, titlePtr)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Debug("created session", "id", sess.ID, "title", sess.Title)
	return &sess, nil
}

// Get retrieves a session by ID. Returns ErrSessionNotFound for unknown IDs.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.querier.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}
	return &sess, nil
}

// List returns sessions ordered by most recently updated.
func (s *Store) List(ctx context.Context, limit, offset int32) ([]Session, error) {
	sessions, err := s.querier.ListSessions(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// UpdateTitle sets a session's title, truncating to TitleMaxLength runes.
// Returns ErrSessionNotFound for unknown IDs.
func (s *Store) UpdateTitle(ctx context.Context, id uuid.UUID, title string) error {
	if runes := []rune(title); len(runes) > TitleMaxLength {
		title = string(runes[:TitleMaxLength-3]) + "..."
	}
	if err := s.querier.UpdateSessionTitle(ctx, id, title); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
		}
		return fmt.Errorf("updating title for session %s: %w", id, err)
	}
	s.logger.Debug("updated session title", "id", id, "title", title)
	return nil
}

// Delete deletes a session and all its messages.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.querier.DeleteSession(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
		}
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	s.logger.Debug("deleted session", "id", id)
	return nil
}

// AppendTurn stores one question/answer pair as the next two messages of the
// session and bumps the session's updated_at. The whole append runs in a
// transaction so concurrent appenders cannot interleave sequence numbers.
func (s *Store) AppendTurn(ctx context.Context, sessionID uuid.UUID, question, answer string) error {
	if s.pool == nil {
		return s.appendTurn(ctx, s.querier, sessionID, question, answer)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	txQuerier := NewQueries(tx)
	if _, err := txQuerier.LockSession(ctx, sessionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
		}
		return fmt.Errorf("locking session: %w", err)
	}

	if err := s.appendTurn(ctx, txQuerier, sessionID, question, answer); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("appended turn", "session_id", sessionID)
	return nil
}

func (s *Store) appendTurn(ctx context.Context, q Querier, sessionID uuid.UUID, question, answer string) error {
	maxSeq, err := q.MaxSequenceNumber(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("reading sequence number: %w", err)
	}

	turn := []Message{
		{SessionID: sessionID, SequenceNumber: maxSeq + 1, Role: RoleUser, Content: question},
		{SessionID: sessionID, SequenceNumber: maxSeq + 2, Role: RoleModel, Content: answer},
	}
	for _, msg := range turn {
		if err := q.AddMessage(ctx, msg); err != nil {
			return fmt.Errorf("inserting %s message: %w", msg.Role, err)
		}
	}

	if err := q.TouchSession(ctx, sessionID); err != nil {
		return fmt.Errorf("updating session timestamp: %w", err)
	}
	return nil
}

// Messages returns the stored messages of a session in turn order.
func (s *Store) Messages(ctx context.Context, sessionID uuid.UUID) ([]Message, error) {
	stored, err := s.querier.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading messages for session %s: %w", sessionID, err)
	}
	return stored, nil
}

// History returns the full conversation of a session as genkit messages in
// turn order, ready to pass to the pipeline.
func (s *Store) History(ctx context.Context, sessionID uuid.UUID) ([]*ai.Message, error) {
	stored, err := s.querier.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading history for session %s: %w", sessionID, err)
	}

	messages := make([]*ai.Message, 0, len(stored))
	for _, msg := range stored {
		switch msg.Role {
		case RoleUser:
			messages = append(messages, ai.NewUserMessage(ai.NewTextPart(msg.Content)))
		case RoleModel:
			messages = append(messages, ai.NewModelMessage(ai.NewTextPart(msg.Content)))
		default:
			return nil, fmt.Errorf("message %d: %w: %q", msg.SequenceNumber, ErrInvalidRole, msg.Role)
		}
	}

	s.logger.Debug("loaded history", "session_id", sessionID, "messages", len(messages))
	return messages, nil
}
