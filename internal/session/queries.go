package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgx methods the queries need. Both *pgxpool.Pool and
// pgx.Tx satisfy it, so the same queries run inside and outside transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries executes session SQL against a DBTX.
type Queries struct {
	db DBTX
}

// NewQueries creates a Queries bound to db.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

const createSessionSQL = `
INSERT INTO sessions (title)
VALUES ($1)
RETURNING id, title, created_at, updated_at`

// CreateSession inserts a new session row. A nil title stores NULL.
func (q *Queries) CreateSession(ctx context.Context, title *string) (Session, error) {
	return scanSession(q.db.QueryRow(ctx, createSessionSQL, title))
}

const getSessionSQL = `
SELECT id, title, created_at, updated_at
FROM sessions
WHERE id = $1`

// GetSession fetches a session by ID.
func (q *Queries) GetSession(ctx context.Context, id uuid.UUID) (Session, error) {
	return scanSession(q.db.QueryRow(ctx, getSessionSQL, id))
}

const listSessionsSQL = `
SELECT id, title, created_at, updated_at
FROM sessions
ORDER BY updated_at DESC
LIMIT $1 OFFSET $2`

// ListSessions returns sessions ordered by most recently updated.
func (q *Queries) ListSessions(ctx context.Context, limit, offset int32) ([]Session, error) {
	rows, err := q.db.Query(ctx, listSessionsSQL, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

const touchSessionSQL = `
UPDATE sessions
SET updated_at = now()
WHERE id = $1`

// TouchSession bumps a session's updated_at timestamp.
func (q *Queries) TouchSession(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, touchSessionSQL, id)
	return err
}

const updateSessionTitleSQL = `
UPDATE sessions
SET title = $2, updated_at = now()
WHERE id = $1`

// UpdateSessionTitle sets a session's title.
func (q *Queries) UpdateSessionTitle(ctx context.Context, id uuid.UUID, title string) error {
	tag, err := q.db.Exec(ctx, updateSessionTitleSQL, id, title)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const deleteSessionSQL = `
DELETE FROM sessions
WHERE id = $1`

// DeleteSession deletes a session. Messages go with it via ON DELETE CASCADE.
func (q *Queries) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, deleteSessionSQL, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const lockSessionSQL = `
SELECT id
FROM sessions
WHERE id = $1
FOR UPDATE`

// LockSession takes a row lock on the session so concurrent appenders
// serialize on sequence numbers.
func (q *Queries) LockSession(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var locked uuid.UUID
	err := q.db.QueryRow(ctx, lockSessionSQL, id).Scan(&locked)
	return locked, err
}

const maxSequenceNumberSQL = `
SELECT COALESCE(MAX(sequence_number), 0)
FROM session_messages
WHERE session_id = $1`

// MaxSequenceNumber returns the highest sequence number in a session, 0 when
// the session has no messages.
func (q *Queries) MaxSequenceNumber(ctx context.Context, sessionID uuid.UUID) (int32, error) {
	var maxSeq int32
	err := q.db.QueryRow(ctx, maxSequenceNumberSQL, sessionID).Scan(&maxSeq)
	return maxSeq, err
}

const addMessageSQL = `
INSERT INTO session_messages (session_id, sequence_number, role, content)
VALUES ($1, $2, $3, $4)`

// AddMessage inserts a single message row.
func (q *Queries) AddMessage(ctx context.Context, msg Message) error {
	_, err := q.db.Exec(ctx, addMessageSQL,
		msg.SessionID, msg.SequenceNumber, msg.Role, msg.Content)
	return err
}

const listMessagesSQL = `
SELECT session_id, sequence_number, role, content, created_at
FROM session_messages
WHERE session_id = $1
ORDER BY sequence_number`

// ListMessages returns all messages of a session in turn order.
func (q *Queries) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]Message, error) {
	rows, err := q.db.Query(ctx, listMessagesSQL, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.SessionID, &m.SequenceNumber, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func scanSession(row pgx.Row) (Session, error) {
	var (
		s     Session
		title *string
	)
	if err := row.Scan(&s.ID, &title, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return Session{}, err
	}
	if title != nil {
		s.Title = *title
	}
	return s, nil
}
