// Package session persists conversation sessions and their turn history in
// PostgreSQL. A session is an ordered sequence of user/model message pairs;
// the stored history is what grounds follow-up questions in earlier turns.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Role constants define valid message roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// TitleMaxLength bounds session titles in runes; longer titles are truncated.
const TitleMaxLength = 60

// Session represents a conversation session.
type Session struct {
	ID        uuid.UUID
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is a single stored conversation message. Sequence numbers start at
// 1 and are contiguous within a session.
type Message struct {
	SessionID      uuid.UUID
	SequenceNumber int32
	Role           string // "user" | "model"
	Content        string
	CreatedAt      time.Time
}
