package session

import "errors"

// Sentinel errors for session operations. Callers should check them with
// errors.Is().
var (
	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidRole indicates a message role outside user/model.
	ErrInvalidRole = errors.New("invalid message role")
)
