package domain

import (
	"context"
	"time"
)

// SessionData is the server-side record behind a session cookie.
type SessionData struct {
	UserID int `json:"userId,omitempty"`
}

// SessionRepository defines the storage contract for cookie sessions.
// Implementations live in internal/core/repository (Core layer).
type SessionRepository interface {
	// Get returns the session record for id.
	// Returns (nil, nil) when the session does not exist or has expired.
	Get(ctx context.Context, id string) (*SessionData, error)

	// Set writes the session record with an absolute lifetime of ttl.
	Set(ctx context.Context, id string, data SessionData, ttl time.Duration) error

	// Destroy deletes the session record.
	Destroy(ctx context.Context, id string) error
}

// Session is the caller's session as seen by the Logic layer.
type Session interface {
	// UserID returns the authenticated user, if any.
	UserID() (int, bool)

	// SetUserID marks the session as authenticated as userID and persists it.
	SetUserID(ctx context.Context, userID int) error

	// Destroy removes the session entirely and tells the client to drop its cookie.
	Destroy(ctx context.Context) error
}
