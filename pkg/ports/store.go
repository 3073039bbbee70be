package ports

import (
	"context"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
)

// SessionStore defines the interface for persisting customer sessions.
// Saves are last-write-wins; callers serialize mutations through the session lock.
type SessionStore interface {
	// Save persists the session for a given session ID.
	Save(ctx context.Context, sessionID string, session *domain.Session) error

	// Load retrieves the session for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist and
	// domain.ErrCorruptSession if the stored record cannot be decoded.
	Load(ctx context.Context, sessionID string) (*domain.Session, error)

	// Delete removes the session for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of the stored sessions.
	List(ctx context.Context) ([]string, error)
}

// Claimer records message ids so each one is processed at most once.
type Claimer interface {
	// Claim returns true the first time id is seen within ttl and false afterwards.
	Claim(ctx context.Context, id string) (bool, error)
}
