package ports

import (
	"errors"

	"github.com/dbf/caddy-shib-remoteuser/internal/core/domain"
)

// SessionStore is the port interface for session persistence.
type SessionStore interface {
	// Issue creates a signed token for the session, assigning a fresh
	// token ID. Issuing after a login rotates the session identifier.
	Issue(session *domain.LoginSession) (string, error)

	// Decode validates a token and returns the session it carries.
	// Returns ErrSessionNotFound if the token is invalid or expired.
	Decode(token string) (*domain.LoginSession, error)
}

// ErrSessionNotFound is returned when a session token is invalid or expired.
var ErrSessionNotFound = errors.New("session not found")
