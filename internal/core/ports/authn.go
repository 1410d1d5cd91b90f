package ports

import (
	"context"

	"github.com/dbf/caddy-shib-remoteuser/internal/core/domain"
)

// UserBackend is the port interface for the pluggable authentication backend.
type UserBackend interface {
	// Authenticate verifies the asserted username together with the parsed
	// attribute map and returns the matching principal. A (nil, nil) return
	// means "no match": the request proceeds unauthenticated. A non-nil
	// error is fatal for the request.
	Authenticate(ctx context.Context, username string, attrs map[string]string) (*domain.User, error)
}
