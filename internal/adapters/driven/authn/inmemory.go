package authn

import (
	"context"
	"sync"

	"github.com/dbf/caddy-shib-remoteuser/internal/core/domain"
	"github.com/dbf/caddy-shib-remoteuser/internal/core/ports"
)

// InMemoryUserBackend is an in-memory implementation of UserBackend.
// Suitable for testing and development.
type InMemoryUserBackend struct {
	mu            sync.RWMutex
	createUnknown bool
	users         map[string]domain.User
}

// NewInMemoryUserBackend creates a new in-memory user backend.
func NewInMemoryUserBackend() *InMemoryUserBackend {
	return &InMemoryUserBackend{
		users: make(map[string]domain.User),
	}
}

// Add registers a user that Authenticate will match.
func (b *InMemoryUserBackend) Add(user domain.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[user.Username] = user
}

// SetCreateUnknown allows logins for unregistered usernames.
func (b *InMemoryUserBackend) SetCreateUnknown(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.createUnknown = v
}

// Authenticate returns the registered principal, or (nil, nil) for unknown
// usernames unless create-unknown is enabled.
func (b *InMemoryUserBackend) Authenticate(ctx context.Context, username string, attrs map[string]string) (*domain.User, error) {
	if username == "" {
		return nil, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if user, ok := b.users[username]; ok {
		u := user
		return &u, nil
	}
	if b.createUnknown {
		return &domain.User{
			Username:    username,
			Email:       attrs["mail"],
			DisplayName: attrs["displayName"],
		}, nil
	}
	return nil, nil
}

// Ensure InMemoryUserBackend implements ports.UserBackend
var _ ports.UserBackend = (*InMemoryUserBackend)(nil)
