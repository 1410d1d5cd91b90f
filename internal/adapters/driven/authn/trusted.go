package authn

import (
	"context"

	"github.com/dbf/caddy-shib-remoteuser/internal/core/domain"
	"github.com/dbf/caddy-shib-remoteuser/internal/core/ports"
)

// TrustedHeaderBackend accepts every non-empty asserted username and builds
// the principal from the parsed attributes. This matches the conventional
// remote-user deployment where the upstream SP is the sole authority and the
// application keeps no user list of its own.
type TrustedHeaderBackend struct{}

// NewTrustedHeaderBackend creates a backend that trusts the asserted identity.
func NewTrustedHeaderBackend() *TrustedHeaderBackend {
	return &TrustedHeaderBackend{}
}

// Authenticate returns a principal for any non-empty username.
func (b *TrustedHeaderBackend) Authenticate(ctx context.Context, username string, attrs map[string]string) (*domain.User, error) {
	if username == "" {
		return nil, nil
	}
	return &domain.User{
		Username:    username,
		Email:       attrs["mail"],
		DisplayName: attrs["displayName"],
	}, nil
}

// Ensure TrustedHeaderBackend implements ports.UserBackend
var _ ports.UserBackend = (*TrustedHeaderBackend)(nil)
