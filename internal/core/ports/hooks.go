package ports

import (
	"context"

	"github.com/dbf/caddy-shib-remoteuser/internal/core/domain"
)

// LoginHooks are the extension points invoked after a successful login.
// Both are called exactly once per login, after session establishment and
// any group sync. The defaults do nothing; adopters inject their own
// implementation to provision profiles or decorate sessions without
// modifying the handler.
type LoginHooks interface {
	// MakeProfile lets adopters create or update an application profile
	// from the freshly parsed attributes.
	MakeProfile(ctx context.Context, user *domain.User, attrs map[string]string) error

	// SetupSession lets adopters add custom state to the new session.
	SetupSession(ctx context.Context, session *domain.LoginSession) error
}
