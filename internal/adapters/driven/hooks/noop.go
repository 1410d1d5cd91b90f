package hooks

import (
	"context"

	"github.com/dbf/caddy-shib-remoteuser/internal/core/domain"
	"github.com/dbf/caddy-shib-remoteuser/internal/core/ports"
)

// NoopLoginHooks is the default LoginHooks implementation. All methods are
// safe to call and do nothing; correctness never depends on them.
type NoopLoginHooks struct{}

// NewNoopLoginHooks creates a new no-op hook set.
func NewNoopLoginHooks() *NoopLoginHooks {
	return &NoopLoginHooks{}
}

// MakeProfile is a no-op.
func (h *NoopLoginHooks) MakeProfile(ctx context.Context, user *domain.User, attrs map[string]string) error {
	return nil
}

// SetupSession is a no-op.
func (h *NoopLoginHooks) SetupSession(ctx context.Context, session *domain.LoginSession) error {
	return nil
}

// Ensure NoopLoginHooks implements ports.LoginHooks
var _ ports.LoginHooks = (*NoopLoginHooks)(nil)
