package ports

import (
	"github.com/dbf/caddy-shib-remoteuser/internal/core/domain"
)

// UserState is the mutable current-user slot on a request. A non-nil
// UserState with a nil User is an anonymous visitor; a nil *UserState means
// the session-restoration step never ran, which is a deployment error.
type UserState struct {
	// User is the current principal, or nil for anonymous.
	User *domain.User

	// Authenticated reports whether User was established by a login.
	Authenticated bool
}

// RequestContext is the per-request bag the authentication handler reads and
// mutates. It is owned by the host framework for the duration of one request.
type RequestContext struct {
	// Headers is the read-only view of the incoming request headers.
	Headers domain.HeaderGetter

	// User is the current-user slot, populated by the upstream
	// session-restoration step before authentication runs.
	User *UserState

	// Session is the per-visitor session the handler writes attribute and
	// login state into.
	Session *domain.LoginSession

	// SessionDirty reports whether Session was mutated and must be
	// re-persisted by the host adapter.
	SessionDirty bool
}

// SetSessionValue writes into the session value store and marks the session
// for re-persistence.
func (rc *RequestContext) SetSessionValue(key string, value any) {
	rc.Session.SetValue(key, value)
	rc.SessionDirty = true
}
