package caddy

import (
	"context"

	"go.uber.org/zap"

	"github.com/dbf/caddy-shib-remoteuser/internal/core/domain"
	"github.com/dbf/caddy-shib-remoteuser/internal/core/groupsync"
	"github.com/dbf/caddy-shib-remoteuser/internal/core/ports"
)

// authenticate runs the header-based authentication flow for one request.
//
// It reads the remote-user header, establishes a login when a trusted
// identity is present, and reconciles group memberships. A request without
// the header is left untouched; a request whose header matches the already
// authenticated user takes the fast path and mutates nothing.
func (s *ShibRemoteUser) authenticate(ctx context.Context, rc *ports.RequestContext) error {
	if rc.User == nil {
		return domain.ConfigError("session restoration must run before header authentication")
	}

	username := rc.Headers.Get(s.RemoteUserHeader)
	if s.UnquoteAttributes {
		username = domain.Unquote(username)
	}
	username = s.cleanUsername(username)
	if username == "" {
		// No asserted identity. Anonymous requests pass through and an
		// existing session keeps whatever state it had.
		return nil
	}

	// Fast path: the session already belongs to this principal.
	if rc.User.Authenticated && rc.User.User != nil && rc.User.User.Username == username {
		return nil
	}

	attrs, missing := domain.ParseAttributes(rc.Headers, s.rules, s.UnquoteAttributes)
	attrs["username"] = username

	// The parsed map is stored even when incomplete so the session shows
	// exactly what the SP asserted.
	rc.SetSessionValue(domain.SessionKeyShibAttributes, attrs)

	if missing {
		s.getMetricsRecorder().RecordValidationError()
		return domain.NewValidationError(attrs)
	}

	user, err := s.backend.Authenticate(ctx, username, attrs)
	if err != nil {
		return domain.BackendError("authentication backend failed", err)
	}
	if user == nil {
		s.getMetricsRecorder().RecordLogin(false)
		s.getLogger().Debug("backend rejected asserted identity", zap.String("username", username))
		return nil
	}

	s.login(rc, user)
	s.getMetricsRecorder().RecordLogin(true)

	if s.SyncGroups && s.groupStore != nil {
		desired := domain.ParseGroups(rc.Headers, s.GroupHeaders, s.splitter, s.UnquoteAttributes)
		added, removed, err := groupsync.Sync(ctx, s.groupStore, user.Username, desired)
		if err != nil {
			return domain.BackendError("group sync failed", err)
		}
		s.getMetricsRecorder().RecordGroupSync(len(added), len(removed))
		if len(added) > 0 || len(removed) > 0 {
			s.getLogger().Info("reconciled group memberships",
				zap.String("username", user.Username),
				zap.Strings("added", added),
				zap.Strings("removed", removed))
		}
	}

	if err := s.loginHooks.MakeProfile(ctx, user, attrs); err != nil {
		return domain.BackendError("profile hook failed", err)
	}
	if err := s.loginHooks.SetupSession(ctx, rc.Session); err != nil {
		return domain.BackendError("session hook failed", err)
	}

	return nil
}

// login binds the principal to the request and its session. The session is
// marked dirty so a fresh token is issued, replacing any pre-login cookie.
// A session that belonged to a different user is flushed down to the freshly
// parsed attributes before the new identity is bound.
func (s *ShibRemoteUser) login(rc *ports.RequestContext, user *domain.User) {
	if rc.Session.Username != "" && rc.Session.Username != user.Username {
		attrs, ok := rc.Session.Value(domain.SessionKeyShibAttributes)
		rc.Session.Values = make(map[string]any)
		if ok {
			rc.Session.SetValue(domain.SessionKeyShibAttributes, attrs)
		}
	}
	rc.User.User = user
	rc.User.Authenticated = true
	rc.Session.Username = user.Username
	rc.Session.Authenticated = true
	rc.SessionDirty = true
	s.getLogger().Info("authenticated via remote-user header", zap.String("username", user.Username))
}
