package caddy

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"time"

	"github.com/caddyserver/caddy/v2"
	"github.com/caddyserver/caddy/v2/caddyconfig/httpcaddyfile"
	"github.com/caddyserver/caddy/v2/modules/caddyhttp"
	"go.uber.org/zap"

	"github.com/dbf/caddy-shib-remoteuser/internal/core/domain"
	"github.com/dbf/caddy-shib-remoteuser/internal/core/ports"

	"github.com/dbf/caddy-shib-remoteuser/internal/adapters/driven/authn"
	"github.com/dbf/caddy-shib-remoteuser/internal/adapters/driven/hooks"
	"github.com/dbf/caddy-shib-remoteuser/internal/adapters/driven/metrics"
	"github.com/dbf/caddy-shib-remoteuser/internal/adapters/driven/session"
	"github.com/dbf/caddy-shib-remoteuser/internal/adapters/driven/userstore"
)

func init() {
	caddy.RegisterModule(ShibRemoteUser{})
	httpcaddyfile.RegisterHandlerDirective("shib_remote_user", ParseCaddyfile)
}

// userContextKey is the context key for storing the authenticated principal.
type userContextKey struct{}

// GetUser retrieves the authenticated principal from the request context.
// Returns nil if the request is anonymous.
func GetUser(r *http.Request) *domain.User {
	user, _ := r.Context().Value(userContextKey{}).(*domain.User)
	return user
}

// ShibRemoteUser is a Caddy HTTP handler module that turns identity headers
// injected by an upstream Shibboleth SP into an authenticated session.
type ShibRemoteUser struct {
	// Configuration embedded directly
	Config

	// Runtime state (not serialized)
	rules           []domain.AttributeRule
	splitter        *domain.GroupSplitter
	cleanUsername   domain.Transform
	backend         ports.UserBackend
	groupStore      ports.GroupStore
	sessionStore    ports.SessionStore
	loginHooks      ports.LoginHooks
	sessionDuration time.Duration
	bunStore        *userstore.BunGroupStore
	logger          *zap.Logger
	metricsRecorder ports.MetricsRecorder
}

// CaddyModule returns the Caddy module information.
func (ShibRemoteUser) CaddyModule() caddy.ModuleInfo {
	return caddy.ModuleInfo{
		ID:  "http.handlers.shib_remote_user",
		New: func() caddy.Module { return new(ShibRemoteUser) },
	}
}

// Provision sets up the module.
func (s *ShibRemoteUser) Provision(ctx caddy.Context) error {
	s.logger = ctx.Logger()
	s.logger.Debug("provisioning shibboleth remote-user handler")

	s.Config.SetDefaults()
	s.initMetricsRecorder()

	// Compile attribute rules, resolving transform names once.
	s.rules = make([]domain.AttributeRule, 0, len(s.Attributes))
	for _, rule := range s.Attributes {
		transform, err := domain.LookupTransform(rule.Transform)
		if err != nil {
			return fmt.Errorf("attribute %s: %w", rule.Header, err)
		}
		s.rules = append(s.rules, domain.AttributeRule{
			Header:    rule.Header,
			Name:      rule.Name,
			Required:  rule.Required,
			Transform: transform,
		})
	}

	cleanUsername, err := domain.LookupTransform(s.UsernameTransform)
	if err != nil {
		return fmt.Errorf("username_transform: %w", err)
	}
	s.cleanUsername = cleanUsername

	splitter, err := domain.CompileGroupDelimiters(s.GroupDelimiters)
	if err != nil {
		return fmt.Errorf("group_delimiters: %w", err)
	}
	s.splitter = splitter

	// Authentication backend: file-backed directory or trust the header.
	if s.UsersFile != "" {
		backend := authn.NewFileUserBackend(s.UsersFile, s.logger)
		if err := backend.Refresh(ctx); err != nil {
			return fmt.Errorf("load users file: %w", err)
		}
		s.backend = backend
	} else {
		s.backend = authn.NewTrustedHeaderBackend()
	}

	// Group store, only needed when group sync is on.
	if s.SyncGroups {
		switch s.UserStoreDriver {
		case "sqlite":
			store, err := userstore.OpenSQLite(s.UserStoreDSN)
			if err != nil {
				return fmt.Errorf("open sqlite user store: %w", err)
			}
			if err := store.Init(ctx); err != nil {
				return fmt.Errorf("init user store schema: %w", err)
			}
			s.bunStore = store
			s.groupStore = store
		case "postgres":
			store, err := userstore.OpenPostgres(s.UserStoreDSN)
			if err != nil {
				return fmt.Errorf("open postgres user store: %w", err)
			}
			if err := store.Init(ctx); err != nil {
				return fmt.Errorf("init user store schema: %w", err)
			}
			s.bunStore = store
			s.groupStore = store
		default:
			s.logger.Warn("sync_groups enabled without a user store; memberships are kept in process memory")
			s.groupStore = userstore.NewInMemoryGroupStore()
		}
	}

	// Session store: signing key from file, or ephemeral for development.
	var privateKey *rsa.PrivateKey
	if s.KeyFile != "" {
		privateKey, err = session.LoadPrivateKey(s.KeyFile)
		if err != nil {
			return fmt.Errorf("load session signing key: %w", err)
		}
	} else {
		privateKey, err = session.GenerateEphemeralKey()
		if err != nil {
			return fmt.Errorf("generate ephemeral session key: %w", err)
		}
		s.logger.Warn("no key_file configured; sessions will not survive a restart")
	}

	duration, err := time.ParseDuration(s.SessionDuration)
	if err != nil {
		return fmt.Errorf("parse session duration: %w", err)
	}
	s.sessionDuration = duration
	s.sessionStore = session.NewCookieSessionStore(privateKey, duration)

	if s.loginHooks == nil {
		s.loginHooks = hooks.NewNoopLoginHooks()
	}

	s.logger.Info("shibboleth remote-user handler provisioned",
		zap.String("remote_user_header", s.RemoteUserHeader),
		zap.Int("attribute_rules", len(s.rules)),
		zap.Bool("sync_groups", s.SyncGroups),
		zap.Strings("group_headers", s.GroupHeaders))

	return nil
}

// Validate ensures the module's configuration is valid.
func (s *ShibRemoteUser) Validate() error {
	return s.Config.Validate()
}

// Cleanup releases the user store, if one was opened.
func (s *ShibRemoteUser) Cleanup() error {
	if s.bunStore != nil {
		return s.bunStore.Close()
	}
	return nil
}

// ServeHTTP implements caddyhttp.MiddlewareHandler.
func (s *ShibRemoteUser) ServeHTTP(w http.ResponseWriter, r *http.Request, next caddyhttp.Handler) error {
	rc := s.restoreRequestContext(r)

	if err := s.authenticate(r.Context(), rc); err != nil {
		// The partial attribute map was written into the session before
		// the error was raised; persist it so diagnostics can see what
		// the SP asserted.
		s.persistSession(w, r, rc)
		return caddyhttp.Error(statusForError(err), err)
	}

	s.persistSession(w, r, rc)

	if rc.User.Authenticated && rc.User.User != nil {
		ctx := context.WithValue(r.Context(), userContextKey{}, rc.User.User)
		r = r.WithContext(ctx)
	}

	return next.ServeHTTP(w, r)
}

// restoreRequestContext rebuilds the per-request state from the session
// cookie. This is the session-restoration step the authentication contract
// requires to have run: it always populates the current-user slot, with an
// anonymous state when no valid session exists.
func (s *ShibRemoteUser) restoreRequestContext(r *http.Request) *ports.RequestContext {
	sess := domain.NewAnonymousSession()
	state := &ports.UserState{}

	if cookie, err := r.Cookie(s.SessionCookieName); err == nil && cookie.Value != "" {
		if restored, err := s.sessionStore.Decode(cookie.Value); err == nil {
			sess = restored
			if restored.Authenticated && restored.Username != "" {
				state.User = &domain.User{Username: restored.Username}
				state.Authenticated = true
			}
		}
	}

	return &ports.RequestContext{
		Headers: r.Header,
		User:    state,
		Session: sess,
	}
}

// persistSession re-issues the session cookie if the session was mutated.
// An untouched session keeps its existing cookie; a login therefore rotates
// the token (fresh token ID) while the fast path leaves it alone.
func (s *ShibRemoteUser) persistSession(w http.ResponseWriter, r *http.Request, rc *ports.RequestContext) {
	if !rc.SessionDirty {
		return
	}

	token, err := s.sessionStore.Issue(rc.Session)
	if err != nil {
		s.getLogger().Error("failed to issue session token", zap.Error(err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.sessionDuration / time.Second),
	})
}

// statusForError maps an authentication failure to an HTTP status.
func statusForError(err error) int {
	if appErr, ok := err.(*domain.AppError); ok {
		return appErr.Code.HTTPStatus()
	}
	// Validation errors and anything unexpected are server-side faults:
	// a partial identity assertion must not be downgraded to anonymous.
	return http.StatusInternalServerError
}

// initMetricsRecorder sets up the metrics recorder per configuration.
func (s *ShibRemoteUser) initMetricsRecorder() {
	if s.metricsRecorder != nil {
		return
	}
	if s.MetricsEnabled {
		s.metricsRecorder = metrics.NewPrometheusMetricsRecorder()
	} else {
		s.metricsRecorder = metrics.NewNoopMetricsRecorder()
	}
}

// getLogger returns the logger, or a no-op logger if not set.
// This allows tests to run without calling Provision().
func (s *ShibRemoteUser) getLogger() *zap.Logger {
	if s.logger != nil {
		return s.logger
	}
	return zap.NewNop()
}

// getMetricsRecorder returns the metrics recorder, or a no-op recorder if
// not set. This allows tests to run without calling Provision().
func (s *ShibRemoteUser) getMetricsRecorder() ports.MetricsRecorder {
	if s.metricsRecorder != nil {
		return s.metricsRecorder
	}
	return metrics.NewNoopMetricsRecorder()
}

// Interface guards
var (
	_ caddy.Provisioner           = (*ShibRemoteUser)(nil)
	_ caddy.Validator             = (*ShibRemoteUser)(nil)
	_ caddy.CleanerUpper          = (*ShibRemoteUser)(nil)
	_ caddyhttp.MiddlewareHandler = (*ShibRemoteUser)(nil)
)
