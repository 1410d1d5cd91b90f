package shibremoteuser

import (
	"github.com/dbf/caddy-shib-remoteuser/internal/adapters/driven/authn"
	"github.com/dbf/caddy-shib-remoteuser/internal/adapters/driven/hooks"
	"github.com/dbf/caddy-shib-remoteuser/internal/adapters/driven/metrics"
	"github.com/dbf/caddy-shib-remoteuser/internal/adapters/driven/session"
	"github.com/dbf/caddy-shib-remoteuser/internal/adapters/driven/userstore"
)

// Re-export the driven adapters so adopters and integration tests can wire
// the plugin without reaching into internal packages.
type CookieSessionStore = session.CookieSessionStore
type FileUserBackend = authn.FileUserBackend
type InMemoryUserBackend = authn.InMemoryUserBackend
type TrustedHeaderBackend = authn.TrustedHeaderBackend
type InMemoryGroupStore = userstore.InMemoryGroupStore
type BunGroupStore = userstore.BunGroupStore

var (
	NewCookieSessionStore = session.NewCookieSessionStore
	LoadPrivateKey        = session.LoadPrivateKey
	GenerateEphemeralKey  = session.GenerateEphemeralKey

	NewFileUserBackend      = authn.NewFileUserBackend
	NewInMemoryUserBackend  = authn.NewInMemoryUserBackend
	NewTrustedHeaderBackend = authn.NewTrustedHeaderBackend

	NewInMemoryGroupStore = userstore.NewInMemoryGroupStore
	OpenSQLite            = userstore.OpenSQLite
	OpenPostgres          = userstore.OpenPostgres
	NewBunGroupStore      = userstore.NewBunGroupStore

	NewNoopLoginHooks = hooks.NewNoopLoginHooks

	NewPrometheusMetricsRecorder = metrics.NewPrometheusMetricsRecorder
	NewNoopMetricsRecorder       = metrics.NewNoopMetricsRecorder
)
