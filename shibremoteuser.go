// Package shibremoteuser provides a Caddy v2 plugin that authenticates
// requests from identity headers injected by a trusted upstream Shibboleth
// Service Provider. It maps attribute headers into the session, establishes
// a signed cookie session, and reconciles group memberships on login.
//
// Importing this package registers the "shib_remote_user" HTTP handler
// directive with Caddy.
package shibremoteuser

import (
	"net/http"

	"github.com/caddyserver/caddy/v2/caddyconfig/httpcaddyfile"
	"github.com/caddyserver/caddy/v2/modules/caddyhttp"

	"github.com/dbf/caddy-shib-remoteuser/internal/adapters/driving/caddy"
	"github.com/dbf/caddy-shib-remoteuser/internal/core/domain"
)

const Version = "0.3.0"

// Re-export the handler and its configuration from the adapter.
type ShibRemoteUser = caddy.ShibRemoteUser
type Config = caddy.Config
type AttributeRuleConfig = caddy.AttributeRuleConfig

// GetUser retrieves the authenticated principal from a request handled by
// the plugin, for use by downstream handlers in the same process.
func GetUser(r *http.Request) *domain.User {
	return caddy.GetUser(r)
}

// ParseCaddyfile unmarshals the shib_remote_user directive.
func ParseCaddyfile(h httpcaddyfile.Helper) (caddyhttp.MiddlewareHandler, error) {
	return caddy.ParseCaddyfile(h)
}
