package caddy

import (
	"fmt"
	"time"

	"github.com/dbf/caddy-shib-remoteuser/internal/core/domain"
)

// Config holds the configuration for the Shibboleth remote-user plugin.
type Config struct {
	// RemoteUserHeader is the header carrying the asserted username,
	// populated by the trusted upstream Shibboleth SP.
	// Defaults to "X-Remote-User".
	RemoteUserHeader string `json:"remote_user_header,omitempty"`

	// Attributes maps incoming headers to internal attribute names.
	// The parsed map is stored in the session under the "shib" key.
	Attributes []AttributeRuleConfig `json:"attributes,omitempty"`

	// UnquoteAttributes percent-decodes all header values (username,
	// attributes, and group lists) before use. Defaults to false.
	UnquoteAttributes bool `json:"unquote_attributes,omitempty"`

	// GroupHeaders lists the headers containing group lists.
	GroupHeaders []string `json:"group_headers,omitempty"`

	// GroupDelimiters are regular-expression alternatives used to split
	// group header values in a single pass. Defaults to [";"].
	GroupDelimiters []string `json:"group_delimiters,omitempty"`

	// SyncGroups enables group reconciliation on login: the user's
	// persisted memberships are made exactly equal to the asserted list.
	SyncGroups bool `json:"sync_groups,omitempty"`

	// UsernameTransform is an optional named transform applied to the
	// decoded username before comparison and authentication,
	// e.g. "localpart" or "lowercase".
	UsernameTransform string `json:"username_transform,omitempty"`

	// UsersFile is the path to a local user directory (JSON/YAML).
	// When set, only listed users (or any user, if the file enables
	// create_unknown) can log in. Without it every asserted identity is
	// accepted.
	UsersFile string `json:"users_file,omitempty"`

	// UserStoreDriver selects the SQL backend for group persistence:
	// "sqlite" or "postgres". Empty keeps memberships in process memory,
	// which is only useful for development.
	UserStoreDriver string `json:"user_store_driver,omitempty"`

	// UserStoreDSN is the database DSN for the selected driver.
	UserStoreDSN string `json:"user_store_dsn,omitempty"`

	// SessionCookieName is the name of the session cookie.
	// Defaults to "shib_session".
	SessionCookieName string `json:"session_cookie_name,omitempty"`

	// SessionDuration is how long sessions last (e.g., "8h").
	// Defaults to "8h" if not specified.
	SessionDuration string `json:"session_duration,omitempty"`

	// KeyFile is the path to the RSA private key (PEM) used to sign
	// session tokens. Without it an ephemeral key is generated at startup
	// and sessions do not survive restarts.
	KeyFile string `json:"key_file,omitempty"`

	// MetricsEnabled enables Prometheus metrics exposition.
	// Metrics are exposed via Caddy's admin API /metrics endpoint.
	// Defaults to false.
	MetricsEnabled bool `json:"metrics_enabled,omitempty"`
}

// AttributeRuleConfig maps one upstream header to an internal attribute name.
type AttributeRuleConfig struct {
	// Header is the incoming header name, e.g. "X-Shib-Mail".
	Header string `json:"header"`

	// Name is the internal attribute name, e.g. "mail".
	Name string `json:"name"`

	// Required marks the attribute as mandatory; a request asserting an
	// identity without it fails with a validation error.
	Required bool `json:"required,omitempty"`

	// Transform is a registered transform name applied to the value.
	// Empty means identity.
	Transform string `json:"transform,omitempty"`
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	for i, rule := range c.Attributes {
		if rule.Header == "" {
			return fmt.Errorf("attributes[%d]: header is required", i)
		}
		if rule.Name == "" {
			return fmt.Errorf("attributes[%d]: name is required", i)
		}
		if _, err := domain.LookupTransform(rule.Transform); err != nil {
			return fmt.Errorf("attributes[%d]: %w", i, err)
		}
	}

	if _, err := domain.LookupTransform(c.UsernameTransform); err != nil {
		return fmt.Errorf("username_transform: %w", err)
	}

	if _, err := domain.CompileGroupDelimiters(c.GroupDelimiters); err != nil {
		return fmt.Errorf("group_delimiters: %w", err)
	}

	switch c.UserStoreDriver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("user_store_driver must be \"sqlite\" or \"postgres\", got %q", c.UserStoreDriver)
	}
	if c.UserStoreDriver != "" && c.UserStoreDSN == "" {
		return fmt.Errorf("user_store_dsn is required when user_store_driver is set")
	}
	if c.UserStoreDSN != "" && c.UserStoreDriver == "" {
		return fmt.Errorf("user_store_driver is required when user_store_dsn is set")
	}

	if c.SessionDuration != "" {
		if _, err := time.ParseDuration(c.SessionDuration); err != nil {
			return fmt.Errorf("invalid session duration %q: %w", c.SessionDuration, err)
		}
	}

	return nil
}

// SetDefaults applies default values to unset configuration fields.
func (c *Config) SetDefaults() {
	if c.RemoteUserHeader == "" {
		c.RemoteUserHeader = "X-Remote-User"
	}
	if len(c.GroupDelimiters) == 0 {
		c.GroupDelimiters = []string{";"}
	}
	if c.SessionCookieName == "" {
		c.SessionCookieName = "shib_session"
	}
	if c.SessionDuration == "" {
		c.SessionDuration = "8h"
	}
}
