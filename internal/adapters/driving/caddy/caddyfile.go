package caddy

import (
	"strconv"

	"github.com/caddyserver/caddy/v2/caddyconfig/caddyfile"
	"github.com/caddyserver/caddy/v2/caddyconfig/httpcaddyfile"
	"github.com/caddyserver/caddy/v2/modules/caddyhttp"
)

// ParseCaddyfile unmarshals tokens from h into a new ShibRemoteUser.
func ParseCaddyfile(h httpcaddyfile.Helper) (caddyhttp.MiddlewareHandler, error) {
	var s ShibRemoteUser
	err := s.UnmarshalCaddyfile(h.Dispenser)
	return &s, err
}

// UnmarshalCaddyfile implements caddyfile.Unmarshaler. Syntax:
//
//	shib_remote_user {
//	    remote_user_header <name>
//	    unquote_attributes
//	    attribute <header> <name> [required] [transform <name>]
//	    group_headers <header...>
//	    group_delimiters <pattern...>
//	    sync_groups
//	    users_file <path>
//	    user_store <driver> <dsn>
//	    username_transform <name>
//	    session_cookie_name <name>
//	    session_duration <duration>
//	    key_file <path>
//	    metrics <enabled|off>
//	}
func (s *ShibRemoteUser) UnmarshalCaddyfile(d *caddyfile.Dispenser) error {
	for d.Next() {
		if d.NextArg() {
			return d.ArgErr()
		}

		for d.NextBlock(0) {
			switch d.Val() {
			case "remote_user_header":
				if !d.NextArg() {
					return d.ArgErr()
				}
				s.RemoteUserHeader = d.Val()

			case "unquote_attributes":
				if d.NextArg() {
					return d.ArgErr()
				}
				s.UnquoteAttributes = true

			case "attribute":
				if !d.NextArg() {
					return d.ArgErr()
				}
				rule := AttributeRuleConfig{Header: d.Val()}
				if !d.NextArg() {
					return d.ArgErr()
				}
				rule.Name = d.Val()
				for d.NextArg() {
					switch d.Val() {
					case "required":
						rule.Required = true
					case "transform":
						if !d.NextArg() {
							return d.ArgErr()
						}
						rule.Transform = d.Val()
					default:
						return d.Errf("unknown attribute option: %s", d.Val())
					}
				}
				s.Attributes = append(s.Attributes, rule)

			case "group_headers":
				args := d.RemainingArgs()
				if len(args) == 0 {
					return d.ArgErr()
				}
				s.GroupHeaders = append(s.GroupHeaders, args...)

			case "group_delimiters":
				args := d.RemainingArgs()
				if len(args) == 0 {
					return d.ArgErr()
				}
				s.GroupDelimiters = append(s.GroupDelimiters, args...)

			case "sync_groups":
				if d.NextArg() {
					return d.ArgErr()
				}
				s.SyncGroups = true

			case "users_file":
				if !d.NextArg() {
					return d.ArgErr()
				}
				s.UsersFile = d.Val()

			case "user_store":
				if !d.NextArg() {
					return d.ArgErr()
				}
				s.UserStoreDriver = d.Val()
				if !d.NextArg() {
					return d.ArgErr()
				}
				s.UserStoreDSN = d.Val()

			case "username_transform":
				if !d.NextArg() {
					return d.ArgErr()
				}
				s.UsernameTransform = d.Val()

			case "session_cookie_name":
				if !d.NextArg() {
					return d.ArgErr()
				}
				s.SessionCookieName = d.Val()

			case "session_duration":
				if !d.NextArg() {
					return d.ArgErr()
				}
				s.SessionDuration = d.Val()

			case "key_file":
				if !d.NextArg() {
					return d.ArgErr()
				}
				s.KeyFile = d.Val()

			case "metrics":
				if !d.NextArg() {
					return d.ArgErr()
				}
				enabled, err := parseMetricsArg(d.Val())
				if err != nil {
					return d.Errf("metrics: %v", err)
				}
				s.MetricsEnabled = enabled

			default:
				return d.Errf("unknown subdirective: %s", d.Val())
			}
		}
	}
	return nil
}

func parseMetricsArg(v string) (bool, error) {
	switch v {
	case "enabled", "on":
		return true, nil
	case "off", "disabled":
		return false, nil
	}
	return strconv.ParseBool(v)
}

// Interface guard
var _ caddyfile.Unmarshaler = (*ShibRemoteUser)(nil)
