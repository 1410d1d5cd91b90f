package domain

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// SessionKeyShibAttributes is the session key under which the parsed
// attribute map is stored for downstream application code.
const SessionKeyShibAttributes = "shib"

// HeaderGetter is the read-only view of incoming request headers.
// http.Header satisfies it; tests use a plain map-backed implementation.
type HeaderGetter interface {
	Get(name string) string
}

// HeaderMap is a map-backed HeaderGetter with exact-name lookup.
// Useful for tests and non-HTTP callers.
type HeaderMap map[string]string

// Get returns the value for name, or "" if absent.
func (m HeaderMap) Get(name string) string {
	return m[name]
}

// Transform rewrites a single attribute value. Transforms must be pure
// functions safe for concurrent use.
type Transform func(string) string

// AttributeRule maps one upstream header to an internal attribute name.
type AttributeRule struct {
	// Header is the incoming header name populated by the Shibboleth SP.
	Header string

	// Name is the internal attribute name the value is stored under.
	Name string

	// Required marks the attribute as mandatory: parsing reports an error
	// when the header is absent.
	Required bool

	// Transform is applied to the (decoded) value before storing.
	// Nil means identity.
	Transform Transform
}

// ParseAttributes builds the internal attribute map from request headers.
//
// For each rule, the header value is looked up; if present it is optionally
// percent-decoded, transformed, and stored under the rule's internal name.
// If absent and the rule is required, the missing flag is set but processing
// continues, so the returned map is maximally complete for diagnostics.
// The returned map is never nil.
func ParseAttributes(headers HeaderGetter, rules []AttributeRule, unquote bool) (map[string]string, bool) {
	attrs := make(map[string]string, len(rules))
	missing := false

	for _, rule := range rules {
		value := headers.Get(rule.Header)
		if value == "" {
			if rule.Required {
				missing = true
			}
			continue
		}
		if unquote {
			value = Unquote(value)
		}
		if rule.Transform != nil {
			value = rule.Transform(value)
		}
		attrs[rule.Name] = value
	}

	return attrs, missing
}

// Unquote percent-decodes a header value. Malformed escape sequences leave
// the value unchanged rather than failing the request; the upstream SP is
// trusted but not assumed bug-free. A "+" is not decoded to a space.
func Unquote(s string) string {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// transformRegistry maps transformer names to functions. Built-ins are
// registered below; adopters add their own via RegisterTransform before
// provisioning.
var (
	transformMu       sync.RWMutex
	transformRegistry = map[string]Transform{
		"identity":   func(s string) string { return s },
		"lowercase":  strings.ToLower,
		"uppercase":  strings.ToUpper,
		"trim_space": strings.TrimSpace,
		"localpart":  LocalPart,
	}
)

// LocalPart strips the scope from a scoped value, e.g.
// "jdoe@example.edu" becomes "jdoe". Unscoped values pass through unchanged.
func LocalPart(s string) string {
	if i := strings.IndexByte(s, '@'); i >= 0 {
		return s[:i]
	}
	return s
}

// RegisterTransform registers a named transformer for use in attribute rules.
// Registering nil or an empty name panics; re-registering a name replaces it.
func RegisterTransform(name string, fn Transform) {
	if name == "" || fn == nil {
		panic("domain: RegisterTransform requires a name and a function")
	}
	transformMu.Lock()
	defer transformMu.Unlock()
	transformRegistry[name] = fn
}

// LookupTransform resolves a transformer name. The empty name resolves to
// identity. Unknown names return an error so misconfigurations surface at
// provision time, not per request.
func LookupTransform(name string) (Transform, error) {
	if name == "" {
		name = "identity"
	}
	transformMu.RLock()
	defer transformMu.RUnlock()
	fn, ok := transformRegistry[name]
	if !ok {
		return nil, fmt.Errorf("unknown attribute transform %q", name)
	}
	return fn, nil
}
