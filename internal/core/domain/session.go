package domain

import "time"

// LoginSession holds per-visitor session state. Anonymous requests carry a
// session too: the parsed attribute map is stored under
// SessionKeyShibAttributes even when authentication does not complete, so
// downstream consumers can inspect what was seen.
type LoginSession struct {
	// Username is the authenticated username, or "" for anonymous sessions.
	Username string

	// Authenticated reports whether a login was established.
	Authenticated bool

	// Values is the session value store, keyed by string. Values must be
	// JSON-serializable. The parsed Shibboleth attributes live under
	// SessionKeyShibAttributes.
	Values map[string]any

	// TokenID identifies the issued token. A login issues a fresh TokenID,
	// rotating the session as a fixation defense.
	TokenID string

	// IssuedAt is when the session was created.
	IssuedAt time.Time

	// ExpiresAt is when the session expires.
	ExpiresAt time.Time
}

// NewAnonymousSession creates an empty, unauthenticated session.
func NewAnonymousSession() *LoginSession {
	return &LoginSession{Values: make(map[string]any)}
}

// SetValue stores a value in the session value store.
func (s *LoginSession) SetValue(key string, value any) {
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	s.Values[key] = value
}

// Value retrieves a value from the session value store.
func (s *LoginSession) Value(key string) (any, bool) {
	v, ok := s.Values[key]
	return v, ok
}

// ShibAttributes returns the parsed attribute map stored under
// SessionKeyShibAttributes, coercing from the generic representation a
// serialization round trip produces. Returns nil if no map was stored.
func (s *LoginSession) ShibAttributes() map[string]string {
	v, ok := s.Values[SessionKeyShibAttributes]
	if !ok {
		return nil
	}
	switch m := v.(type) {
	case map[string]string:
		return m
	case map[string]any:
		attrs := make(map[string]string, len(m))
		for k, val := range m {
			if str, ok := val.(string); ok {
				attrs[k] = str
			}
		}
		return attrs
	default:
		return nil
	}
}
