package session

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dbf/caddy-shib-remoteuser/internal/core/domain"
	"github.com/dbf/caddy-shib-remoteuser/internal/core/ports"
)

// CookieSessionStore implements SessionStore using JWT tokens.
// Tokens are signed with RSA (RS256) and are stateless. Issue always mints a
// fresh token ID, so logging a user in rotates the session identifier: an
// attacker-supplied pre-login token never survives authentication.
type CookieSessionStore struct {
	privateKey *rsa.PrivateKey
	duration   time.Duration
}

// sessionClaims defines the JWT claims structure for sessions.
type sessionClaims struct {
	jwt.RegisteredClaims
	Authenticated bool           `json:"authed"`
	Values        map[string]any `json:"vals,omitempty"`
}

// NewCookieSessionStore creates a new JWT-based session store.
func NewCookieSessionStore(privateKey *rsa.PrivateKey, duration time.Duration) *CookieSessionStore {
	return &CookieSessionStore{
		privateKey: privateKey,
		duration:   duration,
	}
}

// Issue generates a signed token from the session, assigning a fresh token
// ID and refreshing the validity window.
func (s *CookieSessionStore) Issue(session *domain.LoginSession) (string, error) {
	now := time.Now()
	session.TokenID = uuid.NewString()
	session.IssuedAt = now
	session.ExpiresAt = now.Add(s.duration)

	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Username,
			ID:        session.TokenID,
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
		Authenticated: session.Authenticated,
		Values:        session.Values,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(s.privateKey)
}

// Decode validates a token and returns the session it carries.
func (s *CookieSessionStore) Decode(token string) (*domain.LoginSession, error) {
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return &s.privateKey.PublicKey, nil
	})
	if err != nil {
		return nil, ports.ErrSessionNotFound
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return nil, ports.ErrSessionNotFound
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, ports.ErrSessionNotFound
	}

	values := claims.Values
	if values == nil {
		values = make(map[string]any)
	}
	return &domain.LoginSession{
		Username:      claims.Subject,
		Authenticated: claims.Authenticated,
		Values:        values,
		TokenID:       claims.ID,
		IssuedAt:      claims.IssuedAt.Time,
		ExpiresAt:     claims.ExpiresAt.Time,
	}, nil
}

// LoadPrivateKey loads an RSA private key from a PEM file.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}

	// Try PKCS8 first (modern format), then PKCS1 (legacy RSA format)
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return rsaKey, nil
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("key is not RSA")
	}

	return rsaKey, nil
}

// GenerateEphemeralKey creates a throwaway signing key. Sessions signed with
// it do not survive a process restart; intended for development setups
// without a configured key file.
func GenerateEphemeralKey() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, 2048)
}

// Ensure CookieSessionStore implements ports.SessionStore
var _ ports.SessionStore = (*CookieSessionStore)(nil)
