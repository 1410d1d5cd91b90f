package caddy

import (
	"time"

	"go.uber.org/zap"

	"github.com/dbf/caddy-shib-remoteuser/internal/core/domain"
	"github.com/dbf/caddy-shib-remoteuser/internal/core/ports"

	"github.com/dbf/caddy-shib-remoteuser/internal/adapters/driven/hooks"
)

// NewShibRemoteUserForTest creates a ShibRemoteUser instance with injected
// dependencies. This constructor is intended for testing purposes only.
func NewShibRemoteUserForTest(
	config Config,
	backend ports.UserBackend,
	groupStore ports.GroupStore,
	sessionStore ports.SessionStore,
	loginHooks ports.LoginHooks,
	recorder ports.MetricsRecorder,
) *ShibRemoteUser {
	config.SetDefaults()

	rules := make([]domain.AttributeRule, 0, len(config.Attributes))
	for _, rule := range config.Attributes {
		transform, err := domain.LookupTransform(rule.Transform)
		if err != nil {
			panic("invalid transform in test config: " + err.Error())
		}
		rules = append(rules, domain.AttributeRule{
			Header:    rule.Header,
			Name:      rule.Name,
			Required:  rule.Required,
			Transform: transform,
		})
	}

	cleanUsername, err := domain.LookupTransform(config.UsernameTransform)
	if err != nil {
		panic("invalid username transform in test config: " + err.Error())
	}

	splitter, err := domain.CompileGroupDelimiters(config.GroupDelimiters)
	if err != nil {
		panic("invalid group delimiters in test config: " + err.Error())
	}

	duration, err := time.ParseDuration(config.SessionDuration)
	if err != nil {
		panic("invalid session duration in test config: " + err.Error())
	}

	if loginHooks == nil {
		loginHooks = hooks.NewNoopLoginHooks()
	}

	return &ShibRemoteUser{
		Config:          config,
		rules:           rules,
		splitter:        splitter,
		cleanUsername:   cleanUsername,
		backend:         backend,
		groupStore:      groupStore,
		sessionStore:    sessionStore,
		loginHooks:      loginHooks,
		sessionDuration: duration,
		logger:          zap.NewNop(),
		metricsRecorder: recorder,
	}
}
