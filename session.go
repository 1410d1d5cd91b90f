package shibremoteuser

import (
	"github.com/dbf/caddy-shib-remoteuser/internal/core/domain"
	"github.com/dbf/caddy-shib-remoteuser/internal/core/ports"
)

// Re-export the session and principal models plus the port interfaces for
// adopters wiring their own backends, stores, or hooks.
type User = domain.User
type LoginSession = domain.LoginSession

type UserBackend = ports.UserBackend
type GroupStore = ports.GroupStore
type SessionStore = ports.SessionStore
type LoginHooks = ports.LoginHooks
type MetricsRecorder = ports.MetricsRecorder
type RequestContext = ports.RequestContext
type UserState = ports.UserState

var NewAnonymousSession = domain.NewAnonymousSession
