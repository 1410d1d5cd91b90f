package shibremoteuser

import (
	"github.com/dbf/caddy-shib-remoteuser/internal/adapters/driving/caddy"
)

// NewShibRemoteUserForTest creates a handler with injected dependencies.
// This constructor is intended for testing purposes only.
var NewShibRemoteUserForTest = caddy.NewShibRemoteUserForTest
