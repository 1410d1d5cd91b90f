package shibremoteuser

import (
	"github.com/dbf/caddy-shib-remoteuser/internal/core/domain"
	"github.com/dbf/caddy-shib-remoteuser/internal/core/ports"
)

// Re-export error types from the domain layer.
type AppError = domain.AppError
type ValidationError = domain.ValidationError
type ErrorCode = domain.ErrorCode

const (
	ErrCodeConfigMissing    = domain.ErrCodeConfigMissing
	ErrCodeValidationFailed = domain.ErrCodeValidationFailed
	ErrCodeAuthFailed       = domain.ErrCodeAuthFailed
	ErrCodeSessionInvalid   = domain.ErrCodeSessionInvalid
	ErrCodeBackendError     = domain.ErrCodeBackendError
)

var (
	ConfigError        = domain.ConfigError
	BackendError       = domain.BackendError
	NewValidationError = domain.NewValidationError

	ErrSessionNotFound = ports.ErrSessionNotFound
)
