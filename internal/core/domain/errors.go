package domain

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorCode represents categorized error types.
// These codes are stable and can be used for programmatic error handling.
type ErrorCode string

const (
	ErrCodeConfigMissing    ErrorCode = "config_missing"
	ErrCodeValidationFailed ErrorCode = "validation_failed"
	ErrCodeAuthFailed       ErrorCode = "auth_failed"
	ErrCodeSessionInvalid   ErrorCode = "session_invalid"
	ErrCodeBackendError     ErrorCode = "backend_error"
)

// String returns the error code as a string.
func (c ErrorCode) String() string {
	return string(c)
}

// HTTPStatus returns the HTTP status code for this error code.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrCodeAuthFailed, ErrCodeSessionInvalid:
		return http.StatusUnauthorized
	default:
		// Config, validation, and backend errors all signal a broken
		// deployment or upstream, not a client mistake.
		return http.StatusInternalServerError
	}
}

// AppError is a structured error with code, message, and optional cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// ConfigError creates a configuration error. It signals that a prerequisite
// of the authentication handler is missing from the deployment and is not
// recoverable per request.
func ConfigError(message string) *AppError {
	return &AppError{Code: ErrCodeConfigMissing, Message: message}
}

// BackendError wraps a failure from an external collaborator (user backend
// or group store).
func BackendError(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeBackendError, Message: message, Cause: cause}
}

// ValidationError reports that one or more required Shibboleth attributes
// were absent from the request headers even though a remote-user header was
// present. Attributes carries the partial attribute map that was parsed, for
// diagnostics.
type ValidationError struct {
	// Attributes is the partial attribute map built before the error was
	// detected. Never nil.
	Attributes map[string]string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Attributes))
	for k := range e.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("required shibboleth attributes not found; parsed attributes: [%s]",
		strings.Join(keys, ", "))
}

// NewValidationError creates a ValidationError carrying the partial
// attribute map. A nil map is normalized to an empty one.
func NewValidationError(attrs map[string]string) *ValidationError {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return &ValidationError{Attributes: attrs}
}
