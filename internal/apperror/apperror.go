// Package apperror defines the error taxonomy shared by the store, the
// services, the HTTP handlers and the HTTP client.
//
// Every failure the application produces on purpose is an *AppError that
// wraps one of the sentinels below, so callers branch with errors.Is:
//
//	if errors.Is(err, apperror.ErrNotFound) { ... }
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("authentication required")
	ErrNetwork      = errors.New("network failure")
)

type AppError struct {
	Err     error  // sentinel
	Message string // human-readable message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, value string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with %s", resource, value),
	}
}

// Forbidden returns an AppError for a caller that is known but lacks rights.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized returns an AppError for an anonymous caller attempting an
// action that needs a session. HTTP handlers map this to 401 and clients
// should prompt for login.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// NetworkFailure wraps a transport-level error (store unreachable, timeout,
// connection reset) raised while performing op.
func NetworkFailure(op string, err error) *AppError {
	return &AppError{
		Err:     ErrNetwork,
		Message: fmt.Sprintf("%s: %v", op, err),
	}
}

// IsDenied reports whether err is a permission denial of either kind.
func IsDenied(err error) bool {
	return errors.Is(err, ErrForbidden) || errors.Is(err, ErrUnauthorized)
}
