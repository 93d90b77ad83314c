// Package apperror defines the error taxonomy shared by every layer.
//
// Services return these errors; handlers translate them to HTTP status codes.
// Callers test the kind with errors.Is against the sentinels below and read the
// human-readable text from *AppError.Message.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation error")
	ErrConflict            = errors.New("conflict")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrUpstream            = errors.New("upstream error")
	ErrExecution           = errors.New("execution error")
	ErrUnauthorized        = errors.New("unauthorized")
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
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

// Expired is a NotFound whose message says the record lapsed.
// The kind is identical so callers cannot branch on it.
func Expired(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s with id %s has expired", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// UnsupportedLanguage reports a language with no mapping for the requested operation.
func UnsupportedLanguage(language string) *AppError {
	return &AppError{
		Err:     ErrUnsupportedLanguage,
		Message: fmt.Sprintf("language %q is not supported", language),
		Field:   "language",
	}
}

// Upstream wraps a failure of the LLM gateway. The message is shown to the caller as-is.
func Upstream(message string) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: message,
	}
}

// ExecutionFailed wraps a failure of the remote compile service. The message is shown verbatim.
func ExecutionFailed(message string) *AppError {
	return &AppError{
		Err:     ErrExecution,
		Message: message,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}
