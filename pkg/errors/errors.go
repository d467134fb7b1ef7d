package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind is the machine-readable category of an application error
type Kind string

const (
	KindUnauthorized           Kind = "unauthorized"
	KindForbidden              Kind = "forbidden"
	KindValidationFailed       Kind = "validation_failed"
	KindNotFound               Kind = "not_found"
	KindConflict               Kind = "conflict"
	KindPersistenceUnavailable Kind = "persistence_unavailable"
	KindPersistenceWriteFailed Kind = "persistence_write_failed"
	KindInternal               Kind = "internal"
)

// AppError represents an application error
type AppError struct {
	Kind    Kind     `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
	Err     error    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error kind to an HTTP status
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidationFailed:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindPersistenceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error constructors
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return &AppError{Kind: KindUnauthorized, Message: message}
}

func Forbidden(message string) *AppError {
	if message == "" {
		message = "permission denied"
	}
	return &AppError{Kind: KindForbidden, Message: message}
}

// ValidationFailed lists every offending field, not just the first one.
func ValidationFailed(fields ...string) *AppError {
	return &AppError{
		Kind:    KindValidationFailed,
		Message: "missing or invalid fields: " + strings.Join(fields, ", "),
		Fields:  fields,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func Conflict(message string, err error) *AppError {
	return &AppError{Kind: KindConflict, Message: message, Err: err}
}

func Unavailable(err error) *AppError {
	return &AppError{
		Kind:    KindPersistenceUnavailable,
		Message: "storage is temporarily unavailable",
		Err:     err,
	}
}

func WriteFailed(message string, err error) *AppError {
	return &AppError{Kind: KindPersistenceWriteFailed, Message: message, Err: err}
}

func Internal(message string, err error) *AppError {
	if message == "" {
		message = "internal server error"
	}
	return &AppError{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}
