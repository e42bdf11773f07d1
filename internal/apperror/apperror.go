// Package apperror defines the error taxonomy shared by every layer.
//
// Services return these errors; handlers translate them to HTTP status codes.
// Each error carries a sentinel (for errors.Is) and a human-readable message
// that is safe to show to the operator.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream error")
	ErrStorage      = errors.New("storage error")
)

// Detail is one entry of the error list GitHub attaches to a failed request.
type Detail struct {
	Resource string `json:"resource,omitempty"`
	Field    string `json:"field,omitempty"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message,omitempty"`
}

type AppError struct {
	Err     error    // actual error
	Message string   // Human-readable error message
	Field   string   // Optional: field causing the error
	Status  int      // Optional: HTTP status reported by the upstream API
	Details []Detail // Optional: upstream error details
	cause   error    // Optional: underlying driver/transport error, never shown to clients
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is/As.
func (e *AppError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Err, e.cause}
	}
	return []error{e.Err}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// NotFoundMessage returns a NotFound error with a free-form message.
func NotFoundMessage(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
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

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized covers a missing or rejected credential and a wrong site password.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Upstream wraps a non-2xx answer from the GitHub API. status is forwarded to
// the client as-is; 0 means the request never got an answer (transport failure).
func Upstream(status int, message string, details []Detail) *AppError {
	if message == "" {
		message = "GitHub API request failed"
	}
	return &AppError{
		Err:     ErrUpstream,
		Message: message,
		Status:  status,
		Details: details,
	}
}

// WithCause attaches the underlying error for logs and errors.Is.
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// Storage wraps a metadata store failure. The message is generic on purpose:
// the cause is only visible through Error() in server logs.
func Storage(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrStorage,
		Message: fmt.Sprintf("storage failure while %s", op),
		cause:   cause,
	}
}

// StatusOf returns the upstream HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && errors.Is(appErr.Err, ErrUpstream) {
		return appErr.Status
	}
	return 0
}

// IsUpstreamStatus reports whether err is an upstream failure with the given status.
func IsUpstreamStatus(err error, status int) bool {
	return StatusOf(err) == status
}

// IsUpstreamNotFound is shorthand for the most common check: GitHub answered 404.
func IsUpstreamNotFound(err error) bool {
	return IsUpstreamStatus(err, http.StatusNotFound)
}
