// Package apperrors provides the error taxonomy the queue engine and
// processors pattern-match on to decide retry vs. drop vs. dead-letter.
package apperrors

import (
	"errors"
	"fmt"
)

// ErrorCode names one of spec's error kinds, not a specific error instance.
type ErrorCode string

const (
	// ConfigurationError: required env/config missing. Fatal for the current
	// job; retry will exhaust and dead-letter it.
	ConfigurationError ErrorCode = "CONFIGURATION_ERROR"
	// ParseError: undecodable message. Dropped without retry (poison input).
	ParseError ErrorCode = "PARSE_ERROR"
	// TransientExternalError: HTTP failure/timeout/5xx from a collaborator.
	// Retried by the queue engine.
	TransientExternalError ErrorCode = "TRANSIENT_EXTERNAL_ERROR"
	// DatabaseError: SQL failure. Retried for E2E; logged-and-dropped for
	// notifications/PR reaper.
	DatabaseError ErrorCode = "DATABASE_ERROR"
	// InvariantViolation: e.g. a uniqueness conflict the caller believed
	// couldn't happen. Treated as concurrent creation; re-read and proceed.
	InvariantViolation ErrorCode = "INVARIANT_VIOLATION"
	// ShutdownSignal: graceful stop. No new work accepted; current work
	// finishes.
	ShutdownSignal ErrorCode = "SHUTDOWN_SIGNAL"
)

// AppError is a structured error carrying a taxonomy code and the original
// cause, so callers can both log a stable code and unwrap to the root error.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError with no underlying cause.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap creates an AppError carrying err as its cause.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Code extracts the ErrorCode from err if it (or something it wraps) is an
// *AppError; ok is false otherwise.
func Code(err error) (code ErrorCode, ok bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code, true
	}
	return "", false
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	c, ok := Code(err)
	return ok && c == code
}

func ConfigErr(message string, err error) *AppError {
	return Wrap(ConfigurationError, message, err)
}

func ParseErr(message string, err error) *AppError {
	return Wrap(ParseError, message, err)
}

func TransientErr(message string, err error) *AppError {
	return Wrap(TransientExternalError, message, err)
}

func DBErr(message string, err error) *AppError {
	return Wrap(DatabaseError, message, err)
}

func InvariantErr(message string, err error) *AppError {
	return Wrap(InvariantViolation, message, err)
}

func Shutdown(message string) *AppError {
	return New(ShutdownSignal, message)
}
