package errors

import (
	"errors"
	"fmt"
)

// Error types for different failure classes
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeState      ErrorType = "state"
	ErrorTypeInternal   ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Is matches another AppError by type and code, so callers can use
// errors.Is against the package-level sentinels even after wrapping.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Type == appErr.Type && e.Code == appErr.Code
	}
	return false
}

// Error constructors
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

func NewStateError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeState,
		Code:    code,
		Message: message,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
}

// Predefined common errors
var (
	ErrNegativeDelay   = NewValidationError("NEGATIVE_DELAY", "message delay must not be negative")
	ErrNegativeAdvance = NewValidationError("NEGATIVE_ADVANCE", "clock advance must not be negative")

	ErrAutoDispatchRunning  = NewStateError("AUTO_DISPATCH_RUNNING", "auto-dispatch is already running")
	ErrAutoDispatchIdle     = NewStateError("AUTO_DISPATCH_IDLE", "auto-dispatch has not been started")
	ErrNoMessagesDispatched = NewStateError("NO_MESSAGES_DISPATCHED", "auto-dispatch stopped without dispatching any messages")
	ErrStopTimeout          = NewStateError("AUTO_DISPATCH_STOP_TIMEOUT", "auto-dispatch loop did not stop in time")
)

// Wrap wraps an error with a message using fmt.Errorf with %w
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetCode extracts the error code, or empty string for non-AppErrors
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
