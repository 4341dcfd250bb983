package errors

import "fmt"

// ErrorType classifies errors crossing component boundaries. Expected remote
// failures are modelled as result values elsewhere; AppError covers the
// cross-cutting cases (bad input, auth, transport) plus programmer errors.
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeExternal     ErrorType = "external"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeRateLimit    ErrorType = "rate_limit"
	ErrorTypeTimeout      ErrorType = "timeout"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType      `json:"type"`
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Cause   error          `json:"-"`
	Context map[string]any `json:"context,omitempty"`
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

func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Error constructors
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

func NewExternalError(service, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: fmt.Sprintf("%s service error: %s", service, message),
		Context: map[string]any{"service": service},
	}
}

func NewRateLimitError(service string) *AppError {
	return &AppError{
		Type:    ErrorTypeRateLimit,
		Message: fmt.Sprintf("rate limit exceeded for %s", service),
		Context: map[string]any{"service": service},
	}
}

func NewTimeoutError(service, timeout string) *AppError {
	return &AppError{
		Type:    ErrorTypeTimeout,
		Message: fmt.Sprintf("timeout calling %s after %s", service, timeout),
		Context: map[string]any{"service": service, "timeout": timeout},
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError attempts to cast an error to AppError
func AsAppError(err error) (*AppError, bool) {
	appErr, ok := err.(*AppError)
	return appErr, ok
}

// WrapError wraps an error as an internal AppError
func WrapError(err error, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Cause:   err,
	}
}
