package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the failure kinds the auth core can surface.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInternal        = errors.New("internal error")
	ErrServiceUnavail  = errors.New("service unavailable")
	ErrExpired         = errors.New("expired")
	ErrInvalidCode     = errors.New("invalid code")
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrDeliveryFailed  = errors.New("delivery failed")
	ErrInvalidToken    = errors.New("invalid token")
	ErrSessionExpired  = errors.New("session expired")
	ErrDeviceMismatch  = errors.New("device mismatch")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, key string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s %s not found", resource, key),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// InvalidCode creates a 400 error for a wrong or expired one-time code.
// The message is deliberately generic: callers must not learn whether the
// code was wrong, already consumed, or never requested.
func InvalidCode(inner error) *AppError {
	return &AppError{
		Code:    "INVALID_CODE",
		Message: "invalid or expired code",
		Status:  http.StatusBadRequest,
		Err:     inner,
	}
}

// TooManyAttempts creates a 429 error for an attempt-limit lockout.
func TooManyAttempts() *AppError {
	return &AppError{
		Code:    "TOO_MANY_ATTEMPTS",
		Message: "too many attempts, request a new code",
		Status:  http.StatusTooManyRequests,
		Err:     ErrTooManyAttempts,
	}
}

// DeliveryFailed creates a 502 error for a failed outbound message dispatch.
func DeliveryFailed(err error) *AppError {
	return &AppError{
		Code:    "DELIVERY_FAILED",
		Message: "failed to deliver message",
		Status:  http.StatusBadGateway,
		Err:     errors.Join(ErrDeliveryFailed, err),
	}
}

// Unauthorized creates a 401 error. The session validator wraps its distinct
// internal failure kinds (bad token, stale session, device mismatch) behind
// this single outward shape so callers cannot distinguish which check failed.
func Unauthorized(inner error) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: "invalid or expired session",
		Status:  http.StatusUnauthorized,
		Err:     inner,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidCode), errors.Is(err, ErrExpired):
		return http.StatusBadRequest
	case errors.Is(err, ErrTooManyAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrSessionExpired), errors.Is(err, ErrDeviceMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, ErrDeliveryFailed):
		return http.StatusBadGateway
	case errors.Is(err, ErrServiceUnavail):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
