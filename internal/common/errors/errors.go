package errors

import (
	"fmt"
	"net/http"
)

// Error codes
const (
	// 4xx Client Errors
	CodeMissingToken  = "MISSING_TOKEN"
	CodeInvalidToken  = "INVALID_TOKEN"
	CodeNonceNotFound = "NONCE_NOT_FOUND"
	CodeNonceExpired  = "NONCE_EXPIRED"
	CodeReplay        = "REPLAY_DETECTED"
	CodeRateLimited   = "RATE_LIMITED"
	CodeInvalidInput  = "INVALID_INPUT"

	// 5xx Server Errors
	CodeServerError = "SERVER_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	StatusCode int            `json:"-"`
	Retryable  bool           `json:"retryable"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
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

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// Error constructors

func MissingToken() *AppError {
	return &AppError{
		Code:       CodeMissingToken,
		Message:    "Verification token is required",
		StatusCode: http.StatusBadRequest,
	}
}

func InvalidToken() *AppError {
	return &AppError{
		Code:       CodeInvalidToken,
		Message:    "Verification token is malformed",
		StatusCode: http.StatusBadRequest,
	}
}

func NonceNotFound() *AppError {
	return &AppError{
		Code:       CodeNonceNotFound,
		Message:    "Nonce was never issued or is unknown",
		StatusCode: http.StatusNotFound,
	}
}

// NonceExpired is retryable: the caller should request a fresh nonce.
func NonceExpired() *AppError {
	return &AppError{
		Code:       CodeNonceExpired,
		Message:    "Nonce has expired, request a new one",
		StatusCode: http.StatusGone,
		Retryable:  true,
	}
}

func ReplayDetected() *AppError {
	return &AppError{
		Code:       CodeReplay,
		Message:    "Nonce was already consumed",
		StatusCode: http.StatusTooManyRequests,
	}
}

func RateLimited() *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    "Too many requests, retry later",
		StatusCode: http.StatusTooManyRequests,
		Retryable:  true,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// ServerError normalizes store and backend failures so storage details
// never leak to callers.
func ServerError(err error) *AppError {
	return &AppError{
		Code:       CodeServerError,
		Message:    "Verification backend unavailable",
		StatusCode: http.StatusServiceUnavailable,
		Retryable:  true,
		Err:        err,
	}
}

// AsAppError converts an error to AppError if possible
func AsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}
