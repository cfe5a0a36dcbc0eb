package backend

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCategory is the failure taxonomy shared by every adapter. Provider
// SDK errors are normalized into one of these before leaving the adapter.
type ErrorCategory string

const (
	// CategoryConfiguration covers fatal setup problems: no backend
	// available, no credential configured, malformed requests. Never retried.
	CategoryConfiguration ErrorCategory = "configuration"

	// CategoryRateLimit means the window budget is exhausted. Retryable
	// after the indicated delay.
	CategoryRateLimit ErrorCategory = "rate_limit"

	// CategoryNetwork covers transient transport failures. Retryable with
	// backoff.
	CategoryNetwork ErrorCategory = "network"

	// CategoryService covers 5xx-equivalent provider failures. Retryable
	// with backoff.
	CategoryService ErrorCategory = "service"
)

// Error is a categorized backend failure.
type Error struct {
	Category   ErrorCategory
	Message    string
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("backend: %s (%s, status: %d)", e.Message, e.Category, e.StatusCode)
	}
	return fmt.Sprintf("backend: %s (%s)", e.Message, e.Category)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error might be resolved by retrying.
func (e *Error) IsRetryable() bool {
	switch e.Category {
	case CategoryRateLimit, CategoryNetwork, CategoryService:
		return true
	}
	return false
}

// IsRateLimited returns true if the error is due to rate limiting.
func (e *Error) IsRateLimited() bool {
	return e.Category == CategoryRateLimit
}

func NewConfigurationError(message string) *Error {
	return &Error{Category: CategoryConfiguration, Message: message}
}

func NewRateLimitError(message string, retryAfter time.Duration) *Error {
	return &Error{Category: CategoryRateLimit, Message: message, StatusCode: 429, RetryAfter: retryAfter}
}

func NewNetworkError(err error) *Error {
	return &Error{Category: CategoryNetwork, Message: err.Error(), Err: err}
}

// FromStatusCode normalizes an HTTP-style status code into the taxonomy:
// 429 is a rate limit, 5xx is a service failure, anything else 4xx is a
// configuration problem.
func FromStatusCode(code int, message string, err error) *Error {
	category := CategoryConfiguration
	switch {
	case code == 429:
		category = CategoryRateLimit
	case code >= 500:
		category = CategoryService
	}

	return &Error{Category: category, Message: message, StatusCode: code, Err: err}
}

// AsError extracts a categorized backend error from an error chain.
func AsError(err error) (*Error, bool) {
	var backendErr *Error
	if errors.As(err, &backendErr) {
		return backendErr, true
	}
	return nil, false
}

// IsRetryable reports whether an error chain contains a retryable backend
// failure. Unrecognized errors are treated as non-retryable.
func IsRetryable(err error) bool {
	if backendErr, ok := AsError(err); ok {
		return backendErr.IsRetryable()
	}
	return false
}
