package profile

import (
	"errors"
	"fmt"
)

// ErrorCategory defines the normalized failure taxonomy for profile fetches.
type ErrorCategory string

const (
	// ErrorTimeout indicates the attempt exceeded its deadline
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the response could not be used
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorProviderOutage indicates a transport failure or a 5xx response
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorNotFound indicates the profile does not exist
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorRateLimited indicates the profile host asked us to slow down
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorInternal indicates an unexpected local failure
	ErrorInternal ErrorCategory = "internal"
)

// FetchError wraps a failed fetch attempt with a normalized category.
type FetchError struct {
	Category   ErrorCategory
	Message    string
	Underlying error
	Retryable  bool
}

func (e *FetchError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Underlying
}

// NewFetchError creates a categorized fetch error. Timeouts, outages and rate
// limiting are retryable; everything else is final.
func NewFetchError(category ErrorCategory, message string, underlying error) *FetchError {
	retryable := category == ErrorTimeout ||
		category == ErrorProviderOutage ||
		category == ErrorRateLimited

	return &FetchError{
		Category:   category,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying
func IsRetryable(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error
func GetCategory(err error) ErrorCategory {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Category
	}
	return ErrorInternal
}
