package provider

import (
	"errors"
	"fmt"
)

// Sentinel errors for provider operations.
var (
	// ErrUnknownProvider indicates the requested provider is not registered.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrUnavailable indicates the model service is unavailable.
	ErrUnavailable = errors.New("model service unavailable")

	// ErrContextTooLong indicates the prompt exceeds the context window.
	ErrContextTooLong = errors.New("context exceeds maximum length")

	// ErrRateLimited indicates the request was rate limited.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidRequest indicates the request is malformed.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrTimeout indicates the request timed out.
	ErrTimeout = errors.New("request timed out")

	// ErrCredentialsNotFound indicates credentials are missing.
	ErrCredentialsNotFound = errors.New("credentials not found")

	// ErrEmptyResponse indicates the backend returned no choices.
	ErrEmptyResponse = errors.New("empty response")

	// ErrCapabilityNotSupported indicates the requested feature is not
	// available in the current context, e.g. image generation in a group room.
	ErrCapabilityNotSupported = errors.New("capability not supported")
)

// Error is a model request failure.
type Error struct {
	Provider  string // Provider name ("openai", "mock", ...)
	Op        string // Operation that failed ("send", "stream")
	Err       error  // Underlying error
	Retryable bool   // Whether the error is likely transient
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new provider error.
func NewError(provider, op string, err error, retryable bool) *Error {
	return &Error{
		Provider:  provider,
		Op:        op,
		Err:       err,
		Retryable: retryable,
	}
}

// IsRetryable reports whether an error is likely transient. The engine never
// retries by itself; this only informs the caller's re-send prompt.
func IsRetryable(err error) bool {
	var provErr *Error
	if errors.As(err, &provErr) {
		return provErr.Retryable
	}

	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// IsCapabilityError checks if an error is due to an unsupported capability.
func IsCapabilityError(err error) bool {
	return errors.Is(err, ErrCapabilityNotSupported)
}

// IsRequestError checks if err is a model request failure.
func IsRequestError(err error) bool {
	var provErr *Error
	return errors.As(err, &provErr)
}
