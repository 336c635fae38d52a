package assets

import (
	"errors"
	"fmt"
)

// Sentinel errors for asset operations.
var (
	// ErrNotFound indicates no asset exists for a handle.
	ErrNotFound = errors.New("asset not found")

	// ErrInvalidHandle indicates a handle this store could not have produced.
	ErrInvalidHandle = errors.New("invalid asset handle")

	// ErrFetch indicates a remote resource could not be retrieved.
	ErrFetch = errors.New("resource fetch failed")
)

// FetchError describes a failed remote resource fetch.
type FetchError struct {
	URL    string
	Status int // HTTP status, 0 if no response was received
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns ErrFetch and the underlying cause.
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFetch}
	}
	return []error{ErrFetch, e.Err}
}

// IsFetchError reports whether err is a resource fetch failure.
func IsFetchError(err error) bool {
	return errors.Is(err, ErrFetch)
}
