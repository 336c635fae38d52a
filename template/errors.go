package template

import "errors"

// Sentinel errors for template operations.
var (
	// ErrVariable is returned when text references an unknown placeholder.
	ErrVariable = errors.New("unknown placeholder")
)
