package config

import "errors"

// Sentinel errors for settings.
var (
	// ErrInvalid indicates settings that fail validation.
	ErrInvalid = errors.New("invalid settings")

	// ErrUnsupportedFormat indicates a settings file extension other than
	// .yaml, .yml or .toml.
	ErrUnsupportedFormat = errors.New("unsupported settings format")
)
