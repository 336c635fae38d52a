package card

import (
	"errors"
	"fmt"
)

// Sentinel errors for card import and export.
var (
	// ErrNoData indicates the input carries no importable character data:
	// malformed JSON, an unknown format, or a legacy card missing persona
	// fields.
	ErrNoData = errors.New("no importable character data")

	// ErrImageRequired indicates an export format that must embed the card
	// into the character image, for a character without one.
	ErrImageRequired = errors.New("character image required")

	// ErrInvalidPNG indicates malformed PNG chunk structure.
	ErrInvalidPNG = errors.New("invalid png")

	// ErrUnsupportedImage indicates image bytes in a format that cannot be
	// re-encoded.
	ErrUnsupportedImage = errors.New("unsupported image format")

	// ErrNoFetcher indicates a hub import without a resource fetcher.
	ErrNoFetcher = errors.New("hub import requires a resource fetcher")
)

// ImportError describes a failed import. It always unwraps to ErrNoData
// when the input itself was unusable.
type ImportError struct {
	Format Format
	Err    error
}

// Error implements the error interface.
func (e *ImportError) Error() string {
	return fmt.Sprintf("import %s card: %v", e.Format, e.Err)
}

// Unwrap returns the underlying error.
func (e *ImportError) Unwrap() error {
	return e.Err
}

// IsNoData reports whether err means the input had no importable data.
func IsNoData(err error) bool {
	return errors.Is(err, ErrNoData)
}

func noData(format Format, reason string) error {
	return &ImportError{Format: format, Err: fmt.Errorf("%w: %s", ErrNoData, reason)}
}
