package truncate

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/charkit/provider"
)

// ErrNoSummarizer is returned when summarization mode is requested without
// a Summarizer.
var ErrNoSummarizer = errors.New("summarization mode requires a summarizer")

var errNoResult = errors.New("no result")

// BudgetExceededError reports a history that cannot be fitted because a
// single remaining message already exceeds the limit.
type BudgetExceededError struct {
	// Required is the token count at the point eviction gave up.
	Required int
	Limit    int
}

// Error implements the error interface.
func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("context too long: required %d tokens, limit %d", e.Required, e.Limit)
}

// Unwrap returns provider.ErrContextTooLong.
func (e *BudgetExceededError) Unwrap() error {
	return provider.ErrContextTooLong
}

// SummarizerError wraps a failure of the summarizer.
type SummarizerError struct {
	Err error
}

// Error implements the error interface.
func (e *SummarizerError) Error() string {
	return "summarizer: " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *SummarizerError) Unwrap() error {
	return e.Err
}

// IsBudgetExceeded reports whether err is a BudgetExceededError.
func IsBudgetExceeded(err error) bool {
	var be *BudgetExceededError
	return errors.As(err, &be)
}
