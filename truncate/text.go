package truncate

import "github.com/randalmurphal/charkit/tokens"

// Strategy defines which part of a text a Truncator drops.
type Strategy int

const (
	// FromEnd keeps the head of the text.
	FromEnd Strategy = iota

	// FromMiddle keeps the head and the tail.
	FromMiddle

	// FromStart keeps the tail; used for transcripts where the newest
	// lines matter most.
	FromStart
)

// Default markers inserted where text was removed.
const (
	DefaultEndSuffix    = "..."
	DefaultMiddleSuffix = "\n...[content truncated]...\n"
	DefaultStartSuffix  = "..."
)

// Truncator clips single texts to a token limit.
type Truncator struct {
	counter  tokens.Counter
	strategy Strategy
	suffix   string
}

// New creates a truncator with the given strategy and its default marker.
func New(strategy Strategy) *Truncator {
	suffix := DefaultEndSuffix
	switch strategy {
	case FromMiddle:
		suffix = DefaultMiddleSuffix
	case FromStart:
		suffix = DefaultStartSuffix
	}
	return &Truncator{
		counter:  tokens.NewEstimatingCounter(),
		strategy: strategy,
		suffix:   suffix,
	}
}

// WithCounter sets the token counter.
func (t *Truncator) WithCounter(counter tokens.Counter) *Truncator {
	t.counter = counter
	return t
}

// WithSuffix sets the removal marker.
func (t *Truncator) WithSuffix(suffix string) *Truncator {
	t.suffix = suffix
	return t
}

// Truncate clips text to maxTokens and reports whether anything was removed.
// The marker counts toward the limit; if even the marker does not fit, the
// marker alone is returned.
func (t *Truncator) Truncate(text string, maxTokens int) (string, bool) {
	if t.counter.FitsInLimit(text, maxTokens) {
		return text, false
	}
	target := maxTokens - t.counter.Count(t.suffix)
	if target <= 0 {
		return t.suffix, true
	}

	runes := []rune(text)
	switch t.strategy {
	case FromStart:
		from := t.tailFit(runes, target)
		return t.suffix + string(runes[from:]), true
	case FromMiddle:
		head := t.headFit(runes, target/2)
		rest := runes[head:]
		from := t.tailFit(rest, target-target/2)
		return string(runes[:head]) + t.suffix + string(rest[from:]), true
	default:
		return string(runes[:t.headFit(runes, target)]) + t.suffix, true
	}
}

// headFit returns the largest n such that runes[:n] fits in limit.
func (t *Truncator) headFit(runes []rune, limit int) int {
	lo, hi := 0, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if t.counter.FitsInLimit(string(runes[:mid]), limit) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// tailFit returns the smallest i such that runes[i:] fits in limit.
func (t *Truncator) tailFit(runes []rune, limit int) int {
	lo, hi := 0, len(runes)
	for lo < hi {
		mid := (lo + hi) / 2
		if t.counter.FitsInLimit(string(runes[mid:]), limit) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// ToTokens clips text from the end with the estimating counter.
func ToTokens(text string, maxTokens int) string {
	out, _ := New(FromEnd).Truncate(text, maxTokens)
	return out
}
