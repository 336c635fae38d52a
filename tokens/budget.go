package tokens

// Budget is the token window a composed prompt must fit in.
type Budget struct {
	// Limit is the effective context size.
	Limit int

	// Reserved is held back for the response. Running totals start at
	// Reserved so every fit decision already accounts for it.
	Reserved int
}

// NewBudget creates a budget with the given limit and response reservation.
func NewBudget(limit, reserved int) Budget {
	return Budget{Limit: limit, Reserved: reserved}
}

// Start returns the initial running total.
func (b Budget) Start() int {
	return b.Reserved
}

// Fits reports whether a running total is within the limit.
func (b Budget) Fits(total int) bool {
	return total <= b.Limit
}

// Over returns how many tokens total exceeds the limit by, or 0.
func (b Budget) Over(total int) int {
	if total <= b.Limit {
		return 0
	}
	return total - b.Limit
}

// Remaining returns the tokens left under the limit for a running total.
func (b Budget) Remaining(total int) int {
	remaining := b.Limit - total
	if remaining < 0 {
		return 0
	}
	return remaining
}
