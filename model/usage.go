package model

import (
	"sync"
)

// Usage tracks token usage for a model.
type Usage struct {
	PromptTokens   int
	ResponseTokens int
	Requests       int
}

// Add adds the given usage to this usage.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.ResponseTokens += other.ResponseTokens
	u.Requests += other.Requests
}

// TotalTokens returns the total tokens used.
func (u *Usage) TotalTokens() int {
	return u.PromptTokens + u.ResponseTokens
}

// ModelPricing holds per-million-token pricing for a model.
type ModelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// ModelPrices holds list pricing for the OpenAI chat models.
var ModelPrices = map[ModelName]ModelPricing{
	GPT35:          {InputPerMillion: 0.5, OutputPerMillion: 1.5},
	GPT35_16k:      {InputPerMillion: 3.0, OutputPerMillion: 4.0},
	GPT35_16k_0613: {InputPerMillion: 3.0, OutputPerMillion: 4.0},
	GPT4:           {InputPerMillion: 30.0, OutputPerMillion: 60.0},
	GPT4_32k:       {InputPerMillion: 60.0, OutputPerMillion: 120.0},
}

// UsageTracker tracks token usage and estimated costs across models.
// It is safe for concurrent use.
type UsageTracker struct {
	mu     sync.RWMutex
	totals map[ModelName]Usage
}

// NewUsageTracker creates an empty tracker.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{
		totals: make(map[ModelName]Usage),
	}
}

// Record adds one request with the given prompt and response token counts.
func (t *UsageTracker) Record(model ModelName, prompt, response int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u := t.totals[model]
	u.PromptTokens += prompt
	u.ResponseTokens += response
	u.Requests++
	t.totals[model] = u
}

// RecordUsage adds a usage record for the given model.
func (t *UsageTracker) RecordUsage(model ModelName, usage Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u := t.totals[model]
	u.Add(usage)
	t.totals[model] = u
}

// Usage returns the usage for a specific model.
func (t *UsageTracker) Usage(model ModelName) Usage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totals[model]
}

// Summary returns a copy of all usage totals.
func (t *UsageTracker) Summary() map[ModelName]Usage {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[ModelName]Usage, len(t.totals))
	for k, v := range t.totals {
		result[k] = v
	}
	return result
}

// TotalUsage returns aggregated usage across all models.
func (t *UsageTracker) TotalUsage() Usage {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var total Usage
	for _, u := range t.totals {
		total.Add(u)
	}
	return total
}

func costOf(model ModelName, usage Usage) (float64, bool) {
	prices, ok := ModelPrices[model]
	if !ok {
		return 0, false
	}
	in := float64(usage.PromptTokens) / 1_000_000 * prices.InputPerMillion
	out := float64(usage.ResponseTokens) / 1_000_000 * prices.OutputPerMillion
	return in + out, true
}

// EstimatedCost sums the estimated cost of priced models. Unpriced
// backends contribute nothing.
func (t *UsageTracker) EstimatedCost() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var total float64
	for model, usage := range t.totals {
		if c, ok := costOf(model, usage); ok {
			total += c
		}
	}
	return total
}

// EstimatedCostByModel returns the estimated cost for each model.
func (t *UsageTracker) EstimatedCostByModel() map[ModelName]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[ModelName]float64, len(t.totals))
	for model, usage := range t.totals {
		if c, ok := costOf(model, usage); ok {
			result[model] = c
		}
	}
	return result
}

// Reset clears all tracked usage.
func (t *UsageTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totals = make(map[ModelName]Usage)
}
