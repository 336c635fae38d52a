package truncate

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/charkit/character"
	"github.com/randalmurphal/charkit/model"
	"github.com/randalmurphal/charkit/provider"
	"github.com/randalmurphal/charkit/tokens"
)

// Mode selects how an over-budget history is reduced.
type Mode int

const (
	// ModeEvict drops the oldest history messages.
	ModeEvict Mode = iota

	// ModeSummarize hands the history to a Summarizer.
	ModeSummarize
)

// SummarizeRequest is passed to a Summarizer.
type SummarizeRequest struct {
	History   []provider.Message
	Tokens    int
	Limit     int
	Session   *character.ChatSession
	Character *character.Character
	Counter   tokens.MessageCounter
}

// SummarizeResult is the reduced history.
type SummarizeResult struct {
	History []provider.Message
	Tokens  int

	// Memory replaces the session's summarizer payload when non-empty.
	Memory string

	// LastID is the ChatID of the last message absorbed into the summary.
	LastID string
}

// Summarizer condenses the oldest part of a history.
type Summarizer interface {
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResult, error)
}

// FitRequest describes one budget fit.
type FitRequest struct {
	History []provider.Message

	// Tokens is the running estimate, including the reserved response
	// length and every non-history group.
	Tokens int

	// MaxContext is the user's configured context size; the model cap is
	// applied on top of it.
	MaxContext int
	Model      model.ModelName

	Session   *character.ChatSession
	Character *character.Character
	Counter   tokens.MessageCounter

	Mode       Mode
	Summarizer Summarizer
}

// FitResult is a history within budget.
type FitResult struct {
	History []provider.Message
	Tokens  int
	Limit   int
	Evicted int
}

// Fit trims req.History until the estimate is within the effective context
// limit. The input slice is not modified; session bookkeeping (LastMemory,
// summarizer payload) is written onto req.Session.
func Fit(ctx context.Context, req FitRequest) (*FitResult, error) {
	limit := model.EffectiveContext(req.Model, req.MaxContext)

	if req.Mode == ModeSummarize {
		return summarize(ctx, req, limit)
	}

	budget := tokens.NewBudget(limit, 0)
	history := append([]provider.Message(nil), req.History...)
	total := req.Tokens
	evicted := 0
	for !budget.Fits(total) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(history) <= 1 {
			slog.Warn("history does not fit context",
				slog.Int("required", total),
				slog.Int("limit", limit))
			return nil, &BudgetExceededError{Required: total, Limit: limit}
		}
		total -= req.Counter.CountMessage(history[0])
		history = history[1:]
		evicted++
	}

	if evicted > 0 {
		slog.Debug("evicted history",
			slog.Int("evicted", evicted),
			slog.Int("tokens", total),
			slog.Int("limit", limit))
	}
	if req.Session != nil && len(history) > 0 {
		req.Session.LastMemory = history[0].Memo
	}

	return &FitResult{
		History: history,
		Tokens:  total,
		Limit:   limit,
		Evicted: evicted,
	}, nil
}

func summarize(ctx context.Context, req FitRequest, limit int) (*FitResult, error) {
	if req.Summarizer == nil {
		return nil, ErrNoSummarizer
	}

	slog.Debug("summarizing history",
		slog.Int("messages", len(req.History)),
		slog.Int("tokens", req.Tokens),
		slog.Int("limit", limit))

	res, err := req.Summarizer.Summarize(ctx, SummarizeRequest{
		History:   req.History,
		Tokens:    req.Tokens,
		Limit:     limit,
		Session:   req.Session,
		Character: req.Character,
		Counter:   req.Counter,
	})
	if err != nil {
		return nil, &SummarizerError{Err: err}
	}
	if res == nil {
		return nil, &SummarizerError{Err: errNoResult}
	}

	if req.Session != nil {
		if res.Memory != "" {
			req.Session.SupaMemoryData = res.Memory
		}
		if res.LastID != "" {
			req.Session.LastMemory = res.LastID
		}
	}

	absorbed := len(req.History) - len(res.History)
	if absorbed < 0 {
		absorbed = 0
	}
	return &FitResult{
		History: res.History,
		Tokens:  res.Tokens,
		Limit:   limit,
		Evicted: absorbed,
	}, nil
}
