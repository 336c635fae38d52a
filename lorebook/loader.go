package lorebook

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/randalmurphal/charkit/character"
	"github.com/randalmurphal/charkit/tokens"
)

// Defaults used when a character has no LoreSettings.
const (
	DefaultScanDepth   = 5
	DefaultTokenBudget = 2000
)

// LoadRequest is the input of one lorebook evaluation.
type LoadRequest struct {
	Entries  []character.LoreEntry
	Settings *character.LoreSettings

	// Messages are chat texts in chronological order.
	Messages []string
}

// Loader renders the active lore for a request.
type Loader interface {
	Load(ctx context.Context, req LoadRequest) (string, error)
}

// KeywordLoader activates entries by substring key match.
type KeywordLoader struct {
	counter tokens.Counter

	// Rand returns a number in [0,1) for activation rolls.
	Rand func() float64
}

// NewKeywordLoader creates a loader that measures budget with counter.
// A nil counter uses the estimating counter.
func NewKeywordLoader(counter tokens.Counter) *KeywordLoader {
	if counter == nil {
		counter = tokens.NewEstimatingCounter()
	}
	return &KeywordLoader{
		counter: counter,
		Rand:    rand.Float64,
	}
}

// Load implements Loader.
func (l *KeywordLoader) Load(ctx context.Context, req LoadRequest) (string, error) {
	if len(req.Entries) == 0 {
		return "", nil
	}

	depth, budget, recursive := DefaultScanDepth, DefaultTokenBudget, false
	if s := req.Settings; s != nil {
		if s.ScanDepth > 0 {
			depth = s.ScanDepth
		}
		if s.TokenBudget > 0 {
			budget = s.TokenBudget
		}
		recursive = s.RecursiveScanning
	}

	msgs := req.Messages
	if len(msgs) > depth {
		msgs = msgs[len(msgs)-depth:]
	}
	window := strings.Join(msgs, "\n")

	// decided marks entries that activated or lost their activation roll.
	decided := make([]bool, len(req.Entries))
	var active []int
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		var added []int
		for i, e := range req.Entries {
			if decided[i] || !l.matches(e, window) {
				continue
			}
			decided[i] = true
			if !l.roll(e) {
				continue
			}
			added = append(added, i)
		}
		active = append(active, added...)
		if !recursive || len(added) == 0 {
			break
		}
		for _, i := range added {
			window += "\n" + req.Entries[i].Content
		}
	}

	sort.SliceStable(active, func(a, b int) bool {
		return req.Entries[active[a]].InsertOrder < req.Entries[active[b]].InsertOrder
	})

	var parts []string
	used := 0
	for _, i := range active {
		content := req.Entries[i].Content
		cost := l.counter.Count(content)
		if used+cost > budget {
			slog.Debug("lorebook budget reached",
				slog.Int("budget", budget),
				slog.Int("included", len(parts)),
				slog.Int("activated", len(active)))
			break
		}
		used += cost
		parts = append(parts, content)
	}
	return strings.Join(parts, "\n"), nil
}

func (l *KeywordLoader) matches(e character.LoreEntry, window string) bool {
	if e.AlwaysActive {
		return true
	}
	if !containsAny(window, e.PrimaryKeys(), e.CaseSensitive()) {
		return false
	}
	if e.Selective {
		return containsAny(window, e.SecondaryKeys(), e.CaseSensitive())
	}
	return true
}

func (l *KeywordLoader) roll(e character.LoreEntry) bool {
	pct, ok := activationPercent(e)
	if !ok || pct >= 100 {
		return true
	}
	return l.Rand()*100 < pct
}

func activationPercent(e character.LoreEntry) (float64, bool) {
	if e.ActivationPercent != nil {
		return *e.ActivationPercent, true
	}
	switch v := e.Extensions[character.ExtActivationPercent].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func containsAny(window string, keys []string, caseSensitive bool) bool {
	if !caseSensitive {
		window = strings.ToLower(window)
	}
	for _, k := range keys {
		if !caseSensitive {
			k = strings.ToLower(k)
		}
		if strings.Contains(window, k) {
			return true
		}
	}
	return false
}
