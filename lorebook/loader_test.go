package lorebook_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/charkit/character"
	"github.com/randalmurphal/charkit/lorebook"
)

func pct(v float64) *float64 { return &v }

func TestKeywordLoader_Load(t *testing.T) {
	entries := []character.LoreEntry{
		{Key: "castle, keep", Content: "The castle stands on a cliff.", InsertOrder: 20},
		{Key: "dragon", Content: "Dragons sleep by day.", InsertOrder: 10},
		{Key: "", Content: "It is always raining.", AlwaysActive: true, InsertOrder: 30},
		{Key: "sword", SecondKey: "king", Selective: true, Content: "The king's sword is lost."},
		{Key: "Moon", Content: "The moon is red.", Extensions: map[string]any{character.ExtCaseSensitive: true}},
	}

	tests := []struct {
		name     string
		messages []string
		want     string
	}{
		{
			name:     "always active only",
			messages: []string{"hello"},
			want:     "It is always raining.",
		},
		{
			name:     "ordered by insertion order",
			messages: []string{"I saw a DRAGON near the Keep"},
			want:     "Dragons sleep by day.\nThe castle stands on a cliff.\nIt is always raining.",
		},
		{
			name:     "selective needs secondary key",
			messages: []string{"a sword"},
			want:     "It is always raining.",
		},
		{
			name:     "selective with both keys",
			messages: []string{"the king", "a sword"},
			want:     "The king's sword is lost.\nIt is always raining.",
		},
		{
			name:     "case sensitive key",
			messages: []string{"the moon rises"},
			want:     "It is always raining.",
		},
		{
			name:     "case sensitive key exact",
			messages: []string{"the Moon rises"},
			want:     "The moon is red.\nIt is always raining.",
		},
	}

	l := lorebook.NewKeywordLoader(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.Load(context.Background(), lorebook.LoadRequest{Entries: entries, Messages: tt.messages})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeywordLoader_ScanDepth(t *testing.T) {
	entries := []character.LoreEntry{{Key: "dragon", Content: "Dragons sleep by day."}}
	msgs := []string{"dragon", "a", "b"}
	l := lorebook.NewKeywordLoader(nil)

	got, err := l.Load(context.Background(), lorebook.LoadRequest{
		Entries:  entries,
		Messages: msgs,
		Settings: &character.LoreSettings{ScanDepth: 2, TokenBudget: 100},
	})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = l.Load(context.Background(), lorebook.LoadRequest{Entries: entries, Messages: msgs})
	require.NoError(t, err)
	assert.Equal(t, "Dragons sleep by day.", got)
}

func TestKeywordLoader_TokenBudget(t *testing.T) {
	entries := []character.LoreEntry{
		{AlwaysActive: true, Content: "aaaaaaaa", InsertOrder: 1},         // 2 tokens
		{AlwaysActive: true, Content: "bbbbbbbbbbbbbbbb", InsertOrder: 2}, // 4 tokens
		{AlwaysActive: true, Content: "cccc", InsertOrder: 3},             // 1 token
	}
	l := lorebook.NewKeywordLoader(nil)

	got, err := l.Load(context.Background(), lorebook.LoadRequest{
		Entries:  entries,
		Settings: &character.LoreSettings{ScanDepth: 5, TokenBudget: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, "aaaaaaaa", got)
}

func TestKeywordLoader_Recursive(t *testing.T) {
	entries := []character.LoreEntry{
		{Key: "castle", Content: "The castle hides a dragon.", InsertOrder: 1},
		{Key: "dragon", Content: "Dragons sleep by day.", InsertOrder: 2},
	}
	l := lorebook.NewKeywordLoader(nil)

	flat, err := l.Load(context.Background(), lorebook.LoadRequest{
		Entries:  entries,
		Messages: []string{"to the castle"},
	})
	require.NoError(t, err)
	assert.Equal(t, "The castle hides a dragon.", flat)

	deep, err := l.Load(context.Background(), lorebook.LoadRequest{
		Entries:  entries,
		Messages: []string{"to the castle"},
		Settings: &character.LoreSettings{ScanDepth: 5, TokenBudget: 2000, RecursiveScanning: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "The castle hides a dragon.\nDragons sleep by day.", deep)
}

func TestKeywordLoader_ActivationPercent(t *testing.T) {
	entries := []character.LoreEntry{
		{AlwaysActive: true, Content: "half", ActivationPercent: pct(50)},
		{AlwaysActive: true, Content: "ext", Extensions: map[string]any{character.ExtActivationPercent: float64(10)}},
	}
	l := lorebook.NewKeywordLoader(nil)

	l.Rand = func() float64 { return 0.3 }
	got, err := l.Load(context.Background(), lorebook.LoadRequest{Entries: entries})
	require.NoError(t, err)
	assert.Equal(t, "half", got)

	l.Rand = func() float64 { return 0.05 }
	got, err = l.Load(context.Background(), lorebook.LoadRequest{Entries: entries})
	require.NoError(t, err)
	assert.Equal(t, "half\next", got)
}

func TestKeywordLoader_Empty(t *testing.T) {
	got, err := lorebook.NewKeywordLoader(nil).Load(context.Background(), lorebook.LoadRequest{})
	require.NoError(t, err)
	assert.Empty(t, got)
}
