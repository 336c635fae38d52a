package character

import "strings"

// LoreEntry is a conditionally inserted context snippet.
type LoreEntry struct {
	// Key holds the primary trigger keys, comma-joined.
	Key string `json:"key"`
	// SecondKey holds the secondary keys, comma-joined. Only consulted when
	// Selective is true.
	SecondKey   string `json:"second_key"`
	InsertOrder int    `json:"insert_order"`
	Comment     string `json:"comment"`
	Content     string `json:"content"`
	Mode        string `json:"mode"`
	// AlwaysActive entries are inserted regardless of key matches.
	AlwaysActive bool `json:"always_active"`
	// Selective requires a match from both Key and SecondKey.
	Selective  bool           `json:"selective"`
	Extensions map[string]any `json:"extensions,omitempty"`
	// ActivationPercent is the chance (0-100) that a matched entry activates.
	ActivationPercent *float64 `json:"activation_percent,omitempty"`
}

// LoreModeNormal is the mode of every keyword-activated entry.
const LoreModeNormal = "normal"

// Canonical returns e in the shape card import produces: keys re-joined
// with ", ", an empty mode set to LoreModeNormal and empty extensions nil.
func (e LoreEntry) Canonical() LoreEntry {
	e.Key = JoinKeys(SplitKeys(e.Key))
	e.SecondKey = JoinKeys(SplitKeys(e.SecondKey))
	if e.Mode == "" {
		e.Mode = LoreModeNormal
	}
	if len(e.Extensions) == 0 {
		e.Extensions = nil
	}
	return e
}

// AddLore appends entries to the lorebook in canonical form.
func (c *Character) AddLore(entries ...LoreEntry) {
	for _, e := range entries {
		c.Lorebook = append(c.Lorebook, e.Canonical())
	}
}

// Extension keys used by the engine inside LoreEntry.Extensions.
const (
	ExtCaseSensitive     = "risu_case_sensitive"
	ExtActivationPercent = "risu_activationPercent"
)

// CaseSensitive reports whether key matching for e is case-sensitive.
func (e LoreEntry) CaseSensitive() bool {
	v, _ := e.Extensions[ExtCaseSensitive].(bool)
	return v
}

// PrimaryKeys returns the trimmed, non-empty primary keys.
func (e LoreEntry) PrimaryKeys() []string {
	return SplitKeys(e.Key)
}

// SecondaryKeys returns the trimmed, non-empty secondary keys.
func (e LoreEntry) SecondaryKeys() []string {
	return SplitKeys(e.SecondKey)
}

// LoreSettings overrides lorebook scanning. It is either fully populated or
// absent; partial settings are never stored.
type LoreSettings struct {
	TokenBudget       int  `json:"token_budget"`
	ScanDepth         int  `json:"scan_depth"`
	RecursiveScanning bool `json:"recursive_scanning"`
}

// SplitKeys splits a comma-joined key string into trimmed keys, dropping
// empty ones.
func SplitKeys(joined string) []string {
	parts := strings.Split(joined, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keys = append(keys, p)
		}
	}
	return keys
}

// JoinKeys joins keys with ", ".
func JoinKeys(keys []string) string {
	return strings.Join(keys, ", ")
}
