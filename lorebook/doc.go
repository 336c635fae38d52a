// Package lorebook selects the lore entries triggered by recent chat and
// renders them into one block of text.
//
// An entry activates when it is always-active, or when one of its primary
// keys appears in the scanned window (and, for selective entries, one of its
// secondary keys too). Activated entries are ordered by insertion order and
// added until the token budget is spent.
package lorebook
