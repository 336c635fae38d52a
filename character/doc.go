// Package character defines the records the engine reads and mutates: character
// definitions, lore entries, chat sessions and group rooms.
//
// Records are plain structs owned by the caller's persistence layer. The prompt
// composer only reads them; the reply post-processor appends messages to a
// session and records emotions on the character.
//
// # Identity
//
// Character.ChaID is assigned once (see NewID) and never changes. It keys the
// per-character emotion history and message speaker references:
//
//	c := character.New("Alice")
//	c.RecentEmotions.Push(character.EmotionRecord{Label: "happy", Asset: handle})
//
// # Lore keys
//
// Lore entry keys are stored comma-joined, the way card authors type them.
// Use SplitKeys and JoinKeys to convert to and from the array form used by
// spec v2 cards.
package character
