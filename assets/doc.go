// Package assets stores binary card assets (images, emotion sprites, extra
// files) and fetches remote resources referenced by hub cards.
//
// Assets are content addressed. A handle has the form
//
//	assets/[hint/]<blake3-hex>.<ext>
//
// so saving the same bytes twice yields the same handle in every Store
// implementation. Handles are opaque to callers; only the store that
// produced one can read it back.
//
// Three stores are provided: MemoryStore for tests and one-shot CLI runs,
// FileStore for a directory tree, and SQLiteStore for a single database file.
package assets
