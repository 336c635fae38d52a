package assets

import (
	"context"
	"encoding/hex"
	"path"
	"strings"
	"sync"

	"github.com/zeebo/blake3"
)

// DefaultExt is used when a filename carries no extension.
const DefaultExt = "png"

// handlePrefix starts every handle.
const handlePrefix = "assets/"

// Store persists asset bytes and returns handles for them.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores data and returns its handle. hint is an optional grouping
	// (such as a character id) and filename supplies the extension.
	Save(ctx context.Context, data []byte, hint, filename string) (string, error)

	// Read returns the bytes for a handle, or ErrNotFound.
	Read(ctx context.Context, handle string) ([]byte, error)
}

// Sum returns the hex blake3 digest of data.
func Sum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Handle computes the content-addressed handle for data.
func Handle(data []byte, hint, filename string) string {
	ext := strings.TrimPrefix(path.Ext(filename), ".")
	if ext == "" {
		ext = DefaultExt
	}
	name := Sum(data) + "." + strings.ToLower(ext)
	if hint = cleanHint(hint); hint != "" {
		return handlePrefix + hint + "/" + name
	}
	return handlePrefix + name
}

// cleanHint keeps hints to a single safe path segment.
func cleanHint(hint string) string {
	hint = strings.TrimSpace(hint)
	hint = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(hint)
	return hint
}

// checkHandle validates a handle and returns its path below the prefix.
func checkHandle(handle string) (string, error) {
	rel, ok := strings.CutPrefix(handle, handlePrefix)
	if !ok || rel == "" || strings.Contains(rel, "..") || strings.HasPrefix(rel, "/") {
		return "", ErrInvalidHandle
	}
	return rel, nil
}

// MemoryStore keeps assets in memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, data []byte, hint, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	h := Handle(data, hint, filename)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[h] = append([]byte(nil), data...)
	return h, nil
}

// Read implements Store.
func (s *MemoryStore) Read(ctx context.Context, handle string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := checkHandle(handle); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[handle]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Len returns the number of stored assets.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
