package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// FileStore keeps assets as files below a root directory. A handle maps to
// the path root/<handle without the "assets/" prefix>.
type FileStore struct {
	root string
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	return &FileStore{root: dir}, nil
}

// Root returns the store directory.
func (s *FileStore) Root() string {
	return s.root
}

// Save implements Store. Existing files with the same handle are left alone.
func (s *FileStore) Save(ctx context.Context, data []byte, hint, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	h := Handle(data, hint, filename)
	rel, err := checkHandle(h)
	if err != nil {
		return "", err
	}
	p := filepath.Join(s.root, filepath.FromSlash(rel))

	if _, err := os.Stat(p); err == nil {
		return h, nil
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create asset dir: %w", err)
	}

	// Write to a temp file first so readers never see a partial asset.
	tmp, err := os.CreateTemp(filepath.Dir(p), ".asset-*")
	if err != nil {
		return "", fmt.Errorf("create temp asset: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write asset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close asset: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("commit asset: %w", err)
	}

	slog.Debug("asset saved", slog.String("handle", h), slog.Int("bytes", len(data)))
	return h, nil
}

// Read implements Store.
func (s *FileStore) Read(ctx context.Context, handle string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel, err := checkHandle(handle)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(rel)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read asset: %w", err)
	}
	return data, nil
}
