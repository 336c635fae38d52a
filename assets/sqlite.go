package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const assetSchema = `
CREATE TABLE IF NOT EXISTS assets (
	handle   TEXT PRIMARY KEY,
	filename TEXT NOT NULL DEFAULT '',
	data     BLOB NOT NULL
)`

// SQLiteStore keeps assets in a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) an asset database at path.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open asset db: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, assetSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create asset schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, data []byte, hint, filename string) (string, error) {
	h := Handle(data, hint, filename)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assets (handle, filename, data) VALUES (?, ?, ?) ON CONFLICT(handle) DO NOTHING`,
		h, filename, data)
	if err != nil {
		return "", fmt.Errorf("save asset: %w", err)
	}
	return h, nil
}

// Read implements Store.
func (s *SQLiteStore) Read(ctx context.Context, handle string) ([]byte, error) {
	if _, err := checkHandle(handle); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM assets WHERE handle = ?`, handle).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read asset: %w", err)
	}
	return data, nil
}

// Count returns the number of stored assets.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count assets: %w", err)
	}
	return n, nil
}
