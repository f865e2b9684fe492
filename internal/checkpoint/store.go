// Package checkpoint persists the per-source "last checked" watermark
// that makes each polling run pick up where the previous one stopped.
package checkpoint

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS last_checked (
	source TEXT NOT NULL,
	last_checked TEXT NOT NULL,
	PRIMARY KEY (source)
);`

// naiveLayout matches timestamps stored without a zone offset; they
// are assumed UTC.
const naiveLayout = "2006-01-02T15:04:05.999999999"

// Store is a sqlite-backed watermark store. It holds at most one
// record per source and is opened and closed within a single run.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the watermark database at path and
// applies the schema. A failure here is fatal for the whole run:
// nothing can be safely polled without a place to record progress.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("checkpoint database path is required")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the last recorded checkpoint for a source. The boolean
// is false when the source has never been checked.
func (s *Store) Get(source string) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRow(`SELECT last_checked FROM last_checked WHERE source = ?`, source).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read checkpoint for %s: %w", source, err)
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		// Zone-less timestamps are assumed UTC.
		t, err = time.ParseInLocation(naiveLayout, raw, time.UTC)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("malformed checkpoint for %s: %w", source, err)
		}
	}

	return t.UTC(), true, nil
}

// Set durably upserts the checkpoint for a source.
func (s *Store) Set(source string, t time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO last_checked (source, last_checked) VALUES (?, ?)
		ON CONFLICT (source) DO UPDATE SET last_checked = excluded.last_checked`,
		source, t.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to update checkpoint for %s: %w", source, err)
	}
	return nil
}
