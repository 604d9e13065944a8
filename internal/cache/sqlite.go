package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps snapshots in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the snapshot database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating snapshot dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS cache_snapshots (
		key         TEXT PRIMARY KEY,
		payload     BLOB NOT NULL,
		computed_at TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshot table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load returns the snapshot stored under key.
func (s *SQLiteStore) Load(ctx context.Context, key string) (Snapshot, bool, error) {
	var payload []byte
	var computedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, computed_at FROM cache_snapshots WHERE key = ?`, key,
	).Scan(&payload, &computedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("loading snapshot %s: %w", key, err)
	}

	ts, err := time.Parse(time.RFC3339Nano, computedAt)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("parsing snapshot time %q: %w", computedAt, err)
	}
	return Snapshot{Key: key, Payload: payload, ComputedAt: ts}, true, nil
}

// Save replaces the snapshot stored under snap.Key.
func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_snapshots (key, payload, computed_at) VALUES (?, ?, ?)`,
		snap.Key, snap.Payload, snap.ComputedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot %s: %w", snap.Key, err)
	}
	return nil
}

// Close closes the snapshot database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
