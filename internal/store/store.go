// Package store persists assets, baselines, and drift report metadata in a
// local SQLite database. Baselines are append-only: versions are immutable
// once superseded, and appends are serialized per asset.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned for unknown assets or assets without a
	// baseline. Never silently creates anything.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a baseline append lost a concurrent
	// approval race. The caller must re-read the current baseline and
	// decide again.
	ErrConflict = errors.New("concurrent approval conflict")
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS assets (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	device_class  TEXT NOT NULL,
	impact_level  TEXT NOT NULL DEFAULT '',
	ip_address    TEXT NOT NULL DEFAULT '',
	site          TEXT NOT NULL DEFAULT '',
	owner         TEXT NOT NULL DEFAULT '',
	retired       INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS baselines (
	asset_id    TEXT NOT NULL REFERENCES assets(id),
	version     INTEGER NOT NULL,
	records     TEXT NOT NULL,
	approved_by TEXT NOT NULL,
	approved_at TEXT NOT NULL,
	PRIMARY KEY (asset_id, version)
);
`

// DB wraps the SQLite handle. Reads are concurrent; baseline writes are
// serialized per asset by approvalMu plus a version check inside the
// transaction, so the single-writer discipline holds even across processes.
type DB struct {
	sql *sql.DB

	mu         sync.Mutex
	approvalMu map[string]*sync.Mutex
}

// Open opens (or creates) the database at path and applies migrations.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("store: create directory: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	return &DB{sql: db, approvalMu: make(map[string]*sync.Mutex)}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.sql.Close()
}

// assetLock returns the per-asset approval mutex, creating it on first use.
func (d *DB) assetLock(assetID string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.approvalMu[assetID]
	if !ok {
		m = &sync.Mutex{}
		d.approvalMu[assetID] = m
	}
	return m
}

// DefaultPath returns the default database location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "cacm.db")
	}
	return filepath.Join(home, ".cacm", "cacm.db")
}
