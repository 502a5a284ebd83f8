package ratesource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Schema for the local cache: a single-row rate table plus the install
// record. This is the only persisted state in the whole system.
const Schema = `
CREATE TABLE IF NOT EXISTS rate_cache (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	catalog    REAL NOT NULL,
	classic    REAL NOT NULL,
	gamepass   REAL NOT NULL,
	fetched_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS install_info (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	installed_at INTEGER NOT NULL
);
`

// Store is the SQLite-backed cache.
type Store struct {
	DB *sql.DB
}

// OpenStore opens (creating if needed) the cache database with the
// production pragmas: WAL journaling, busy timeout, foreign keys.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ratesource: mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ratesource: open %s: %w", path, err)
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("ratesource: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ratesource: apply schema: %w", err)
	}

	return &Store{DB: db}, nil
}

// SaveTable upserts the cached table.
func (s *Store) SaveTable(ctx context.Context, t Table, fetchedAt time.Time) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO rate_cache (id, catalog, classic, gamepass, fetched_at)
		 VALUES (1, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   catalog = excluded.catalog,
		   classic = excluded.classic,
		   gamepass = excluded.gamepass,
		   fetched_at = excluded.fetched_at`,
		t.Catalog, t.Classic, t.Gamepass, fetchedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("ratesource: save table: %w", err)
	}
	return nil
}

// LoadTable returns the cached table and its fetch time, or (nil, zero)
// when nothing is cached yet.
func (s *Store) LoadTable(ctx context.Context) (*Table, time.Time, error) {
	var t Table
	var ms int64
	err := s.DB.QueryRowContext(ctx,
		`SELECT catalog, classic, gamepass, fetched_at FROM rate_cache WHERE id = 1`,
	).Scan(&t.Catalog, &t.Classic, &t.Gamepass, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("ratesource: load table: %w", err)
	}
	return &t, time.UnixMilli(ms), nil
}

// EnsureInstalledAt records now as the install time if none is recorded
// yet, and returns the effective install time.
func (s *Store) EnsureInstalledAt(ctx context.Context, now time.Time) (time.Time, error) {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO install_info (id, installed_at) VALUES (1, ?)
		 ON CONFLICT (id) DO NOTHING`, now.UnixMilli())
	if err != nil {
		return time.Time{}, fmt.Errorf("ratesource: record install: %w", err)
	}
	var ms int64
	if err := s.DB.QueryRowContext(ctx,
		`SELECT installed_at FROM install_info WHERE id = 1`).Scan(&ms); err != nil {
		return time.Time{}, fmt.Errorf("ratesource: read install: %w", err)
	}
	return time.UnixMilli(ms), nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}
