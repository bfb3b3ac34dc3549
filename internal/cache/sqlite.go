// Package cache provides the durable key-value stores the reconciliation
// engine needs across runs: geocode results, postal-code/neighborhood to
// city mappings, and the match-memory. Values are JSON, grouped by
// namespace, persisted immediately on every put so progress survives
// interruption.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Namespaces used by the engine.
const (
	NSPositions     = "positions"
	NSZipcodes      = "zipcodes"
	NSNeighborhoods = "neighborhoods"
	NSMatches       = "matches"
)

// Store is a sqlite-backed durable key-value store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache database at path and
// configures WAL mode.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS kv (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (namespace, key)
);

CREATE INDEX IF NOT EXISTS idx_kv_namespace ON kv(namespace);
`

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "cache: migrate")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get loads the value stored under (namespace, key) into dest. The bool
// reports whether the key exists.
func (s *Store) Get(ctx context.Context, namespace, key string, dest any) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`,
		namespace, key,
	)

	var raw string
	err := row.Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "cache: get %s/%s", namespace, key)
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, eris.Wrapf(err, "cache: unmarshal %s/%s", namespace, key)
	}
	return true, nil
}

// Put upserts value under (namespace, key), durably.
func (s *Store) Put(ctx context.Context, namespace, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return eris.Wrapf(err, "cache: marshal %s/%s", namespace, key)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		namespace, key, string(raw), time.Now().UTC(),
	)
	return eris.Wrapf(err, "cache: put %s/%s", namespace, key)
}

// List returns every key/value pair in a namespace, values still raw JSON.
func (s *Store) List(ctx context.Context, namespace string) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM kv WHERE namespace = ?`,
		namespace,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "cache: list %s", namespace)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, eris.Wrapf(err, "cache: scan %s", namespace)
		}
		out[key] = json.RawMessage(raw)
	}
	return out, eris.Wrapf(rows.Err(), "cache: list %s iterate", namespace)
}
