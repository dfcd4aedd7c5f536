/*
Package sqlite provides a SQLite-backed implementation of generic.Persister.

PURPOSE:
  Durable key-value storage for store snapshots and the session side
  channel, so a restarted dashboard can restore what the user was looking
  at and reconstruct the session via CheckAuth.

KEY TABLE:
  kv: key TEXT PRIMARY KEY, value TEXT (JSON), updated_at TEXT (RFC3339)

WRITE SEMANTICS:
  Save is an upsert. There is no cross-process coordination: two dashboards
  pointed at the same file overwrite each other (last writer wins).

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of database/sql pooling.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers don't block
  the snapshot writer.

USAGE:
  store, err := sqlite.New("./data/certdash.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  courses := certs.NewCourseStore(src, generic.WithPersister(store))

SEE ALSO:
  - generic/store.go: Persister interface
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/certdash/generic"
)

// Store implements generic.Persister using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Entry is one stored key with its metadata.
type Entry struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load returns the value stored under key.
func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return []byte(value), nil
}

// Save upserts value under key.
func (s *Store) Save(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(value), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys lists all keys in lexical order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Entries returns every stored entry, ordered by key.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT key, value, updated_at FROM kv ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var value, updated string
		if err := rows.Scan(&e.Key, &value, &updated); err != nil {
			return nil, err
		}
		e.Value = []byte(value)
		e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Reset deletes every stored key.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM kv`)
	return err
}
