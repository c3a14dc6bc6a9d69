// SQLite KV backend.
//
// Information Hiding:
// - SQLite connection management hidden behind interface
// - Schema and expiry bookkeeping encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SqliteKV implements KV using a SQLite database file.
// Expired rows are deleted on read, so a hit is always fresh.
type SqliteKV struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSqliteKV opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqliteKV(path string) (*SqliteKV, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	kv := &SqliteKV{db: db, now: time.Now}
	if err := kv.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return kv, nil
}

// NewSqliteKVInMemory creates an in-memory database (useful for testing).
func NewSqliteKVInMemory() (*SqliteKV, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	kv := &SqliteKV{db: db, now: time.Now}
	if err := kv.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return kv, nil
}

// WithClock overrides the time source (for tests).
func (s *SqliteKV) WithClock(now func() time.Time) *SqliteKV {
	s.now = now
	return s
}

// Close closes the database connection.
func (s *SqliteKV) Close() error {
	return s.db.Close()
}

func (s *SqliteKV) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			expires_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_kv_expires
		ON kv(expires_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the value for key. Expired rows are deleted and reported
// as a miss.
func (s *SqliteKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt int64

	row := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM kv WHERE key = ?`, key)
	if err := row.Scan(&value, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read key %q: %w", key, err)
	}

	if s.now().UnixMilli() > expiresAt {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
			return nil, false, fmt.Errorf("failed to expire key %q: %w", key, err)
		}
		return nil, false, nil
	}

	return value, true, nil
}

// Put writes the value with the given TTL, replacing any previous value.
func (s *SqliteKV) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	expiresAt := s.now().Add(ttl).UnixMilli()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// Verify SqliteKV implements KV
var _ KV = (*SqliteKV)(nil)
