// Package db provides the SQLite-backed persistence gateway for notes,
// accounts and sessions.
package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/starford/resummarize/internal/apperr"
)

// CurrentSchemaVersion is the user_version after all migrations ran.
const CurrentSchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL DEFAULT '',
	provider      TEXT NOT NULL DEFAULT 'email',
	created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notes (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	title      TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_user_updated ON notes(user_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS sessions (
	token_hash TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

CREATE TABLE IF NOT EXISTS password_resets (
	token_hash TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS oauth_states (
	state      TEXT PRIMARY KEY,
	provider   TEXT NOT NULL,
	next       TEXT NOT NULL DEFAULT '',
	expires_at INTEGER NOT NULL
);
`

// DB wraps a sql.DB with gateway operations.
type DB struct {
	conn *sql.DB
	now  func() time.Time

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Open opens (or creates) the SQLite database and applies migrations.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db: apply fts schema: %w", err)
	}
	return &DB{
		conn:    conn,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// SetClock replaces the time source. Intended for tests.
func (db *DB) SetClock(now func() time.Time) {
	db.now = now
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func migrate(conn *sql.DB) error {
	var version int
	if err := conn.QueryRow(`PRAGMA user_version;`).Scan(&version); err != nil {
		return fmt.Errorf("db: get user_version: %w", err)
	}

	if version < 1 {
		if _, err := conn.Exec(schemaV1); err != nil {
			return fmt.Errorf("db: migration 1 failed: %w", err)
		}
		if _, err := conn.Exec(`PRAGMA user_version=1`); err != nil {
			return fmt.Errorf("db: set user_version: %w", err)
		}
	}

	return nil
}

func (db *DB) newID() string {
	db.idMu.Lock()
	defer db.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(db.now()), db.entropy).String()
}

func persistErr(op string, err error) error {
	return fmt.Errorf("db: %s: %w: %w", op, apperr.ErrPersistence, err)
}

// requireAffected reports ErrNotFound when res touched no row.
func requireAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr(op, err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func toUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
