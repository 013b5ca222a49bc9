package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/resummarize/internal/apperr"
	"github.com/starford/resummarize/internal/models"
)

// NormalizeEmail lower-cases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func scanUser(s rowScanner) (*models.User, string, error) {
	var u models.User
	var hash string
	var created int64
	if err := s.Scan(&u.ID, &u.Email, &hash, &u.Provider, &created); err != nil {
		return nil, "", err
	}
	u.CreatedAt = fromUnix(created)
	return &u, hash, nil
}

// CreateUser inserts an account. A taken email yields apperr.ErrConflict.
func (db *DB) CreateUser(ctx context.Context, email, passwordHash, provider string) (*models.User, error) {
	u := &models.User{
		ID:        uuid.NewString(),
		Email:     NormalizeEmail(email),
		Provider:  provider,
		CreatedAt: db.now().UTC(),
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, provider, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, u.ID, u.Email, passwordHash, u.Provider, toUnix(u.CreatedAt))
	if isUniqueViolation(err) {
		return nil, apperr.ErrConflict
	}
	if err != nil {
		return nil, persistErr("create user", err)
	}
	return u, nil
}

// UserByEmail returns the account and its password hash.
func (db *DB) UserByEmail(ctx context.Context, email string) (*models.User, string, error) {
	u, hash, err := scanUser(db.conn.QueryRowContext(ctx, `
		SELECT id, email, password_hash, provider, created_at FROM users WHERE email = ?
	`, NormalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", apperr.ErrNotFound
	}
	if err != nil {
		return nil, "", persistErr("user by email", err)
	}
	return u, hash, nil
}

// UserByID returns the account with the given id.
func (db *DB) UserByID(ctx context.Context, id string) (*models.User, error) {
	u, _, err := scanUser(db.conn.QueryRowContext(ctx, `
		SELECT id, email, password_hash, provider, created_at FROM users WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, persistErr("user by id", err)
	}
	return u, nil
}

// SetPasswordHash replaces the stored password hash.
func (db *DB) SetPasswordHash(ctx context.Context, userID, hash string) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, userID)
	if err != nil {
		return persistErr("set password", err)
	}
	return requireAffected("set password", res)
}

// CreateSession stores a session keyed by the digest of its token.
func (db *DB) CreateSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sessions (token_hash, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)
	`, tokenHash, userID, toUnix(db.now()), toUnix(expiresAt))
	if err != nil {
		return persistErr("create session", err)
	}
	return nil
}

// SessionByHash returns the owner and expiry of a session.
func (db *DB) SessionByHash(ctx context.Context, tokenHash string) (string, time.Time, error) {
	var userID string
	var expires int64
	err := db.conn.QueryRowContext(ctx, `
		SELECT user_id, expires_at FROM sessions WHERE token_hash = ?
	`, tokenHash).Scan(&userID, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, apperr.ErrNotFound
	}
	if err != nil {
		return "", time.Time{}, persistErr("get session", err)
	}
	return userID, fromUnix(expires), nil
}

// ExtendSession moves a session's expiry.
func (db *DB) ExtendSession(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	if _, err := db.conn.ExecContext(ctx, `
		UPDATE sessions SET expires_at = ? WHERE token_hash = ?
	`, toUnix(expiresAt), tokenHash); err != nil {
		return persistErr("extend session", err)
	}
	return nil
}

// DeleteSession removes a session. Unknown sessions are ignored.
func (db *DB) DeleteSession(ctx context.Context, tokenHash string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash); err != nil {
		return persistErr("delete session", err)
	}
	return nil
}

// DeleteExpired purges expired sessions, reset tokens and OAuth states.
func (db *DB) DeleteExpired(ctx context.Context) (int64, error) {
	now := toUnix(db.now())
	var total int64
	for _, table := range []string{"sessions", "password_resets", "oauth_states"} {
		res, err := db.conn.ExecContext(ctx, `DELETE FROM `+table+` WHERE expires_at <= ?`, now)
		if err != nil {
			return total, persistErr("purge "+table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, persistErr("purge "+table, err)
		}
		total += n
	}
	return total, nil
}

// CreatePasswordReset stores a one-time password reset token digest.
func (db *DB) CreatePasswordReset(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	if _, err := db.conn.ExecContext(ctx, `
		INSERT INTO password_resets (token_hash, user_id, expires_at) VALUES (?, ?, ?)
	`, tokenHash, userID, toUnix(expiresAt)); err != nil {
		return persistErr("create password reset", err)
	}
	return nil
}

// ConsumePasswordReset deletes the token and returns its owner. Expired or
// unknown tokens yield apperr.ErrNotFound.
func (db *DB) ConsumePasswordReset(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	var expires int64
	err := db.conn.QueryRowContext(ctx, `
		DELETE FROM password_resets WHERE token_hash = ? RETURNING user_id, expires_at
	`, tokenHash).Scan(&userID, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", persistErr("consume password reset", err)
	}
	if !db.now().Before(fromUnix(expires)) {
		return "", apperr.ErrNotFound
	}
	return userID, nil
}

// SaveOAuthState records a pending OAuth authorization.
func (db *DB) SaveOAuthState(ctx context.Context, state, provider, next string, expiresAt time.Time) error {
	if _, err := db.conn.ExecContext(ctx, `
		INSERT INTO oauth_states (state, provider, next, expires_at) VALUES (?, ?, ?, ?)
	`, state, provider, next, toUnix(expiresAt)); err != nil {
		return persistErr("save oauth state", err)
	}
	return nil
}

// ConsumeOAuthState deletes a pending authorization and returns its provider
// and post-login destination.
func (db *DB) ConsumeOAuthState(ctx context.Context, state string) (string, string, error) {
	var provider, next string
	var expires int64
	err := db.conn.QueryRowContext(ctx, `
		DELETE FROM oauth_states WHERE state = ? RETURNING provider, next, expires_at
	`, state).Scan(&provider, &next, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", apperr.ErrNotFound
	}
	if err != nil {
		return "", "", persistErr("consume oauth state", err)
	}
	if !db.now().Before(fromUnix(expires)) {
		return "", "", apperr.ErrNotFound
	}
	return provider, next, nil
}
