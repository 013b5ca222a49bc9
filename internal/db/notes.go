package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/starford/resummarize/internal/apperr"
	"github.com/starford/resummarize/internal/models"
)

// NoteStore is the note persistence contract consumed by the lifecycle
// controller. Every operation is scoped to one owner.
type NoteStore interface {
	ListNotes(ctx context.Context, userID string) ([]models.Note, error)
	SearchNotes(ctx context.Context, userID, query string) ([]models.Note, error)
	GetNote(ctx context.Context, userID, id string) (*models.Note, error)
	InsertNote(ctx context.Context, userID, title, content string) (*models.Note, error)
	UpdateNote(ctx context.Context, userID, id string, fields models.NoteFields) (*models.Note, error)
	DeleteNote(ctx context.Context, userID, id string) error
}

var _ NoteStore = (*DB)(nil)

const noteColumns = `id, user_id, title, content, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(s rowScanner) (models.Note, error) {
	var n models.Note
	var created, updated int64
	if err := s.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &created, &updated); err != nil {
		return n, err
	}
	n.CreatedAt = fromUnix(created)
	n.UpdatedAt = fromUnix(updated)
	return n, nil
}

func scanNotes(rows *sql.Rows) ([]models.Note, error) {
	defer rows.Close()
	out := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperr.Validation("user id is required")
	}
	return nil
}

// ListNotes returns the owner's notes, most recently updated first.
func (db *DB) ListNotes(ctx context.Context, userID string) ([]models.Note, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+noteColumns+`
		FROM notes
		WHERE user_id = ?
		ORDER BY updated_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, persistErr("list notes", err)
	}
	notes, err := scanNotes(rows)
	if err != nil {
		return nil, persistErr("list notes", err)
	}
	return notes, nil
}

// GetNote returns one note or apperr.ErrNotFound.
func (db *DB) GetNote(ctx context.Context, userID, id string) (*models.Note, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	n, err := scanNote(db.conn.QueryRowContext(ctx, `
		SELECT `+noteColumns+` FROM notes WHERE id = ? AND user_id = ?
	`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, persistErr("get note", err)
	}
	return &n, nil
}

// InsertNote creates a note. A blank title becomes models.DefaultNoteTitle.
func (db *DB) InsertNote(ctx context.Context, userID, title, content string) (*models.Note, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		title = models.DefaultNoteTitle
	}

	now := db.now().UTC()
	n := models.Note{
		ID:        db.newID(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistErr("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO notes (id, user_id, title, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, n.ID, n.UserID, n.Title, n.Content, toUnix(now), toUnix(now)); err != nil {
		return nil, persistErr("insert note", err)
	}
	if err := ftsUpsert(tx, n.ID, n.Title, n.Content); err != nil {
		return nil, persistErr("insert note", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, persistErr("insert note", err)
	}
	return &n, nil
}

// UpdateNote applies fields to the note and stamps updated_at. The new
// timestamp is always strictly later than the previous one.
func (db *DB) UpdateNote(ctx context.Context, userID, id string, fields models.NoteFields) (*models.Note, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistErr("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	n, err := scanNote(tx.QueryRowContext(ctx, `
		SELECT `+noteColumns+` FROM notes WHERE id = ? AND user_id = ?
	`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, persistErr("update note", err)
	}

	n = fields.Apply(n)
	now := db.now().UTC()
	if !now.After(n.UpdatedAt) {
		now = n.UpdatedAt.Add(1)
	}
	n.UpdatedAt = now

	if _, err := tx.ExecContext(ctx, `
		UPDATE notes SET title = ?, content = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, n.Title, n.Content, toUnix(now), id, userID); err != nil {
		return nil, persistErr("update note", err)
	}
	if err := ftsUpsert(tx, n.ID, n.Title, n.Content); err != nil {
		return nil, persistErr("update note", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, persistErr("update note", err)
	}
	return &n, nil
}

// DeleteNote permanently removes a note.
func (db *DB) DeleteNote(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return persistErr("delete note", err)
	}
	if err := requireAffected("delete note", res); err != nil {
		return err
	}
	ftsDelete(tx, id)
	if err := tx.Commit(); err != nil {
		return persistErr("delete note", err)
	}
	return nil
}
