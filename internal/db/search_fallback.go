//go:build !sqlite_fts5

package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/starford/resummarize/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on the notes table.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _ string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) {}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchNotes returns the owner's notes whose title or content contains
// query, case-insensitively, most recently updated first.
func (db *DB) SearchNotes(ctx context.Context, userID, query string) ([]models.Note, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	like := "%" + likeEscaper.Replace(query) + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+noteColumns+`
		FROM notes
		WHERE user_id = ? AND (title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')
		ORDER BY updated_at DESC, id DESC
	`, userID, like, like)
	if err != nil {
		return nil, persistErr("search notes", err)
	}
	notes, err := scanNotes(rows)
	if err != nil {
		return nil, persistErr("search notes", err)
	}
	return notes, nil
}
