//go:build sqlite_fts5

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/resummarize/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
			id UNINDEXED,
			title,
			content,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, title, content string) error {
	_, _ = tx.Exec(`DELETE FROM notes_fts WHERE id = ?`, id)
	_, err := tx.Exec(`INSERT INTO notes_fts (id, title, content) VALUES (?, ?, ?)`, id, title, content)
	if err != nil {
		return fmt.Errorf("upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id string) {
	_, _ = tx.Exec(`DELETE FROM notes_fts WHERE id = ?`, id)
}

// SearchNotes performs an FTS5 phrase search over the owner's notes.
func (db *DB) SearchNotes(ctx context.Context, userID, query string) ([]models.Note, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	phrase := `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
	rows, err := db.conn.QueryContext(ctx, `
		SELECT n.id, n.user_id, n.title, n.content, n.created_at, n.updated_at
		FROM notes_fts f
		JOIN notes n ON n.id = f.id
		WHERE notes_fts MATCH ? AND n.user_id = ?
		ORDER BY rank
	`, phrase, userID)
	if err != nil {
		return nil, persistErr("search notes", err)
	}
	notes, err := scanNotes(rows)
	if err != nil {
		return nil, persistErr("search notes", err)
	}
	return notes, nil
}
