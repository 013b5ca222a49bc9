//go:build sqlite_fts5

package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/resummarize/internal/models"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	require.NoError(t, db.conn.QueryRow(`SELECT count(*) FROM notes_fts`).Scan(&count))
}

func TestFTS5_DeleteRemovesFromIndex(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := testUser(t, db, "a@example.com")
	n, err := db.InsertNote(ctx, u.ID, "Vanishing", "vanishing content")
	require.NoError(t, err)
	require.NoError(t, db.DeleteNote(ctx, u.ID, n.ID))

	hits, err := db.SearchNotes(ctx, u.ID, "vanishing")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFTS5_UpdateReplacesContent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := testUser(t, db, "a@example.com")
	n, err := db.InsertNote(ctx, u.ID, "Note", "alpha")
	require.NoError(t, err)
	_, err = db.UpdateNote(ctx, u.ID, n.ID, models.NoteFields{Content: ptr("beta")})
	require.NoError(t, err)

	hits, err := db.SearchNotes(ctx, u.ID, "alpha")
	require.NoError(t, err)
	assert.Empty(t, hits)
	hits, err = db.SearchNotes(ctx, u.ID, "beta")
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}
