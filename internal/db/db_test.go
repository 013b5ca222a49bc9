package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/resummarize/internal/apperr"
	"github.com/starford/resummarize/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "resummarize-db-test-*.db")
	require.NoError(t, err)
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testUser(t *testing.T, db *DB, email string) *models.User {
	t.Helper()
	u, err := db.CreateUser(context.Background(), email, "hash", "email")
	require.NoError(t, err)
	return u
}

func ptr(s string) *string { return &s }

func TestSchemaVersion(t *testing.T) {
	db := testDB(t)
	var version int
	require.NoError(t, db.conn.QueryRow(`PRAGMA user_version`).Scan(&version))
	assert.Equal(t, CurrentSchemaVersion, version)

	for _, table := range []string{"users", "notes", "sessions", "password_resets", "oauth_states"} {
		var n int
		assert.NoError(t, db.conn.QueryRow(`SELECT count(*) FROM `+table).Scan(&n), table)
	}
}

func TestInsertNoteDefaultsTitle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := testUser(t, db, "a@example.com")

	n, err := db.InsertNote(ctx, u.ID, "   ", "body")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultNoteTitle, n.Title)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, n.CreatedAt, n.UpdatedAt)

	got, err := db.GetNote(ctx, u.ID, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "body", got.Content)
}

func TestInsertNoteRequiresUser(t *testing.T) {
	db := testDB(t)
	_, err := db.InsertNote(context.Background(), "", "t", "c")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestListOrderedByUpdatedDesc(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := testUser(t, db, "a@example.com")

	first, err := db.InsertNote(ctx, u.ID, "first", "")
	require.NoError(t, err)
	_, err = db.InsertNote(ctx, u.ID, "second", "")
	require.NoError(t, err)
	_, err = db.UpdateNote(ctx, u.ID, first.ID, models.NoteFields{Content: ptr("edited")})
	require.NoError(t, err)

	notes, err := db.ListNotes(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "first", notes[0].Title)
	assert.Equal(t, "second", notes[1].Title)
}

func TestUpdateAdvancesTimestampWithFrozenClock(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	frozen := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	db.SetClock(func() time.Time { return frozen })
	u := testUser(t, db, "a@example.com")

	n, err := db.InsertNote(ctx, u.ID, "t", "c")
	require.NoError(t, err)

	prev := n.UpdatedAt
	for i := 0; i < 3; i++ {
		updated, err := db.UpdateNote(ctx, u.ID, n.ID, models.NoteFields{Title: ptr("t2")})
		require.NoError(t, err)
		assert.True(t, updated.UpdatedAt.After(prev), "updated_at must increase")
		prev = updated.UpdatedAt
	}
}

func TestUpdatePartialFields(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := testUser(t, db, "a@example.com")
	n, err := db.InsertNote(ctx, u.ID, "title", "content")
	require.NoError(t, err)

	updated, err := db.UpdateNote(ctx, u.ID, n.ID, models.NoteFields{Content: ptr("new")})
	require.NoError(t, err)
	assert.Equal(t, "title", updated.Title)
	assert.Equal(t, "new", updated.Content)
}

func TestOwnershipIsolation(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	alice := testUser(t, db, "alice@example.com")
	bob := testUser(t, db, "bob@example.com")

	n, err := db.InsertNote(ctx, alice.ID, "secret", "x")
	require.NoError(t, err)

	_, err = db.GetNote(ctx, bob.ID, n.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = db.UpdateNote(ctx, bob.ID, n.ID, models.NoteFields{Title: ptr("mine")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, db.DeleteNote(ctx, bob.ID, n.ID), apperr.ErrNotFound)

	notes, err := db.ListNotes(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestDeleteIsHard(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := testUser(t, db, "a@example.com")
	n, err := db.InsertNote(ctx, u.ID, "gone", "")
	require.NoError(t, err)

	require.NoError(t, db.DeleteNote(ctx, u.ID, n.ID))
	_, err = db.GetNote(ctx, u.ID, n.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	var count int
	require.NoError(t, db.conn.QueryRow(`SELECT count(*) FROM notes WHERE id = ?`, n.ID).Scan(&count))
	assert.Zero(t, count)
}

func TestSearchNotes(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := testUser(t, db, "a@example.com")
	_, err := db.InsertNote(ctx, u.ID, "Groceries", "milk and eggs")
	require.NoError(t, err)
	_, err = db.InsertNote(ctx, u.ID, "Work", "quarterly report")
	require.NoError(t, err)

	hits, err := db.SearchNotes(ctx, u.ID, "report")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Work", hits[0].Title)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	testUser(t, db, "dup@example.com")

	_, err := db.CreateUser(ctx, "  DUP@example.com ", "h", "email")
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestSessionsAndResetTokens(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	db.SetClock(func() time.Time { return now })
	u := testUser(t, db, "a@example.com")

	require.NoError(t, db.CreateSession(ctx, "h1", u.ID, now.Add(time.Hour)))
	owner, exp, err := db.SessionByHash(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, owner)
	assert.True(t, exp.Equal(now.Add(time.Hour)))

	require.NoError(t, db.CreatePasswordReset(ctx, "r1", u.ID, now.Add(time.Minute)))
	got, err := db.ConsumePasswordReset(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got)
	_, err = db.ConsumePasswordReset(ctx, "r1")
	assert.ErrorIs(t, err, apperr.ErrNotFound, "reset tokens are single use")

	require.NoError(t, db.CreatePasswordReset(ctx, "r2", u.ID, now.Add(-time.Second)))
	_, err = db.ConsumePasswordReset(ctx, "r2")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, db.CreateSession(ctx, "old", u.ID, now.Add(-time.Minute)))
	purged, err := db.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)
}

type rowsResult struct {
	n   int64
	err error
}

func (r rowsResult) LastInsertId() (int64, error) { return 0, nil }
func (r rowsResult) RowsAffected() (int64, error) { return r.n, r.err }

func TestRequireAffected(t *testing.T) {
	assert.NoError(t, requireAffected("op", rowsResult{n: 1}))
	assert.ErrorIs(t, requireAffected("op", rowsResult{}), apperr.ErrNotFound)

	err := requireAffected("op", rowsResult{err: errors.New("driver gone")})
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)
	assert.Contains(t, err.Error(), "driver gone")
}
