package notes

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/resummarize/internal/apperr"
	"github.com/starford/resummarize/internal/db"
	"github.com/starford/resummarize/internal/models"
	"github.com/starford/resummarize/internal/sse"
	"github.com/starford/resummarize/internal/testutil"
)

type countingSummarizer struct {
	mu    sync.Mutex
	calls []string
}

func (s *countingSummarizer) Inline(_ context.Context, content string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, content)
	return "summary of " + content[:10]
}

func (s *countingSummarizer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newAutosaver(f *fixture, sum InlineSummarizer) *Autosaver {
	return NewAutosaver(f.ctrl, sum, f.rec, AutosaveOptions{
		Delay:                  40 * time.Millisecond,
		InlineSummaryDelay:     40 * time.Millisecond,
		InlineSummaryThreshold: 100,
	}, nil)
}

func TestAutosaveCoalescesEdits(t *testing.T) {
	f := newFixture(t)
	n, err := f.ctrl.Create(f.ctx, "Draft", "")
	require.NoError(t, err)
	a := newAutosaver(f, nil)
	defer a.Close()

	require.NoError(t, a.Edit(f.ctx, n.ID, models.NoteFields{Content: ptr("h")}))
	require.NoError(t, a.Edit(f.ctx, n.ID, models.NoteFields{Content: ptr("he")}))
	require.NoError(t, a.Edit(f.ctx, n.ID, models.NoteFields{Title: ptr("Greeting")}))
	require.NoError(t, a.Edit(f.ctx, n.ID, models.NoteFields{Content: ptr("hello")}))
	assert.True(t, a.Pending(f.ctx, n.ID))

	require.Eventually(t, func() bool {
		return len(f.rec.types()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{sse.TypeNoteSaved}, f.rec.types())
	assert.False(t, a.Pending(f.ctx, n.ID))

	got, err := f.ctrl.Get(f.ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Greeting", got.Title)
	assert.Equal(t, "hello", got.Content)

	// One update: created + updated.
	assert.Equal(t, []string{"created:" + n.ID, "updated:" + n.ID}, f.rec.noteEvents())
}

func TestAutosaveFlush(t *testing.T) {
	f := newFixture(t)
	n, err := f.ctrl.Create(f.ctx, "Draft", "")
	require.NoError(t, err)
	a := NewAutosaver(f.ctrl, nil, f.rec, AutosaveOptions{Delay: time.Hour}, nil)
	defer a.Close()

	require.NoError(t, a.Edit(f.ctx, n.ID, models.NoteFields{Content: ptr("now")}))
	saved, err := a.Flush(f.ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "now", saved.Content)
	assert.False(t, a.Pending(f.ctx, n.ID))

	// Nothing pending: returns the stored note.
	again, err := a.Flush(f.ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "now", again.Content)
}

// slowStore holds updates writing content until released.
type slowStore struct {
	db.NoteStore
	content string
	entered chan struct{}
	release chan struct{}
}

func (s *slowStore) UpdateNote(ctx context.Context, userID, id string, f models.NoteFields) (*models.Note, error) {
	if f.Content != nil && *f.Content == s.content {
		close(s.entered)
		<-s.release
	}
	return s.NoteStore.UpdateNote(ctx, userID, id, f)
}

func TestAutosaveCommitsOfOneNoteRunInOrder(t *testing.T) {
	d := testutil.TestDB(t)
	ctx, _ := testutil.TestUser(t, d, "owner@example.com")
	store := &slowStore{
		NoteStore: d,
		content:   "older",
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	ctrl := NewController(store, time.Minute, nil, nil)
	n, err := ctrl.Create(ctx, "Draft", "")
	require.NoError(t, err)
	a := NewAutosaver(ctrl, nil, nil, AutosaveOptions{Delay: time.Hour}, nil)
	defer a.Close()

	require.NoError(t, a.Edit(ctx, n.ID, models.NoteFields{Content: ptr("older")}))
	first := make(chan error, 1)
	go func() {
		_, err := a.Flush(ctx, n.ID)
		first <- err
	}()
	<-store.entered

	require.NoError(t, a.Edit(ctx, n.ID, models.NoteFields{Content: ptr("newer")}))
	second := make(chan error, 1)
	go func() {
		_, err := a.Flush(ctx, n.ID)
		second <- err
	}()

	select {
	case <-second:
		t.Fatal("second commit ran while the first was still in the store")
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	got, err := ctrl.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "newer", got.Content)
	assert.Empty(t, a.commits)
}

func TestAutosaveFailurePublished(t *testing.T) {
	f := newFixture(t)
	n, err := f.ctrl.Create(f.ctx, "Draft", "")
	require.NoError(t, err)
	a := NewAutosaver(f.ctrl, nil, f.rec, AutosaveOptions{Delay: time.Hour}, nil)
	defer a.Close()

	f.store.setFail(true)
	require.NoError(t, a.Edit(f.ctx, n.ID, models.NoteFields{Content: ptr("lost?")}))
	_, err = a.Flush(f.ctx, n.ID)
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	assert.Equal(t, []string{sse.TypeNoteSaveFailed}, f.rec.types())
}

func TestAutosaveValidation(t *testing.T) {
	f := newFixture(t)
	a := newAutosaver(f, nil)
	defer a.Close()

	assert.ErrorIs(t, a.Edit(context.Background(), "id", models.NoteFields{Title: ptr("x")}), apperr.ErrNotAuthenticated)
	assert.ErrorIs(t, a.Edit(f.ctx, "", models.NoteFields{Title: ptr("x")}), apperr.ErrValidation)
	assert.ErrorIs(t, a.Edit(f.ctx, "id", models.NoteFields{}), apperr.ErrValidation)
}

func TestInlineSummaryScheduledForLongContent(t *testing.T) {
	f := newFixture(t)
	n, err := f.ctrl.Create(f.ctx, "Draft", "")
	require.NoError(t, err)
	sum := &countingSummarizer{}
	a := newAutosaver(f, sum)
	defer a.Close()

	require.NoError(t, a.Edit(f.ctx, n.ID, models.NoteFields{Content: ptr(strings.Repeat("s", 100))}))
	require.NoError(t, a.Edit(f.ctx, n.ID, models.NoteFields{Content: ptr(strings.Repeat("l", 101))}))
	require.NoError(t, a.Edit(f.ctx, n.ID, models.NoteFields{Content: ptr(strings.Repeat("m", 150))}))

	require.Eventually(t, func() bool {
		for _, typ := range f.rec.types() {
			if typ == sse.TypeNoteSummary {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, sum.count())
	assert.Equal(t, strings.Repeat("m", 150), sum.calls[0])
}

func TestCloseCommitsPendingEdits(t *testing.T) {
	f := newFixture(t)
	n, err := f.ctrl.Create(f.ctx, "Draft", "")
	require.NoError(t, err)
	a := NewAutosaver(f.ctrl, nil, f.rec, AutosaveOptions{Delay: time.Hour}, nil)

	require.NoError(t, a.Edit(f.ctx, n.ID, models.NoteFields{Content: ptr("before shutdown")}))
	a.Close()

	got, err := f.ctrl.Get(f.ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "before shutdown", got.Content)
}
