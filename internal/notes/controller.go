// Package notes mediates note mutations between callers and the
// persistence gateway. It keeps a per-user cached note list that is
// updated optimistically and rolled back when the store rejects a change.
package notes

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/starford/resummarize/internal/apperr"
	"github.com/starford/resummarize/internal/auth"
	"github.com/starford/resummarize/internal/db"
	"github.com/starford/resummarize/internal/models"
	"github.com/starford/resummarize/internal/querycache"
	"github.com/starford/resummarize/internal/sse"
)

// Publisher receives note change notifications.
type Publisher interface {
	Publish(userID string, event sse.Event)
	PublishNoteEvent(userID, kind, id string)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, sse.Event) {}
func (nopPublisher) PublishNoteEvent(string, string, string) {}

// Controller implements the note lifecycle operations.
type Controller struct {
	store  db.NoteStore
	lists  *querycache.Cache[[]models.Note]
	events Publisher
	logger *slog.Logger
}

// NewController creates a controller whose cached lists stay fresh for
// listStale. events may be nil.
func NewController(store db.NoteStore, listStale time.Duration, events Publisher, logger *slog.Logger) *Controller {
	if events == nil {
		events = nopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:  store,
		lists:  querycache.New[[]models.Note](listStale),
		events: events,
		logger: logger,
	}
}

func listKey(userID string) string {
	return "notes:" + userID
}

func clone(notes []models.Note) []models.Note {
	return append([]models.Note{}, notes...)
}

func byRecency(notes []models.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})
}

// List returns the caller's notes, most recently updated first.
func (c *Controller) List(ctx context.Context) ([]models.Note, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}
	notes, err := c.lists.Fetch(ctx, listKey(userID), func(ctx context.Context) ([]models.Note, error) {
		return c.store.ListNotes(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return clone(notes), nil
}

// Search returns notes whose title or content contains query. A blank
// query lists every note.
func (c *Controller) Search(ctx context.Context, query string) ([]models.Note, error) {
	if strings.TrimSpace(query) == "" {
		return c.List(ctx)
	}
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}
	notes, err := c.store.SearchNotes(ctx, userID, strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []models.Note{}
	}
	return notes, nil
}

// Get returns one note of the caller.
func (c *Controller) Get(ctx context.Context, id string) (*models.Note, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperr.Validation("note id is required")
	}
	return c.store.GetNote(ctx, userID, id)
}

// Create persists a new note. A blank title becomes the default title.
func (c *Controller) Create(ctx context.Context, title, content string) (*models.Note, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}
	n, err := c.store.InsertNote(ctx, userID, title, content)
	if err != nil {
		return nil, err
	}
	c.lists.Invalidate(listKey(userID))
	c.events.PublishNoteEvent(userID, sse.KindCreated, n.ID)
	return n, nil
}

// Update applies the set fields. The cached list reflects the change
// before the store confirms it and is restored if the store fails.
func (c *Controller) Update(ctx context.Context, id string, fields models.NoteFields) (*models.Note, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperr.Validation("note id is required")
	}
	if fields.Empty() {
		return nil, apperr.Validation("at least one of title or content is required")
	}

	key := listKey(userID)
	snapshot, cached := c.lists.Update(key, func(notes []models.Note) []models.Note {
		out := clone(notes)
		for i := range out {
			if out[i].ID == id {
				out[i] = fields.Apply(out[i])
			}
		}
		return out
	})

	n, err := c.store.UpdateNote(ctx, userID, id, fields)
	if err != nil {
		if cached {
			c.rollbackUpdate(key, id, fields, snapshot.Data)
		}
		return nil, err
	}

	c.lists.Update(key, func(notes []models.Note) []models.Note {
		out := clone(notes)
		for i := range out {
			if out[i].ID == n.ID {
				out[i] = *n
			}
		}
		byRecency(out)
		return out
	})
	c.events.PublishNoteEvent(userID, sse.KindUpdated, n.ID)
	return n, nil
}

// Delete removes a note permanently. It disappears from the cached list
// at once and comes back if the store fails.
func (c *Controller) Delete(ctx context.Context, id string) error {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		return apperr.Validation("note id is required")
	}

	key := listKey(userID)
	snapshot, cached := c.lists.Update(key, func(notes []models.Note) []models.Note {
		out := make([]models.Note, 0, len(notes))
		for _, n := range notes {
			if n.ID != id {
				out = append(out, n)
			}
		}
		return out
	})

	if err := c.store.DeleteNote(ctx, userID, id); err != nil {
		if cached {
			c.rollbackDelete(key, id, snapshot.Data)
		}
		return err
	}
	c.events.PublishNoteEvent(userID, sse.KindDeleted, id)
	return nil
}

func find(notes []models.Note, id string) (models.Note, bool) {
	for _, n := range notes {
		if n.ID == id {
			return n, true
		}
	}
	return models.Note{}, false
}

// rollbackUpdate reverts one failed optimistic update in the current list.
// Changes to other notes made in the meantime stay. A version of the note
// confirmed by a later update is left alone. The list is expired so the
// next List reloads it from the store.
func (c *Controller) rollbackUpdate(key, id string, fields models.NoteFields, before []models.Note) {
	prev, ok := find(before, id)
	if ok {
		optimistic := fields.Apply(prev)
		c.lists.Update(key, func(notes []models.Note) []models.Note {
			out := clone(notes)
			for i := range out {
				if out[i].ID == id && out[i] == optimistic {
					out[i] = prev
				}
			}
			return out
		})
	}
	c.lists.Expire(key)
}

// rollbackDelete puts one note back into the current list after the store
// rejected its deletion and expires the list.
func (c *Controller) rollbackDelete(key, id string, before []models.Note) {
	prev, ok := find(before, id)
	if ok {
		c.lists.Update(key, func(notes []models.Note) []models.Note {
			if _, present := find(notes, id); present {
				return notes
			}
			out := append(clone(notes), prev)
			byRecency(out)
			return out
		})
	}
	c.lists.Expire(key)
}

// Cached returns the cached list of userID without fetching.
func (c *Controller) Cached(userID string) ([]models.Note, bool) {
	r, ok := c.lists.Peek(listKey(userID))
	if !ok || r.State != querycache.StateSuccess {
		return nil, false
	}
	return clone(r.Data), true
}
