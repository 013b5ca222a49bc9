package summarize

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/resummarize/internal/apperr"
	"github.com/starford/resummarize/internal/auth"
	"github.com/starford/resummarize/internal/models"
	"github.com/starford/resummarize/internal/parser"
)

// actionState remembers the last parsed list per user and which items the
// user ticked off. It is tied to one generation of the underlying summary.
type actionState struct {
	key       string
	generated time.Time
	items     []models.ActionItem
	completed map[string]bool
}

// ActionItems derives a to-do list from an actionable summary of notes.
// Completion flags survive cache hits and are reset whenever the summary
// is generated again.
func (o *Orchestrator) ActionItems(ctx context.Context, notes []models.Note, refresh bool, sort parser.SortOption) ([]models.ActionItem, error) {
	if len(notes) == 0 {
		return []models.ActionItem{}, nil
	}
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}
	key := cacheKey(userID, kindActions, models.SummaryActionable, noteIDs(notes))
	prompt := o.prompts.Summary(models.SummaryActionable) + "\n\nMultiple notes content:\n" + o.joinNotes(notes)
	text, err := o.query(ctx, key, refresh, prompt)
	if err != nil {
		return nil, fmt.Errorf("action items: %w", err)
	}

	var generated time.Time
	if r, ok := o.cache.Peek(key); ok {
		generated = r.UpdatedAt
	}

	o.mu.Lock()
	st, ok := o.actions[userID]
	if !ok || st.key != key || !st.generated.Equal(generated) {
		st = &actionState{
			key:       key,
			generated: generated,
			items:     parser.ParseActionItems(text),
			completed: make(map[string]bool),
		}
		o.actions[userID] = st
	}
	items := st.snapshot()
	o.mu.Unlock()

	sorted := parser.SortActionItems(items, sort)
	if sorted == nil {
		sorted = []models.ActionItem{}
	}
	return sorted, nil
}

// ToggleActionItem flips the completion flag of an item from the user's
// most recent list.
func (o *Orchestrator) ToggleActionItem(ctx context.Context, id string) (*models.ActionItem, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.actions[userID]
	if !ok {
		return nil, fmt.Errorf("action item %s: %w", id, apperr.ErrNotFound)
	}
	for _, it := range st.items {
		if it.ID == id {
			st.completed[id] = !st.completed[id]
			it.Completed = st.completed[id]
			return &it, nil
		}
	}
	return nil, fmt.Errorf("action item %s: %w", id, apperr.ErrNotFound)
}

func (st *actionState) snapshot() []models.ActionItem {
	out := make([]models.ActionItem, len(st.items))
	for i, it := range st.items {
		it.Completed = st.completed[it.ID]
		out[i] = it
	}
	return out
}
