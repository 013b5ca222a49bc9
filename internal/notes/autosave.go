package notes

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/resummarize/internal/apperr"
	"github.com/starford/resummarize/internal/auth"
	"github.com/starford/resummarize/internal/debounce"
	"github.com/starford/resummarize/internal/models"
	"github.com/starford/resummarize/internal/sse"
)

// InlineSummarizer produces a short summary of editor text, "" when none.
type InlineSummarizer interface {
	Inline(ctx context.Context, content string) string
}

// AutosaveOptions tunes the autosaver.
type AutosaveOptions struct {
	Delay                  time.Duration
	InlineSummaryDelay     time.Duration
	InlineSummaryThreshold int
}

type draft struct {
	user   *models.User
	id     string
	fields models.NoteFields
}

// Autosaver coalesces editor changes per note and commits them once the
// note has been quiet for the configured delay. Outcomes are published to
// the owner's event stream.
type Autosaver struct {
	notes      *Controller
	summarizer InlineSummarizer
	events     Publisher
	opts       AutosaveOptions
	logger     *slog.Logger

	saves     *debounce.Debouncer
	summaries *debounce.Debouncer

	mu      sync.Mutex
	drafts  map[string]*draft
	commits map[string]*commitLock
}

// commitLock serializes commits of one note. refs counts holders and
// waiters so the entry can be dropped once idle.
type commitLock struct {
	mu   sync.Mutex
	refs int
}

// NewAutosaver creates an autosaver. summarizer and events may be nil.
func NewAutosaver(notes *Controller, summarizer InlineSummarizer, events Publisher, opts AutosaveOptions, logger *slog.Logger) *Autosaver {
	if events == nil {
		events = nopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Autosaver{
		notes:      notes,
		summarizer: summarizer,
		events:     events,
		opts:       opts,
		logger:     logger,
		saves:      debounce.New(opts.Delay),
		summaries:  debounce.New(opts.InlineSummaryDelay),
		drafts:     make(map[string]*draft),
		commits:    make(map[string]*commitLock),
	}
}

func draftKey(userID, id string) string {
	return userID + "/" + id
}

// Edit records a change to note id. Fields edited repeatedly during the
// quiet period are merged, latest value winning.
func (a *Autosaver) Edit(ctx context.Context, id string, fields models.NoteFields) error {
	user, ok := auth.UserFromContext(ctx)
	if !ok {
		return apperr.ErrNotAuthenticated
	}
	if id == "" {
		return apperr.Validation("note id is required")
	}
	if fields.Empty() {
		return apperr.Validation("at least one of title or content is required")
	}

	key := draftKey(user.ID, id)
	a.mu.Lock()
	d, ok := a.drafts[key]
	if !ok {
		d = &draft{user: user, id: id}
		a.drafts[key] = d
	}
	d.fields = d.fields.Merge(fields)
	a.mu.Unlock()

	a.saves.Trigger(key, func() {
		_, _ = a.commit(key)
	})

	if a.summarizer != nil && fields.Content != nil && len([]rune(*fields.Content)) > a.opts.InlineSummaryThreshold {
		content := *fields.Content
		a.summaries.Trigger(key, func() {
			a.summarize(user, id, content)
		})
	}
	return nil
}

// Pending reports whether note id has uncommitted edits.
func (a *Autosaver) Pending(ctx context.Context, id string) bool {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return false
	}
	return a.saves.Pending(draftKey(userID, id))
}

// Flush commits pending edits of note id now and returns the stored note.
func (a *Autosaver) Flush(ctx context.Context, id string) (*models.Note, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}
	key := draftKey(userID, id)
	a.saves.Cancel(key)
	n, err := a.commit(key)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return a.notes.Get(ctx, id)
	}
	return n, nil
}

// Close commits every pending edit and drops scheduled inline summaries.
func (a *Autosaver) Close() {
	a.summaries.Stop()
	a.saves.FlushAll()
}

func (a *Autosaver) lockCommit(key string) func() {
	a.mu.Lock()
	l, ok := a.commits[key]
	if !ok {
		l = &commitLock{}
		a.commits[key] = l
	}
	l.refs++
	a.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		a.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(a.commits, key)
		}
		a.mu.Unlock()
	}
}

// commit stores the draft of key. Commits of one note run one at a time
// so a later draft always lands after an earlier one.
func (a *Autosaver) commit(key string) (*models.Note, error) {
	unlock := a.lockCommit(key)
	defer unlock()

	a.mu.Lock()
	d, ok := a.drafts[key]
	delete(a.drafts, key)
	a.mu.Unlock()
	if !ok {
		return nil, nil
	}

	ctx := auth.WithUser(context.Background(), d.user)
	n, err := a.notes.Update(ctx, d.id, d.fields)
	if err != nil {
		a.logger.Warn("autosave failed",
			slog.String("user_id", d.user.ID),
			slog.String("note_id", d.id),
			slog.String("error", err.Error()))
		a.events.Publish(d.user.ID, sse.Event{
			Type: sse.TypeNoteSaveFailed,
			Data: map[string]any{
				"id":        d.id,
				"error":     err.Error(),
				"retryable": apperr.Retryable(err),
			},
		})
		return nil, err
	}
	a.events.Publish(d.user.ID, sse.Event{Type: sse.TypeNoteSaved, Data: n})
	return n, nil
}

func (a *Autosaver) summarize(user *models.User, id, content string) {
	ctx := auth.WithUser(context.Background(), user)
	summary := a.summarizer.Inline(ctx, content)
	if summary == "" {
		return
	}
	a.events.Publish(user.ID, sse.Event{
		Type: sse.TypeNoteSummary,
		Data: map[string]string{"id": id, "summary": summary},
	})
}
