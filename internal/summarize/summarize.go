// Package summarize turns notes into AI summaries, insights and action
// items. Query results are cached per user with a freshness window and
// concurrent identical requests share one AI call.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/starford/resummarize/internal/ai"
	"github.com/starford/resummarize/internal/auth"
	"github.com/starford/resummarize/internal/models"
	"github.com/starford/resummarize/internal/prompts"
	"github.com/starford/resummarize/internal/querycache"
)

const noteSeparator = "\n\n---\n\n"

// Cache kinds.
const (
	kindOne      = "one"
	kindMany     = "many"
	kindInsights = "insights"
	kindActions  = "actions"
)

// Truncator cuts text to a token budget.
type Truncator interface {
	Truncate(s string, maxTokens int) string
}

// Options tunes the orchestrator.
type Options struct {
	StaleTime       time.Duration
	InlineMinChars  int
	BulkMinChars    int
	MaxPromptTokens int
}

// Orchestrator implements the summarization operations.
type Orchestrator struct {
	ai      ai.Gateway
	prompts *prompts.Registry
	cache   *querycache.Cache[string]
	tok     Truncator
	opts    Options
	logger  *slog.Logger

	mu      sync.Mutex
	actions map[string]*actionState
}

// New creates an orchestrator. tok may be nil, which disables the prompt
// token budget.
func New(gw ai.Gateway, reg *prompts.Registry, tok Truncator, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		ai:      gw,
		prompts: reg,
		cache:   querycache.New[string](opts.StaleTime),
		tok:     tok,
		opts:    opts,
		logger:  logger,
		actions: make(map[string]*actionState),
	}
}

// Cache exposes the result cache, mainly for status reporting and tests.
func (o *Orchestrator) Cache() *querycache.Cache[string] {
	return o.cache
}

// Configured reports whether AI calls can succeed at all.
func (o *Orchestrator) Configured() bool {
	return o.ai.Configured()
}

// cacheKey identifies a note set regardless of the order of ids.
func cacheKey(userID, kind string, t models.SummaryType, ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return userID + "|" + kind + "|" + string(t) + "|" + strings.Join(sorted, ",")
}

func userPrefix(userID string) string {
	return userID + "|"
}

func noteIDs(notes []models.Note) []string {
	ids := make([]string, len(notes))
	for i, n := range notes {
		ids[i] = n.ID
	}
	return ids
}

func (o *Orchestrator) budget(s string) string {
	if o.tok == nil || o.opts.MaxPromptTokens <= 0 {
		return s
	}
	return o.tok.Truncate(s, o.opts.MaxPromptTokens)
}

func (o *Orchestrator) joinNotes(notes []models.Note) string {
	parts := make([]string, len(notes))
	for i, n := range notes {
		parts[i] = fmt.Sprintf("Title: %s\nContent: %s", n.Title, n.Content)
	}
	return o.budget(strings.Join(parts, noteSeparator))
}

func (o *Orchestrator) query(ctx context.Context, key string, refresh bool, prompt string) (string, error) {
	fetch := func(ctx context.Context) (string, error) {
		text, err := o.ai.Generate(ctx, prompt)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(text), nil
	}
	if refresh {
		return o.cache.Refresh(ctx, key, fetch)
	}
	return o.cache.Fetch(ctx, key, fetch)
}

// SummarizeOne summarizes a single note. A nil note is a disabled query:
// nothing is requested and the result is nil.
func (o *Orchestrator) SummarizeOne(ctx context.Context, note *models.Note, t models.SummaryType, refresh bool) (*models.Summary, error) {
	if note == nil {
		return nil, nil
	}
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf("%s\n\nTitle: %s\nContent: %s", o.prompts.Summary(t), note.Title, o.budget(note.Content))
	text, err := o.query(ctx, cacheKey(userID, kindOne, t, []string{note.ID}), refresh, prompt)
	if err != nil {
		return nil, fmt.Errorf("summarize note %s: %w", note.ID, err)
	}
	return &models.Summary{Summary: text, Type: t}, nil
}

// SummarizeMany summarizes a collection of notes with a single AI call. An
// empty collection is a disabled query.
func (o *Orchestrator) SummarizeMany(ctx context.Context, notes []models.Note, t models.SummaryType, refresh bool) (*models.Summary, error) {
	if len(notes) == 0 {
		return nil, nil
	}
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}
	prompt := o.prompts.Summary(t) + "\n\nMultiple notes content:\n" + o.joinNotes(notes)
	text, err := o.query(ctx, cacheKey(userID, kindMany, t, noteIDs(notes)), refresh, prompt)
	if err != nil {
		return nil, fmt.Errorf("summarize %d notes: %w", len(notes), err)
	}
	return &models.Summary{Summary: text, Type: t}, nil
}

// Insights analyses a collection of notes. An empty collection is a
// disabled query.
func (o *Orchestrator) Insights(ctx context.Context, notes []models.Note, refresh bool) (*models.Insights, error) {
	if len(notes) == 0 {
		return nil, nil
	}
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}
	prompt := o.prompts.Insights() + "\n\nNotes content:\n" + o.joinNotes(notes)
	text, err := o.query(ctx, cacheKey(userID, kindInsights, "", noteIDs(notes)), refresh, prompt)
	if err != nil {
		return nil, fmt.Errorf("insights: %w", err)
	}
	return &models.Insights{Insights: text}, nil
}

// Inline summarizes free text for the editor. It never fails: short input,
// a missing provider and AI errors all yield "".
func (o *Orchestrator) Inline(ctx context.Context, content string) string {
	return o.inline(ctx, content, o.opts.InlineMinChars, "\n\nTitle: \nContent: ")
}

// InlineBulk is Inline for text assembled from several notes.
func (o *Orchestrator) InlineBulk(ctx context.Context, content string) string {
	return o.inline(ctx, content, o.opts.BulkMinChars, "\n\nMultiple notes content:\n")
}

func (o *Orchestrator) inline(ctx context.Context, content string, minChars int, lead string) string {
	if len([]rune(strings.TrimSpace(content))) < minChars {
		return ""
	}
	if !o.ai.Configured() {
		o.logger.Error("inline summary skipped: AI provider not configured")
		return ""
	}
	text, err := o.ai.Generate(ctx, o.prompts.Summary(models.SummaryBrief)+lead+o.budget(content))
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			o.logger.Warn("inline summary failed", slog.String("error", err.Error()))
		}
		return ""
	}
	return strings.TrimSpace(text)
}

// Forget drops every cached result of the user.
func (o *Orchestrator) Forget(userID string) {
	o.cache.InvalidatePrefix(userPrefix(userID))
	o.mu.Lock()
	delete(o.actions, userID)
	o.mu.Unlock()
}
