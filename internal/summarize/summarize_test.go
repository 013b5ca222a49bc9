package summarize

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/resummarize/internal/ai"
	"github.com/starford/resummarize/internal/apperr"
	"github.com/starford/resummarize/internal/auth"
	"github.com/starford/resummarize/internal/models"
	"github.com/starford/resummarize/internal/parser"
	"github.com/starford/resummarize/internal/prompts"
	"github.com/starford/resummarize/internal/testutil"
)

func newTestOrchestrator(t *testing.T, gw ai.Gateway) (*Orchestrator, context.Context) {
	t.Helper()
	reg, err := prompts.NewRegistry("")
	require.NoError(t, err)
	o := New(gw, reg, nil, Options{
		StaleTime:      10 * time.Minute,
		InlineMinChars: 50,
		BulkMinChars:   100,
	}, nil)
	ctx := auth.WithUser(context.Background(), &models.User{ID: "user-1"})
	return o, ctx
}

func sampleNotes() []models.Note {
	return []models.Note{
		{ID: "n1", Title: "Groceries", Content: "Buy milk"},
		{ID: "n2", Title: "Work", Content: "Finish report"},
	}
}

func TestSummarizeOnePrompt(t *testing.T) {
	fake := testutil.NewFakeAI("Short summary.")
	o, ctx := newTestOrchestrator(t, fake)
	note := sampleNotes()[0]

	got, err := o.SummarizeOne(ctx, &note, models.SummaryDetailed, false)
	require.NoError(t, err)
	assert.Equal(t, &models.Summary{Summary: "Short summary.", Type: models.SummaryDetailed}, got)

	want := o.prompts.Summary(models.SummaryDetailed) + "\n\nTitle: Groceries\nContent: Buy milk"
	assert.Equal(t, want, fake.LastPrompt())
}

func TestSummarizeOneDisabledWithoutNote(t *testing.T) {
	fake := testutil.NewFakeAI("x")
	o, ctx := newTestOrchestrator(t, fake)

	got, err := o.SummarizeOne(ctx, nil, models.SummaryBrief, false)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, fake.Calls())
}

func TestSummarizeManySingleCall(t *testing.T) {
	fake := testutil.NewFakeAI("Both notes.")
	o, ctx := newTestOrchestrator(t, fake)

	got, err := o.SummarizeMany(ctx, sampleNotes(), models.SummaryBrief, false)
	require.NoError(t, err)
	assert.Equal(t, "Both notes.", got.Summary)
	assert.Equal(t, 1, fake.Calls())

	prompt := fake.LastPrompt()
	assert.True(t, strings.HasPrefix(prompt, o.prompts.Summary(models.SummaryBrief)+"\n\nMultiple notes content:\n"))
	assert.Contains(t, prompt, "Title: Groceries\nContent: Buy milk\n\n---\n\nTitle: Work\nContent: Finish report")

	got, err = o.SummarizeMany(ctx, nil, models.SummaryBrief, false)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 1, fake.Calls())
}

func TestInsightsPrompt(t *testing.T) {
	fake := testutil.NewFakeAI("Themes: food, work.")
	o, ctx := newTestOrchestrator(t, fake)

	got, err := o.Insights(ctx, sampleNotes(), false)
	require.NoError(t, err)
	assert.Equal(t, "Themes: food, work.", got.Insights)
	assert.True(t, strings.HasPrefix(fake.LastPrompt(), o.prompts.Insights()+"\n\nNotes content:\n"))
}

func TestCachedWithinFreshnessWindow(t *testing.T) {
	fake := testutil.NewFakeAI("first", "second")
	o, ctx := newTestOrchestrator(t, fake)
	note := sampleNotes()[0]

	a, err := o.SummarizeOne(ctx, &note, models.SummaryBrief, false)
	require.NoError(t, err)
	b, err := o.SummarizeOne(ctx, &note, models.SummaryBrief, false)
	require.NoError(t, err)
	assert.Equal(t, "first", a.Summary)
	assert.Equal(t, "first", b.Summary)
	assert.Equal(t, 1, fake.Calls())

	c, err := o.SummarizeOne(ctx, &note, models.SummaryBrief, true)
	require.NoError(t, err)
	assert.Equal(t, "second", c.Summary)
	assert.Equal(t, 2, fake.Calls())

	// A different type is a different query.
	_, err = o.SummarizeOne(ctx, &note, models.SummaryTodo, false)
	require.NoError(t, err)
	assert.Equal(t, 3, fake.Calls())
}

func TestNoteOrderSharesCacheEntry(t *testing.T) {
	fake := testutil.NewFakeAI("together", "again")
	o, ctx := newTestOrchestrator(t, fake)
	notes := sampleNotes()
	reversed := []models.Note{notes[1], notes[0]}

	a, err := o.SummarizeMany(ctx, notes, models.SummaryBrief, false)
	require.NoError(t, err)
	b, err := o.SummarizeMany(ctx, reversed, models.SummaryBrief, false)
	require.NoError(t, err)
	assert.Equal(t, "together", a.Summary)
	assert.Equal(t, "together", b.Summary)
	assert.Equal(t, 1, fake.Calls())

	assert.Equal(t,
		cacheKey("u", kindMany, models.SummaryBrief, []string{"b", "a"}),
		cacheKey("u", kindMany, models.SummaryBrief, []string{"a", "b"}))
}

func TestCacheIsolatedPerUser(t *testing.T) {
	fake := testutil.NewFakeAI("a", "b")
	o, ctx := newTestOrchestrator(t, fake)
	other := auth.WithUser(context.Background(), &models.User{ID: "user-2"})
	note := sampleNotes()[0]

	_, err := o.SummarizeOne(ctx, &note, models.SummaryBrief, false)
	require.NoError(t, err)
	got, err := o.SummarizeOne(other, &note, models.SummaryBrief, false)
	require.NoError(t, err)
	assert.Equal(t, "b", got.Summary)
	assert.Equal(t, 2, fake.Calls())
}

func TestConcurrentRequestsShareOneCall(t *testing.T) {
	fake := testutil.NewFakeAI("shared")
	release := fake.Block()
	o, ctx := newTestOrchestrator(t, fake)
	notes := sampleNotes()

	var wg sync.WaitGroup
	results := make([]*models.Summary, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := o.SummarizeMany(ctx, notes, models.SummaryBrief, false)
			assert.NoError(t, err)
			results[i] = s
		}(i)
	}
	require.Eventually(t, func() bool { return fake.Calls() == 1 }, time.Second, 5*time.Millisecond)
	release()
	wg.Wait()

	assert.Equal(t, 1, fake.Calls())
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, "shared", r.Summary)
	}
}

func TestErrorsPropagateAndAreNotCached(t *testing.T) {
	fake := testutil.NewFakeAI("recovered")
	fake.FailWith(apperr.ErrAIGeneration)
	o, ctx := newTestOrchestrator(t, fake)
	note := sampleNotes()[0]

	_, err := o.SummarizeOne(ctx, &note, models.SummaryBrief, false)
	assert.ErrorIs(t, err, apperr.ErrAIGeneration)

	fake.FailWith(nil)
	got, err := o.SummarizeOne(ctx, &note, models.SummaryBrief, false)
	require.NoError(t, err)
	assert.Equal(t, "recovered", got.Summary)
}

func TestUnconfiguredGateway(t *testing.T) {
	o, ctx := newTestOrchestrator(t, ai.Unconfigured{})
	note := sampleNotes()[0]

	_, err := o.SummarizeOne(ctx, &note, models.SummaryBrief, false)
	assert.ErrorIs(t, err, apperr.ErrAIUnconfigured)
	assert.Equal(t, "", o.Inline(ctx, strings.Repeat("long text ", 20)))
}

func TestRequiresUser(t *testing.T) {
	o, _ := newTestOrchestrator(t, testutil.NewFakeAI("x"))
	note := sampleNotes()[0]
	_, err := o.SummarizeOne(context.Background(), &note, models.SummaryBrief, false)
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)
}

func TestInlineThresholds(t *testing.T) {
	fake := testutil.NewFakeAI("  inline summary  ")
	o, ctx := newTestOrchestrator(t, fake)

	assert.Equal(t, "", o.Inline(ctx, "too short"))
	assert.Equal(t, "", o.InlineBulk(ctx, strings.Repeat("a", 99)))
	assert.Zero(t, fake.Calls())

	assert.Equal(t, "inline summary", o.Inline(ctx, strings.Repeat("a", 50)))
	assert.Equal(t, "inline summary", o.InlineBulk(ctx, strings.Repeat("a", 100)))
	assert.Equal(t, 2, fake.Calls())

	fake.FailWith(apperr.ErrAIGeneration)
	assert.Equal(t, "", o.Inline(ctx, strings.Repeat("a", 80)))
}

type halfTruncator struct{}

func (halfTruncator) Truncate(s string, maxTokens int) string {
	if len(s) > maxTokens {
		return s[:maxTokens]
	}
	return s
}

func TestPromptBudget(t *testing.T) {
	fake := testutil.NewFakeAI("ok")
	reg, err := prompts.NewRegistry("")
	require.NoError(t, err)
	o := New(fake, reg, halfTruncator{}, Options{StaleTime: time.Minute, MaxPromptTokens: 10}, nil)
	ctx := auth.WithUser(context.Background(), &models.User{ID: "u"})

	note := models.Note{ID: "n", Title: "T", Content: strings.Repeat("x", 100)}
	_, err = o.SummarizeOne(ctx, &note, models.SummaryBrief, false)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(fake.LastPrompt(), "Content: "+strings.Repeat("x", 10)))
}

const actionableReply = `1. Call the bank urgently by tomorrow
2. Schedule a meeting with the team this week (from: Work)
3. Research new laptops eventually`

func TestActionItemsAndToggle(t *testing.T) {
	fake := testutil.NewFakeAI(actionableReply, actionableReply)
	o, ctx := newTestOrchestrator(t, fake)
	notes := sampleNotes()

	items, err := o.ActionItems(ctx, notes, false, parser.SortDefault)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "action-0", items[0].ID)
	assert.Equal(t, models.PriorityHigh, items[0].Priority)
	assert.Equal(t, "Work", items[1].Source)
	assert.True(t, strings.HasPrefix(fake.LastPrompt(), o.prompts.Summary(models.SummaryActionable)))

	toggled, err := o.ToggleActionItem(ctx, "action-1")
	require.NoError(t, err)
	assert.True(t, toggled.Completed)

	// Cache hit keeps the flags.
	items, err = o.ActionItems(ctx, notes, false, parser.SortDefault)
	require.NoError(t, err)
	assert.True(t, items[1].Completed)
	assert.Equal(t, 1, fake.Calls())

	// Regeneration resets them.
	items, err = o.ActionItems(ctx, notes, true, parser.SortDefault)
	require.NoError(t, err)
	assert.False(t, items[1].Completed)
	assert.Equal(t, 2, fake.Calls())

	_, err = o.ToggleActionItem(ctx, "action-9")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestActionItemsSortedByPriority(t *testing.T) {
	fake := testutil.NewFakeAI(actionableReply)
	o, ctx := newTestOrchestrator(t, fake)

	items, err := o.ActionItems(ctx, sampleNotes(), false, parser.SortPriority)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, models.PriorityHigh, items[0].Priority)
	assert.Equal(t, models.PriorityLow, items[2].Priority)

	empty, err := o.ActionItems(ctx, nil, false, parser.SortDefault)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
