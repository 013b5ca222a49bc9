package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/resummarize/internal/ai"
	"github.com/starford/resummarize/internal/models"
	"github.com/starford/resummarize/internal/notes"
	"github.com/starford/resummarize/internal/prompts"
	"github.com/starford/resummarize/internal/summarize"
	"github.com/starford/resummarize/internal/testutil"
)

func testServer(t *testing.T, gw ai.Gateway) (*Server, context.Context, *notes.Controller) {
	t.Helper()
	d := testutil.TestDB(t)
	ctx, user := testutil.TestUser(t, d, "mcp@example.com")

	reg, err := prompts.NewRegistry("")
	if err != nil {
		t.Fatal(err)
	}
	ctrl := notes.NewController(d, time.Minute, nil, nil)
	sum := summarize.New(gw, reg, nil, summarize.Options{StaleTime: time.Minute}, nil)
	return New(ctrl, sum, user, "test"), ctx, ctrl
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "create_note":
		result, err = srv.createNote(ctx, req)
	case "summarize_notes":
		result, err = srv.summarizeNotes(ctx, req)
	case "get_insights":
		result, err = srv.getInsights(ctx, req)
	case "get_action_items":
		result, err = srv.getActionItems(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadNote(t *testing.T) {
	srv, ctx, ctrl := testServer(t, testutil.NewFakeAI())

	r := callTool(t, srv, "create_note", map[string]interface{}{
		"title":   "Test",
		"content": "Hello",
	})
	if !strings.HasPrefix(resultText(r), "created: ") {
		t.Fatalf("create result = %q", resultText(r))
	}

	// The note belongs to the server's user.
	all, err := ctrl.List(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("list = %v, %v", all, err)
	}

	r = callTool(t, srv, "read_note", map[string]interface{}{"id": all[0].ID})
	if got := resultText(r); got != "# Test\n\nHello" {
		t.Errorf("read result = %q", got)
	}
}

func TestCreateNoteRequiresContent(t *testing.T) {
	srv, _, _ := testServer(t, testutil.NewFakeAI())
	r := callTool(t, srv, "create_note", map[string]interface{}{"title": "x"})
	if !r.IsError {
		t.Error("expected error without content")
	}
}

func TestListAndSearchNotes(t *testing.T) {
	srv, ctx, ctrl := testServer(t, testutil.NewFakeAI())
	for _, title := range []string{"Groceries", "Work", "Travel"} {
		if _, err := ctrl.Create(ctx, title, "about "+strings.ToLower(title)); err != nil {
			t.Fatal(err)
		}
	}

	var listed []noteListing
	r := callTool(t, srv, "list_notes", map[string]interface{}{"limit": float64(2)})
	if err := json.Unmarshal([]byte(resultText(r)), &listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed) != 2 {
		t.Errorf("limited list = %d notes, want 2", len(listed))
	}

	r = callTool(t, srv, "search_notes", map[string]interface{}{"query": "WORK"})
	_ = json.Unmarshal([]byte(resultText(r)), &listed)
	if len(listed) != 1 || listed[0].Title != "Work" {
		t.Errorf("search = %+v", listed)
	}
}

func TestReadNoteMissing(t *testing.T) {
	srv, _, _ := testServer(t, testutil.NewFakeAI())
	r := callTool(t, srv, "read_note", map[string]interface{}{"id": "nope"})
	if !r.IsError || resultText(r) != "not found" {
		t.Errorf("expected not found error, got %q", resultText(r))
	}
}

func TestSummarizeNotes(t *testing.T) {
	fake := testutil.NewFakeAI("One summary.", "Many summary.")
	srv, ctx, ctrl := testServer(t, fake)

	r := callTool(t, srv, "summarize_notes", map[string]interface{}{})
	if got := resultText(r); got != "no notes to summarize" {
		t.Errorf("empty = %q", got)
	}

	a, _ := ctrl.Create(ctx, "A", "alpha")
	b, _ := ctrl.Create(ctx, "B", "beta")

	r = callTool(t, srv, "summarize_notes", map[string]interface{}{"ids": a.ID, "type": "keypoints"})
	if got := resultText(r); got != "One summary." {
		t.Errorf("single = %q", got)
	}
	r = callTool(t, srv, "summarize_notes", map[string]interface{}{"ids": a.ID + "," + b.ID})
	if got := resultText(r); got != "Many summary." {
		t.Errorf("many = %q", got)
	}
	if !strings.Contains(fake.LastPrompt(), "Title: B\nContent: beta") {
		t.Errorf("prompt = %q", fake.LastPrompt())
	}

	r = callTool(t, srv, "summarize_notes", map[string]interface{}{"type": "sonnet"})
	if !r.IsError {
		t.Error("expected error for unknown type")
	}
	r = callTool(t, srv, "summarize_notes", map[string]interface{}{"ids": "missing"})
	if !r.IsError {
		t.Error("expected error for unknown id")
	}
}

func TestSummarizeUnconfigured(t *testing.T) {
	srv, ctx, ctrl := testServer(t, ai.Unconfigured{})
	_, _ = ctrl.Create(ctx, "A", "alpha")

	r := callTool(t, srv, "get_insights", map[string]interface{}{})
	if !r.IsError || resultText(r) != "AI service is not configured" {
		t.Errorf("insights = %q", resultText(r))
	}
}

func TestGetActionItems(t *testing.T) {
	fake := testutil.NewFakeAI("1. Call the bank tomorrow\n2. Urgent: file taxes")
	srv, ctx, ctrl := testServer(t, fake)
	_, _ = ctrl.Create(ctx, "Chores", "bank, taxes")

	r := callTool(t, srv, "get_action_items", map[string]interface{}{"sort": "priority"})
	var items []models.ActionItem
	if err := json.Unmarshal([]byte(resultText(r)), &items); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	if len(items) != 2 || items[0].Priority != models.PriorityHigh {
		t.Errorf("items = %+v", items)
	}
}

func TestSummaryTypesResource(t *testing.T) {
	srv, _, _ := testServer(t, testutil.NewFakeAI())
	contents, err := srv.readSummaryTypesResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != SummaryTypesURI {
		t.Fatalf("contents = %+v", contents)
	}
	for _, st := range models.SummaryTypes {
		if !strings.Contains(tc.Text, "`"+string(st)+"`") {
			t.Errorf("guide misses %s", st)
		}
	}
}
