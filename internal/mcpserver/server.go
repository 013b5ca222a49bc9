// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes one user's notes and summaries over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/resummarize/internal/apperr"
	"github.com/starford/resummarize/internal/auth"
	"github.com/starford/resummarize/internal/models"
	"github.com/starford/resummarize/internal/notes"
	"github.com/starford/resummarize/internal/parser"
	"github.com/starford/resummarize/internal/summarize"
)

// SummaryTypesURI is the resource describing the summary types.
const SummaryTypesURI = "resummarize://summary-types"

// Server wraps the MCP server with resummarize tools.
type Server struct {
	mcp       *server.MCPServer
	notes     *notes.Controller
	summaries *summarize.Orchestrator
	user      *models.User
}

// New creates a new MCP server acting as user.
func New(ctrl *notes.Controller, sum *summarize.Orchestrator, user *models.User, version string) *Server {
	s := &Server{notes: ctrl, summaries: sum, user: user}

	s.mcp = server.NewMCPServer(
		"Resummarize",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List the user's notes, most recently updated first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of notes to return (0 for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Case-insensitive search through note titles and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full title and content of a note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID as returned by list_notes")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. A blank title becomes \"Untitled Note\"."),
		mcp.WithString("title", mcp.Description("Note title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Plain-text note content")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("summarize_notes",
		mcp.WithDescription("Summarize notes with the AI model. See the "+SummaryTypesURI+" resource for the available types."),
		mcp.WithString("type", mcp.Description("Summary type"),
			mcp.Enum("brief", "detailed", "actionable", "todo", "keypoints")),
		mcp.WithString("ids", mcp.Description("Comma-separated note IDs (empty for all notes)")),
		mcp.WithBoolean("refresh", mcp.Description("Ignore any cached summary")),
	), s.summarizeNotes)

	s.mcp.AddTool(mcp.NewTool("get_insights",
		mcp.WithDescription("Themes, patterns and suggestions drawn from all notes."),
		mcp.WithBoolean("refresh", mcp.Description("Ignore any cached insights")),
	), s.getInsights)

	s.mcp.AddTool(mcp.NewTool("get_action_items",
		mcp.WithDescription("Action items extracted from an actionable summary of all notes."),
		mcp.WithString("sort", mcp.Description("Order of the items"),
			mcp.Enum("default", "priority", "date")),
		mcp.WithBoolean("refresh", mcp.Description("Regenerate the underlying summary")),
	), s.getActionItems)

	s.mcp.AddResource(
		mcp.NewResource(SummaryTypesURI, "Summary Types",
			mcp.WithResourceDescription("What each summary type produces."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSummaryTypesResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// userContext scopes ctx to the server's user.
func (s *Server) userContext(ctx context.Context) context.Context {
	return auth.WithUser(ctx, s.user)
}

func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case errors.Is(err, apperr.ErrAIUnconfigured):
		return mcp.NewToolResultError("AI service is not configured")
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encode result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

type noteListing struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	UpdatedAt string `json:"updated_at"`
}

func listing(ns []models.Note) []noteListing {
	out := make([]noteListing, 0, len(ns))
	for _, n := range ns {
		out = append(out, noteListing{ID: n.ID, Title: n.Title, UpdatedAt: n.UpdatedAt.Format("2006-01-02 15:04")})
	}
	return out
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ns, err := s.notes.List(s.userContext(ctx))
	if err != nil {
		return toolError(err), nil
	}
	if limit := int(req.GetFloat("limit", 0)); limit > 0 && limit < len(ns) {
		ns = ns[:limit]
	}
	return jsonResult(listing(ns))
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ns, err := s.notes.Search(s.userContext(ctx), query)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(listing(ns))
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.notes.Get(s.userContext(ctx), id)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("# %s\n\n%s", n.Title, n.Content)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.notes.Create(s.userContext(ctx), req.GetString("title", ""), content)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%s)", n.ID, n.Title)), nil
}

// selectNotes resolves the comma-separated ids argument against the user's
// notes. No ids selects everything.
func (s *Server) selectNotes(ctx context.Context, raw string) ([]models.Note, error) {
	all, err := s.notes.List(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return all, nil
	}
	byID := make(map[string]models.Note, len(all))
	for _, n := range all {
		byID[n.ID] = n
	}
	var out []models.Note
	for _, id := range strings.Split(raw, ",") {
		n, ok := byID[strings.TrimSpace(id)]
		if !ok {
			return nil, fmt.Errorf("note %q: %w", strings.TrimSpace(id), apperr.ErrNotFound)
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *Server) summarizeNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t, err := models.ParseSummaryType(req.GetString("type", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ctx = s.userContext(ctx)
	ns, err := s.selectNotes(ctx, req.GetString("ids", ""))
	if err != nil {
		return toolError(err), nil
	}
	refresh := req.GetBool("refresh", false)

	var sum *models.Summary
	if len(ns) == 1 {
		sum, err = s.summaries.SummarizeOne(ctx, &ns[0], t, refresh)
	} else {
		sum, err = s.summaries.SummarizeMany(ctx, ns, t, refresh)
	}
	if err != nil {
		return toolError(err), nil
	}
	if sum == nil {
		return mcp.NewToolResultText("no notes to summarize"), nil
	}
	return mcp.NewToolResultText(sum.Summary), nil
}

func (s *Server) getInsights(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = s.userContext(ctx)
	ns, err := s.notes.List(ctx)
	if err != nil {
		return toolError(err), nil
	}
	res, err := s.summaries.Insights(ctx, ns, req.GetBool("refresh", false))
	if err != nil {
		return toolError(err), nil
	}
	if res == nil {
		return mcp.NewToolResultText("no notes to analyze"), nil
	}
	return mcp.NewToolResultText(res.Insights), nil
}

func (s *Server) getActionItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sortBy, err := parser.ParseSortOption(req.GetString("sort", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ctx = s.userContext(ctx)
	ns, err := s.notes.List(ctx)
	if err != nil {
		return toolError(err), nil
	}
	items, err := s.summaries.ActionItems(ctx, ns, req.GetBool("refresh", false), sortBy)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(items)
}

func (s *Server) readSummaryTypesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SummaryTypesURI,
			MIMEType: "text/markdown",
			Text:     SummaryTypesGuide,
		},
	}, nil
}
