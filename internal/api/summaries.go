package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/resummarize/internal/apperr"
	"github.com/starford/resummarize/internal/models"
	"github.com/starford/resummarize/internal/parser"
)

func refreshParam(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	return v
}

func summaryTypeParam(r *http.Request) (models.SummaryType, error) {
	t, err := models.ParseSummaryType(r.URL.Query().Get("type"))
	if err != nil {
		return "", apperr.Validation(err.Error())
	}
	return t, nil
}

// selectNotes returns the caller's notes restricted to the comma-separated
// ids parameter, in the requested order. No ids selects every note.
func (h *Handler) selectNotes(r *http.Request) ([]models.Note, error) {
	all, err := h.notes.List(r.Context())
	if err != nil {
		return nil, err
	}
	raw := strings.TrimSpace(r.URL.Query().Get("ids"))
	if raw == "" {
		return all, nil
	}
	byID := make(map[string]models.Note, len(all))
	for _, n := range all {
		byID[n.ID] = n
	}
	var out []models.Note
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		n, ok := byID[id]
		if !ok {
			return nil, apperr.ErrNotFound
		}
		out = append(out, n)
	}
	return out, nil
}

// NoteSummary handles GET /api/notes/{id}/summary.
//
//	@Summary		Summarize one note
//	@Tags			summaries
//	@Produce		json
//	@Param			id		path		string	true	"Note ID"
//	@Param			type	query		string	false	"Summary type"	Enums(brief, detailed, actionable, todo, keypoints)
//	@Param			refresh	query		bool	false	"Bypass the freshness window"
//	@Success		200		{object}	models.Summary
//	@Failure		502		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Router			/notes/{id}/summary [get]
func (h *Handler) NoteSummary(w http.ResponseWriter, r *http.Request) {
	t, err := summaryTypeParam(r)
	if err != nil {
		writeError(w, r, "summarize note", err)
		return
	}
	note, err := h.notes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "summarize note", err)
		return
	}
	s, err := h.summaries.SummarizeOne(r.Context(), note, t, refreshParam(r))
	if err != nil {
		writeError(w, r, "summarize note", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Summaries handles GET /api/summaries. An empty selection issues no AI
// request and answers 204.
func (h *Handler) Summaries(w http.ResponseWriter, r *http.Request) {
	t, err := summaryTypeParam(r)
	if err != nil {
		writeError(w, r, "summarize notes", err)
		return
	}
	notes, err := h.selectNotes(r)
	if err != nil {
		writeError(w, r, "summarize notes", err)
		return
	}
	s, err := h.summaries.SummarizeMany(r.Context(), notes, t, refreshParam(r))
	if err != nil {
		writeError(w, r, "summarize notes", err)
		return
	}
	if s == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Insights handles GET /api/insights.
func (h *Handler) Insights(w http.ResponseWriter, r *http.Request) {
	notes, err := h.selectNotes(r)
	if err != nil {
		writeError(w, r, "insights", err)
		return
	}
	res, err := h.summaries.Insights(r.Context(), notes, refreshParam(r))
	if err != nil {
		writeError(w, r, "insights", err)
		return
	}
	if res == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// InlineSummary handles POST /api/summaries/inline. It always answers 200;
// the summary is empty when the text is too short or generation failed.
func (h *Handler) InlineSummary(w http.ResponseWriter, r *http.Request) {
	var req InlineSummaryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var s string
	if req.Bulk {
		s = h.summaries.InlineBulk(r.Context(), req.Content)
	} else {
		s = h.summaries.Inline(r.Context(), req.Content)
	}
	writeJSON(w, http.StatusOK, InlineSummaryResponse{Summary: s})
}

// ActionItems handles GET /api/action-items.
//
//	@Summary		Action items parsed from an actionable summary of the notes
//	@Tags			summaries
//	@Produce		json
//	@Param			ids		query		string	false	"Comma-separated note IDs"
//	@Param			sort	query		string	false	"Order"	Enums(default, priority, date)
//	@Param			refresh	query		bool	false	"Regenerate, resetting completion"
//	@Success		200		{object}	ActionItemsResponse
//	@Router			/action-items [get]
func (h *Handler) ActionItems(w http.ResponseWriter, r *http.Request) {
	sortBy, err := parser.ParseSortOption(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, r, "action items", apperr.Validation(err.Error()))
		return
	}
	notes, err := h.selectNotes(r)
	if err != nil {
		writeError(w, r, "action items", err)
		return
	}
	items, err := h.summaries.ActionItems(r.Context(), notes, refreshParam(r), sortBy)
	if err != nil {
		writeError(w, r, "action items", err)
		return
	}
	writeJSON(w, http.StatusOK, ActionItemsResponse{Items: items})
}

// ToggleActionItem handles POST /api/action-items/{id}/toggle.
func (h *Handler) ToggleActionItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.summaries.ToggleActionItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "toggle action item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
