package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/resummarize/internal/models"
)

// ListNotes handles GET /api/notes.
//
//	@Summary		List the caller's notes, optionally filtered by a search query
//	@Tags			notes
//	@Produce		json
//	@Param			q	query		string	false	"Case-insensitive title/content filter"
//	@Success		200	{object}	NoteListResponse
//	@Failure		401	{object}	errResponse
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.notes.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note ID"
//	@Success		200	{object}	models.Note
//	@Failure		404	{object}	errResponse
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.notes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note; a blank title becomes "Untitled Note"
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.notes.Create(r.Context(), req.Title, req.Content)
	if err != nil {
		writeError(w, r, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PATCH /api/notes/{id}.
//
//	@Summary		Update the supplied fields of a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note ID"
//	@Param			body	body		UpdateNoteRequest	true	"Fields to change"
//	@Success		200		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/notes/{id} [patch]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req UpdateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.notes.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, "update note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note permanently
//	@Tags			notes
//	@Param			id	path	string	true	"Note ID"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.notes.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveDraft handles PUT /api/notes/{id}/draft. The edit is committed after
// the auto-save quiet period; the outcome arrives on the event stream.
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	var req models.NoteFields
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.autosave.Edit(r.Context(), chi.URLParam(r, "id"), req); err != nil {
		writeError(w, r, "save draft", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
}

// FlushDraft handles POST /api/notes/{id}/draft/flush.
func (h *Handler) FlushDraft(w http.ResponseWriter, r *http.Request) {
	note, err := h.autosave.Flush(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "flush draft", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}
