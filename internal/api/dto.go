package api

import (
	"time"

	"github.com/starford/resummarize/internal/models"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title   string `json:"title" example:"Groceries"`
	Content string `json:"content" example:"Buy milk"`
}

// UpdateNoteRequest is the request body for a partial note update.
type UpdateNoteRequest = models.NoteFields

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []models.Note `json:"notes" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// InlineSummaryRequest asks for a summary of editor text.
type InlineSummaryRequest struct {
	Content string `json:"content" validate:"required"`
	Bulk    bool   `json:"bulk"`
}

// InlineSummaryResponse carries an inline summary; empty when none was made.
type InlineSummaryResponse struct {
	Summary string `json:"summary"`
}

// ActionItemsResponse wraps parsed action items.
type ActionItemsResponse struct {
	Items []models.ActionItem `json:"items" validate:"required"`
}

// ChatMessageRequest is the body of a chat turn.
type ChatMessageRequest struct {
	Message string `json:"message" example:"What did I plan for Friday?"`
}

// ChatModeRequest switches the assistant persona.
type ChatModeRequest struct {
	Mode string `json:"mode" example:"notes" enums:"notes,therapist"`
}

// CredentialsRequest is the body of sign-up and sign-in.
type CredentialsRequest struct {
	Email    string `json:"email" example:"ada@example.com"`
	Password string `json:"password"`
}

// ResetPasswordRequest starts password recovery.
type ResetPasswordRequest struct {
	Email      string `json:"email"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

// UpdatePasswordRequest sets a new password for the signed-in user.
type UpdatePasswordRequest struct {
	Password string `json:"password"`
}

// SessionResponse describes a signed-in session.
type SessionResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token,omitempty"`
	ExpiresAt   time.Time    `json:"expires_at"`
}
