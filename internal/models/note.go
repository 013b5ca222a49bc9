// Package models defines the domain types for resummarize.
package models

import "time"

// DefaultNoteTitle is used when a note is created with a blank title.
const DefaultNoteTitle = "Untitled Note"

// Note is a user-owned text document.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteFields is a partial note update. Nil fields are left unchanged.
type NoteFields struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// Empty reports whether no field is set.
func (f NoteFields) Empty() bool {
	return f.Title == nil && f.Content == nil
}

// Merge overlays later on top of f and returns the result.
func (f NoteFields) Merge(later NoteFields) NoteFields {
	out := f
	if later.Title != nil {
		out.Title = later.Title
	}
	if later.Content != nil {
		out.Content = later.Content
	}
	return out
}

// Apply returns a copy of n with the set fields replaced.
func (f NoteFields) Apply(n Note) Note {
	if f.Title != nil {
		n.Title = *f.Title
	}
	if f.Content != nil {
		n.Content = *f.Content
	}
	return n
}
