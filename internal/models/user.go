package models

import "time"

// User is an authenticated account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is a signed-in session. Token is only populated when the session
// is first issued.
type Session struct {
	Token     string    `json:"token,omitempty"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
