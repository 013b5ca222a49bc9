package models

import (
	"fmt"
	"time"
)

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	RoleUser  ChatRole = "user"
	RoleModel ChatRole = "model"
)

// ChatMode selects the assistant persona.
type ChatMode string

const (
	ModeNotes     ChatMode = "notes"
	ModeTherapist ChatMode = "therapist"
)

// ParseChatMode validates s.
func ParseChatMode(s string) (ChatMode, error) {
	switch ChatMode(s) {
	case ModeNotes, ModeTherapist:
		return ChatMode(s), nil
	}
	return "", fmt.Errorf("unknown chat mode %q", s)
}

// ChatMessage is one entry in a conversation transcript.
type ChatMessage struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
