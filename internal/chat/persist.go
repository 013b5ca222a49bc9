package chat

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/starford/resummarize/internal/checksum"
	"github.com/starford/resummarize/internal/models"
	"github.com/starford/resummarize/internal/storage"
)

// Local storage keys.
const (
	keyMessages = "chatbot-messages"
	keyMode     = "chatbot-mode"
	keyOpen     = "chatbot-open"
)

// load restores a conversation from local storage. Missing or unreadable
// keys fall back to defaults.
func (o *Orchestrator) load(userID string) *conversation {
	c := &conversation{mode: models.ModeNotes, open: o.opts.OpenOnMount}

	var msgs []models.ChatMessage
	if o.readValue(userID, keyMessages, &msgs) {
		c.messages = o.trim(msgs)
	}
	var mode models.ChatMode
	if o.readValue(userID, keyMode, &mode) {
		if _, err := models.ParseChatMode(string(mode)); err == nil {
			c.mode = mode
		}
	}
	var open bool
	if o.readValue(userID, keyOpen, &open) {
		c.open = open
	}
	return c
}

func (o *Orchestrator) readValue(userID, key string, v any) bool {
	if o.store == nil {
		return false
	}
	data, err := o.store.Read(userID, key)
	if errors.Is(err, storage.ErrNotExist) {
		return false
	}
	if err == nil {
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		o.logger.Warn("chat state unreadable, using defaults",
			slog.String("user_id", userID),
			slog.String("key", key),
			slog.String("error", err.Error()))
		return false
	}
	return true
}

func (o *Orchestrator) saveMessages(userID string, msgs []models.ChatMessage) {
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	o.saveValue(userID, keyMessages, o.trim(msgs))
}

// saveValue mirrors v to local storage, skipping the write when the stored
// bytes are already identical.
func (o *Orchestrator) saveValue(userID, key string, v any) {
	if err := o.writeIfChanged(userID, key, v); err != nil {
		o.logger.Warn("chat state not persisted",
			slog.String("user_id", userID),
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}

func (o *Orchestrator) writeIfChanged(userID, key string, v any) error {
	if o.store == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if existing, err := o.store.Read(userID, key); err == nil && checksum.Sum(existing) == checksum.Sum(data) {
		return nil
	}
	return o.store.Write(userID, key, data)
}
