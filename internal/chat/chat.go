// Package chat runs the per-user assistant conversation: mode-scoped
// transcripts mirrored to local storage and forwarded to the AI gateway
// with note context.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/starford/resummarize/internal/ai"
	"github.com/starford/resummarize/internal/apperr"
	"github.com/starford/resummarize/internal/auth"
	"github.com/starford/resummarize/internal/models"
	"github.com/starford/resummarize/internal/prompts"
	"github.com/starford/resummarize/internal/storage"
)

// FallbackReply is appended as the model turn when the AI call fails.
const FallbackReply = "I'm sorry, I encountered an error. Please try again."

// NoteLister supplies the user's notes, most recently updated first.
type NoteLister interface {
	List(ctx context.Context) ([]models.Note, error)
}

// Options tunes the orchestrator.
type Options struct {
	MaxHistoryLength            int
	PreserveHistoryOnModeSwitch bool
	OpenOnMount                 bool
	ContextNotes                int
	ContextChars                int
}

// State is a snapshot of one user's conversation.
type State struct {
	Messages  []models.ChatMessage `json:"messages"`
	Mode      models.ChatMode      `json:"mode"`
	Open      bool                 `json:"open"`
	Sending   bool                 `json:"sending"`
	LastError string               `json:"last_error,omitempty"`
}

type conversation struct {
	// send serializes SendMessage calls; mu guards the fields below.
	send sync.Mutex
	mu   sync.Mutex

	messages []models.ChatMessage
	mode     models.ChatMode
	open     bool
	pending  int
	lastErr  error
	// cleared counts transcript resets; a reply whose user turn was
	// cleared meanwhile is dropped.
	cleared int
}

func (c *conversation) reset() {
	c.messages = nil
	c.lastErr = nil
	c.cleared++
}

// Orchestrator owns every user's conversation.
type Orchestrator struct {
	ai      ai.Gateway
	prompts *prompts.Registry
	notes   NoteLister
	store   storage.Provider
	opts    Options
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.Mutex
	convs map[string]*conversation
}

// New creates a chat orchestrator.
func New(gw ai.Gateway, reg *prompts.Registry, notes NoteLister, store storage.Provider, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.MaxHistoryLength <= 0 {
		opts.MaxHistoryLength = 100
	}
	if opts.ContextChars <= 0 {
		opts.ContextChars = 500
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		ai:      gw,
		prompts: reg,
		notes:   notes,
		store:   store,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
		convs:   make(map[string]*conversation),
	}
}

// SetClock replaces the time source used for message timestamps.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

func (o *Orchestrator) conversation(ctx context.Context) (string, *conversation, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return "", nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.convs[userID]
	if !ok {
		c = o.load(userID)
		o.convs[userID] = c
	}
	return userID, c, nil
}

func (c *conversation) snapshot() State {
	st := State{
		Messages: append([]models.ChatMessage{}, c.messages...),
		Mode:     c.mode,
		Open:     c.open,
		Sending:  c.pending > 0,
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st
}

func (o *Orchestrator) trim(msgs []models.ChatMessage) []models.ChatMessage {
	if len(msgs) <= o.opts.MaxHistoryLength {
		return msgs
	}
	return append([]models.ChatMessage(nil), msgs[len(msgs)-o.opts.MaxHistoryLength:]...)
}

// State returns the caller's conversation.
func (o *Orchestrator) State(ctx context.Context) (State, error) {
	_, c, err := o.conversation(ctx)
	if err != nil {
		return State{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot(), nil
}

// SendMessage appends text as a user turn, asks the model and appends its
// reply. AI failures never surface here: the fallback reply is appended and
// the error is kept in State.LastError. Blank input is ignored. Overlapping
// calls for one user run one after another. If the transcript is cleared
// while the model is answering, the reply is discarded.
func (o *Orchestrator) SendMessage(ctx context.Context, text string) (State, error) {
	userID, c, err := o.conversation(ctx)
	if err != nil {
		return State{}, err
	}
	if strings.TrimSpace(text) == "" {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.snapshot(), nil
	}

	c.mu.Lock()
	c.pending++
	c.mu.Unlock()

	c.send.Lock()
	defer c.send.Unlock()

	c.mu.Lock()
	prior := append([]models.ChatMessage(nil), c.messages...)
	mode := c.mode
	generation := c.cleared
	c.lastErr = nil
	c.messages = o.trim(append(c.messages, models.ChatMessage{
		Role:      models.RoleUser,
		Content:   text,
		Timestamp: o.now().UTC(),
	}))
	o.saveMessages(userID, c.messages)
	c.mu.Unlock()

	// The turn completes even if the caller goes away.
	callCtx := context.WithoutCancel(ctx)
	payload := assemblePayload(o.prompts.Chat(mode), o.notesContext(callCtx, mode), prior, text)
	reply, err := o.ai.Chat(callCtx, ai.TurnsFromMessages(prior), payload)
	if err != nil {
		o.logger.Error("chat message failed",
			slog.String("user_id", userID),
			slog.String("mode", string(mode)),
			slog.String("error", err.Error()))
		reply = FallbackReply
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending--
	if c.cleared != generation {
		return c.snapshot(), nil
	}
	if err != nil {
		c.lastErr = err
	}
	c.messages = o.trim(append(c.messages, models.ChatMessage{
		Role:      models.RoleModel,
		Content:   reply,
		Timestamp: o.now().UTC(),
	}))
	o.saveMessages(userID, c.messages)
	return c.snapshot(), nil
}

// notesContext renders the leading notes as context. Only notes mode uses
// note context; listing failures degrade to no context.
func (o *Orchestrator) notesContext(ctx context.Context, mode models.ChatMode) string {
	if mode != models.ModeNotes || o.notes == nil || o.opts.ContextNotes <= 0 {
		return ""
	}
	notes, err := o.notes.List(ctx)
	if err != nil {
		o.logger.Warn("chat context unavailable", slog.String("error", err.Error()))
		return ""
	}
	if len(notes) > o.opts.ContextNotes {
		notes = notes[:o.opts.ContextNotes]
	}
	parts := make([]string, 0, len(notes))
	for _, n := range notes {
		content := []rune(n.Content)
		body := n.Content
		if len(content) > o.opts.ContextChars {
			body = string(content[:o.opts.ContextChars]) + "..."
		}
		parts = append(parts, fmt.Sprintf("Note titled \"%s\":\n%s", n.Title, body))
	}
	return strings.Join(parts, "\n\n")
}

// assemblePayload builds the outgoing message. The opening turn carries the
// mode prompt; later turns carry only the note context, if any.
func assemblePayload(modePrompt, notesCtx string, prior []models.ChatMessage, text string) string {
	if len(prior) == 0 {
		var b strings.Builder
		b.WriteString(modePrompt)
		b.WriteString("\n\n")
		if notesCtx != "" {
			b.WriteString("Context from my notes:\n")
			b.WriteString(notesCtx)
			b.WriteString("\n\n")
		}
		b.WriteString("User message: ")
		b.WriteString(text)
		return b.String()
	}
	if notesCtx != "" {
		return "Context from notes:\n" + notesCtx + "\n\nUser message: " + text
	}
	return text
}

// Toggle flips panel visibility.
func (o *Orchestrator) Toggle(ctx context.Context) (State, error) {
	return o.setOpen(ctx, func(open bool) bool { return !open })
}

// Open shows the panel.
func (o *Orchestrator) Open(ctx context.Context) (State, error) {
	return o.setOpen(ctx, func(bool) bool { return true })
}

// Close hides the panel.
func (o *Orchestrator) Close(ctx context.Context) (State, error) {
	return o.setOpen(ctx, func(bool) bool { return false })
}

func (o *Orchestrator) setOpen(ctx context.Context, fn func(bool) bool) (State, error) {
	userID, c, err := o.conversation(ctx)
	if err != nil {
		return State{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = fn(c.open)
	o.saveValue(userID, keyOpen, c.open)
	return c.snapshot(), nil
}

// Clear empties the transcript. The mode is kept.
func (o *Orchestrator) Clear(ctx context.Context) (State, error) {
	userID, c, err := o.conversation(ctx)
	if err != nil {
		return State{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	o.saveMessages(userID, c.messages)
	return c.snapshot(), nil
}

// SwitchMode changes the persona. The transcript is cleared unless
// history is preserved across modes.
func (o *Orchestrator) SwitchMode(ctx context.Context, mode models.ChatMode) (State, error) {
	if _, err := models.ParseChatMode(string(mode)); err != nil {
		return State{}, apperr.Validation(err.Error())
	}
	userID, c, err := o.conversation(ctx)
	if err != nil {
		return State{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
	o.saveValue(userID, keyMode, c.mode)
	if !o.opts.PreserveHistoryOnModeSwitch {
		c.reset()
		o.saveMessages(userID, c.messages)
	}
	return c.snapshot(), nil
}

// LastError returns the error of the most recent failed send, if any.
func (o *Orchestrator) LastError(ctx context.Context) error {
	_, c, err := o.conversation(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Forget drops the in-memory conversation of a user; the stored copy stays.
func (o *Orchestrator) Forget(userID string) {
	o.mu.Lock()
	delete(o.convs, userID)
	o.mu.Unlock()
}
