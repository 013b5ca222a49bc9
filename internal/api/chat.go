package api

import (
	"context"
	"net/http"

	"github.com/starford/resummarize/internal/apperr"
	"github.com/starford/resummarize/internal/chat"
	"github.com/starford/resummarize/internal/models"
)

func (h *Handler) chatAction(op string, fn func(ctx context.Context) (chat.State, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := fn(r.Context())
		if err != nil {
			writeError(w, r, op, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// ChatState handles GET /api/chat.
func (h *Handler) ChatState(w http.ResponseWriter, r *http.Request) {
	h.chatAction("chat state", h.chat.State)(w, r)
}

// SendChatMessage handles POST /api/chat/messages. AI failures still
// answer 200: the transcript ends with the fallback reply and last_error
// is set.
//
//	@Summary		Send a chat message
//	@Tags			chat
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ChatMessageRequest	true	"Message"
//	@Success		200		{object}	chat.State
//	@Router			/chat/messages [post]
func (h *Handler) SendChatMessage(w http.ResponseWriter, r *http.Request) {
	var req ChatMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.chatAction("send chat message", func(ctx context.Context) (chat.State, error) {
		return h.chat.SendMessage(ctx, req.Message)
	})(w, r)
}

// ClearChat handles DELETE /api/chat/messages.
func (h *Handler) ClearChat(w http.ResponseWriter, r *http.Request) {
	h.chatAction("clear chat", h.chat.Clear)(w, r)
}

// SwitchChatMode handles PUT /api/chat/mode.
func (h *Handler) SwitchChatMode(w http.ResponseWriter, r *http.Request) {
	var req ChatModeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mode, err := models.ParseChatMode(req.Mode)
	if err != nil {
		writeError(w, r, "switch chat mode", apperr.Validation(err.Error()))
		return
	}
	h.chatAction("switch chat mode", func(ctx context.Context) (chat.State, error) {
		return h.chat.SwitchMode(ctx, mode)
	})(w, r)
}

// OpenChat handles POST /api/chat/open.
func (h *Handler) OpenChat(w http.ResponseWriter, r *http.Request) {
	h.chatAction("open chat", h.chat.Open)(w, r)
}

// CloseChat handles POST /api/chat/close.
func (h *Handler) CloseChat(w http.ResponseWriter, r *http.Request) {
	h.chatAction("close chat", h.chat.Close)(w, r)
}

// ToggleChat handles POST /api/chat/toggle.
func (h *Handler) ToggleChat(w http.ResponseWriter, r *http.Request) {
	h.chatAction("toggle chat", h.chat.Toggle)(w, r)
}
