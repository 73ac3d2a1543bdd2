package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/assistant-studio/internal/chat"
	"github.com/ashureev/assistant-studio/internal/domain"
	"github.com/go-chi/chi/v5"
)

type chatRequest struct {
	Text string `json:"text"`
}

type chatResponse struct {
	Messages []domain.Message `json:"messages"`
	Typing   bool             `json:"typing"`
}

// GetChat returns the conversation with an assistant.
func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	messages := h.chat.History(id)
	if messages == nil {
		messages = []domain.Message{}
	}
	JSON(w, http.StatusOK, chatResponse{
		Messages: messages,
		Typing:   h.chat.Typing(id),
	})
}

// SendChat appends a user message. The reply arrives later on the event stream.
func (h *Handler) SendChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.store.Assistant(id); !ok {
		Error(w, http.StatusNotFound, "assistant not found")
		return
	}

	if h.chatLimiter != nil && !h.chatLimiter.Allow(rateLimitKey(r)) {
		slog.Warn("Chat rate limit exceeded", "client", rateLimitKey(r), "assistant_id", id)
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var req chatRequest
	if !decode(w, r, &req) {
		return
	}

	msg, _, err := h.chat.Send(id, req.Text)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		Error(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, chat.ErrReplyPending):
		Error(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		slog.Error("Failed to send chat message", "assistant_id", id, "error", err)
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusAccepted, msg)
}

// ClearChat resets the conversation with an assistant.
func (h *Handler) ClearChat(w http.ResponseWriter, r *http.Request) {
	h.chat.Clear(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}
