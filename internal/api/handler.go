// Package api provides HTTP handlers for the Assistant Studio API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/assistant-studio/internal/backend"
	"github.com/ashureev/assistant-studio/internal/chat"
	"github.com/ashureev/assistant-studio/internal/domain"
	"github.com/ashureev/assistant-studio/internal/mutation"
	"github.com/ashureev/assistant-studio/internal/notify"
	"github.com/ashureev/assistant-studio/internal/state"
	"github.com/ashureev/assistant-studio/internal/task"
	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds request bodies; rules texts are the largest payload.
const maxBodyBytes = 1 << 20

// Handler provides common handler utilities.
type Handler struct {
	store *state.Store
	orch  *mutation.Orchestrator
	chat  *chat.Simulator
	notes *notify.Center

	chatLimiter *RateLimiter
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(store *state.Store, orch *mutation.Orchestrator, sim *chat.Simulator, notes *notify.Center) *Handler {
	return &Handler{
		store: store,
		orch:  orch,
		chat:  sim,
		notes: notes,
	}
}

// SetChatLimiter limits how often a client may send chat messages.
func (h *Handler) SetChatLimiter(rl *RateLimiter) {
	h.chatLimiter = rl
}

// RegisterRoutes registers all /api routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.GetState)

		r.Route("/assistants", func(r chi.Router) {
			r.Get("/", h.ListAssistants)
			r.Post("/", h.CreateAssistant)
			r.Post("/save", h.SaveAssistant)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetAssistant)
				r.Put("/", h.UpdateAssistant)
				r.Patch("/", h.PatchAssistant)
				r.Delete("/", h.DeleteAssistant)
				r.Put("/rules", h.SaveRules)
				r.Get("/form", h.EditForm)

				r.Get("/chat", h.GetChat)
				r.Post("/chat", h.SendChat)
				r.Delete("/chat", h.ClearChat)
			})
		})

		r.Get("/forms/new", h.NewForm)
		r.Post("/forms/validate", h.ValidateForm)

		r.Post("/modal/open", h.OpenModal)
		r.Post("/modal/close", h.CloseModal)

		r.Post("/theme/toggle", h.ToggleTheme)

		r.Get("/notification", h.GetNotification)
		r.Delete("/notification/{id}", h.DismissNotification)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decode reads a JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// await blocks until the mutation is applied. If the client goes away the
// mutation still completes in the background.
func await(w http.ResponseWriter, r *http.Request, t *task.Task[mutation.Result]) (mutation.Result, bool) {
	res, err := t.Wait(r.Context())
	if err != nil {
		writeMutationError(w, r, err)
		return res, false
	}
	return res, true
}

func writeMutationError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		JSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  "validation failed",
			"fields": ve.Fields,
		})
	case errors.Is(err, mutation.ErrNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, backend.ErrDeleteFailed):
		Error(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, mutation.ErrClosed):
		Error(w, http.StatusServiceUnavailable, "server is shutting down")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		slog.Debug("Client left before mutation finished", "path", r.URL.Path, "error", err)
	default:
		slog.Error("Mutation failed", "path", r.URL.Path, "error", err)
		Error(w, http.StatusInternalServerError, err.Error())
	}
}
