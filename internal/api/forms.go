package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ashureev/assistant-studio/internal/domain"
	"github.com/go-chi/chi/v5"
)

// formResponse reports the outcome of validating a form.
type formResponse struct {
	Valid  bool              `json:"valid"`
	Fields map[string]string `json:"fields,omitempty"`
}

// NewForm returns the defaults of the creation form.
func (h *Handler) NewForm(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, domain.DefaultForm())
}

// EditForm returns a form pre-filled from an existing assistant.
func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	a, ok := h.store.Assistant(chi.URLParam(r, "id"))
	if !ok {
		Error(w, http.StatusNotFound, "assistant not found")
		return
	}
	JSON(w, http.StatusOK, a.Form())
}

// ValidateForm validates a form, or one step of it when ?step is given.
// Field errors are reported with status 200.
func (h *Handler) ValidateForm(w http.ResponseWriter, r *http.Request) {
	var form domain.AssistantForm
	if !decode(w, r, &form) {
		return
	}

	var err error
	if raw := r.URL.Query().Get("step"); raw != "" {
		step, convErr := strconv.Atoi(raw)
		if convErr != nil {
			Error(w, http.StatusBadRequest, "step must be a number")
			return
		}
		err = form.ValidateStep(step)
	} else {
		err = form.Validate()
	}

	var ve *domain.ValidationError
	switch {
	case err == nil:
		JSON(w, http.StatusOK, formResponse{Valid: true})
	case errors.As(err, &ve):
		JSON(w, http.StatusOK, formResponse{Valid: false, Fields: ve.Fields})
	default:
		Error(w, http.StatusBadRequest, err.Error())
	}
}

type openModalRequest struct {
	ID string `json:"id"`
}

// OpenModal opens the editor, in edit mode when an id is given.
func (h *Handler) OpenModal(w http.ResponseWriter, r *http.Request) {
	var req openModalRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	if req.ID != "" {
		if _, ok := h.store.Assistant(req.ID); !ok {
			Error(w, http.StatusNotFound, "assistant not found")
			return
		}
	}
	h.store.OpenModal(req.ID)
	JSON(w, http.StatusOK, h.store.Snapshot())
}

// CloseModal closes the editor.
func (h *Handler) CloseModal(w http.ResponseWriter, _ *http.Request) {
	h.store.CloseModal()
	JSON(w, http.StatusOK, h.store.Snapshot())
}
