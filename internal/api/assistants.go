package api

import (
	"net/http"

	"github.com/ashureev/assistant-studio/internal/domain"
	"github.com/go-chi/chi/v5"
)

// GetState returns the current state snapshot.
func (h *Handler) GetState(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.store.Snapshot())
}

// ListAssistants refreshes the list through the backend and returns it.
func (h *Handler) ListAssistants(w http.ResponseWriter, r *http.Request) {
	res, ok := await(w, r, h.orch.Refresh())
	if !ok {
		return
	}
	JSON(w, http.StatusOK, res.Assistants)
}

// GetAssistant returns a single assistant.
func (h *Handler) GetAssistant(w http.ResponseWriter, r *http.Request) {
	a, ok := h.store.Assistant(chi.URLParam(r, "id"))
	if !ok {
		Error(w, http.StatusNotFound, "assistant not found")
		return
	}
	JSON(w, http.StatusOK, a)
}

// CreateAssistant creates an assistant from a form.
func (h *Handler) CreateAssistant(w http.ResponseWriter, r *http.Request) {
	var form domain.AssistantForm
	if !decode(w, r, &form) {
		return
	}
	res, ok := await(w, r, h.orch.Create(form))
	if !ok {
		return
	}
	JSON(w, http.StatusCreated, res.Assistant)
}

// UpdateAssistant replaces the editable fields of an assistant.
func (h *Handler) UpdateAssistant(w http.ResponseWriter, r *http.Request) {
	var form domain.AssistantForm
	if !decode(w, r, &form) {
		return
	}
	res, ok := await(w, r, h.orch.Update(chi.URLParam(r, "id"), form))
	if !ok {
		return
	}
	JSON(w, http.StatusOK, res.Assistant)
}

// PatchAssistant changes only the fields present in the body.
func (h *Handler) PatchAssistant(w http.ResponseWriter, r *http.Request) {
	var patch domain.AssistantPatch
	if !decode(w, r, &patch) {
		return
	}
	res, ok := await(w, r, h.orch.Patch(chi.URLParam(r, "id"), patch))
	if !ok {
		return
	}
	JSON(w, http.StatusOK, res.Assistant)
}

// SaveAssistant submits the editor modal: update in edit mode, create otherwise.
func (h *Handler) SaveAssistant(w http.ResponseWriter, r *http.Request) {
	var form domain.AssistantForm
	if !decode(w, r, &form) {
		return
	}
	res, ok := await(w, r, h.orch.Save(form))
	if !ok {
		return
	}
	JSON(w, http.StatusOK, res)
}

// DeleteAssistant removes an assistant. The backend may fail on purpose.
func (h *Handler) DeleteAssistant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.store.Assistant(id); !ok {
		Error(w, http.StatusNotFound, "assistant not found")
		return
	}
	if _, ok := await(w, r, h.orch.Delete(id)); !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type rulesRequest struct {
	Rules string `json:"rules"`
}

// SaveRules stores the training text of an assistant.
func (h *Handler) SaveRules(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.store.Assistant(id); !ok {
		Error(w, http.StatusNotFound, "assistant not found")
		return
	}
	var req rulesRequest
	if !decode(w, r, &req) {
		return
	}
	res, ok := await(w, r, h.orch.SaveRules(id, req.Rules))
	if !ok {
		return
	}
	JSON(w, http.StatusOK, res.Assistant)
}
