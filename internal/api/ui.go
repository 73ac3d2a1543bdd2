package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ToggleTheme flips the theme. A failed write is logged; the new theme is
// still returned.
func (h *Handler) ToggleTheme(w http.ResponseWriter, _ *http.Request) {
	theme, err := h.store.ToggleTheme()
	if err != nil {
		slog.Warn("Failed to persist theme", "theme", theme, "error", err)
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"theme":     theme,
		"persisted": err == nil,
	})
}

// GetNotification returns the notification on display, or 204 when there is none.
func (h *Handler) GetNotification(w http.ResponseWriter, _ *http.Request) {
	n, ok := h.notes.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	JSON(w, http.StatusOK, n)
}

// DismissNotification hides a notification before it expires.
func (h *Handler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	if !h.notes.Dismiss(chi.URLParam(r, "id")) {
		Error(w, http.StatusNotFound, "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
