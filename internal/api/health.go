package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/assistant-studio/internal/config"
	"github.com/ashureev/assistant-studio/internal/store"
	"github.com/go-chi/chi/v5"
)

// HealthHandler reports whether the settings store is reachable.
type HealthHandler struct {
	repo    store.Repository
	timeout time.Duration
}

// NewHealthHandler creates a health handler with the default timeout.
func NewHealthHandler(repo store.Repository) *HealthHandler {
	return &HealthHandler{repo: repo, timeout: 5 * time.Second}
}

// NewHealthHandlerWithConfig creates a health handler using cfg's timeout.
func NewHealthHandlerWithConfig(repo store.Repository, cfg *config.Config) *HealthHandler {
	h := NewHealthHandler(repo)
	if cfg != nil && cfg.Timeout.HealthCheck > 0 {
		h.timeout = cfg.Timeout.HealthCheck
	}
	return h
}

// RegisterHealth registers the health route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}

// Health pings the settings store.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		JSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  "database unavailable",
		})
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
