// Assistant Studio - AI assistant management server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/assistant-studio/internal/api"
	"github.com/ashureev/assistant-studio/internal/backend"
	"github.com/ashureev/assistant-studio/internal/chat"
	"github.com/ashureev/assistant-studio/internal/config"
	"github.com/ashureev/assistant-studio/internal/domain"
	"github.com/ashureev/assistant-studio/internal/events"
	"github.com/ashureev/assistant-studio/internal/identity"
	"github.com/ashureev/assistant-studio/internal/metrics"
	"github.com/ashureev/assistant-studio/internal/middleware"
	"github.com/ashureev/assistant-studio/internal/mutation"
	"github.com/ashureev/assistant-studio/internal/notify"
	"github.com/ashureev/assistant-studio/internal/state"
	"github.com/ashureev/assistant-studio/internal/store"
	"github.com/ashureev/assistant-studio/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize settings store.
	repo, err := store.NewSQLite(cfg.DBPath, store.RetryPolicy{
		MaxRetries: cfg.Retry.DatabaseMaxRetries,
		BaseDelay:  cfg.Retry.DatabaseRetryBaseDelay,
	})
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()
	slog.Info("Database connected", "path", cfg.DBPath)

	themes := store.NewThemeStore(repo)
	theme, err := themes.LoadTheme(context.Background())
	if err != nil {
		slog.Warn("Failed to load theme, using default", "error", err)
	}

	// Initialize state and services.
	st := state.New(domain.SeedAssistants(), theme, themes)
	defer st.Close()

	notes := notify.New(cfg.UI.NotificationTTL)
	defer notes.Close()

	assistants := backend.NewSimulated(
		backend.WithLatency(backend.Latency{
			List:      cfg.Backend.ListLatency,
			Create:    cfg.Backend.CreateLatency,
			Update:    cfg.Backend.UpdateLatency,
			Delete:    cfg.Backend.DeleteLatency,
			SaveRules: cfg.Backend.SaveRulesLatency,
		}),
		backend.WithFailurePolicy(backend.NewRandomFailure(cfg.Backend.DeleteFailureRate, cfg.Backend.FailureSeed)),
	)
	slog.Info("Simulated backend ready", "delete_failure_rate", cfg.Backend.DeleteFailureRate, "failure_seed", cfg.Backend.FailureSeed)

	orch := mutation.New(assistants, st, notes)
	sim := chat.NewSimulator(st, chat.WithReplyDelay(cfg.UI.ChatReplyDelay))
	hub := events.NewHub()

	// Initialize handlers.
	apiHandler := api.NewHandler(st, orch, sim, notes)
	chatLimiter := api.NewRateLimiter(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration)
	defer chatLimiter.Stop()
	apiHandler.SetChatLimiter(chatLimiter)
	healthHandler := api.NewHealthHandlerWithConfig(repo, cfg)
	wsHandler := events.NewHandler(st, notes, hub, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(identity.Middleware)

	// Public routes.
	healthHandler.RegisterHealth(r)
	r.Handle("/metrics", metrics.Handler())
	apiHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/events", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// Event streams are long-lived, so there is no write timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	// Mutations still in flight complete without touching the store.
	orch.Close()

	slog.Info("Server stopped successfully")
}
