// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	Backend     BackendConfig
	UI          UIConfig
	RateLimit   RateLimitConfig
	Retry       RetryConfig
	Timeout     TimeoutConfig
}

// BackendConfig controls the simulated backend.
type BackendConfig struct {
	ListLatency       time.Duration
	CreateLatency     time.Duration
	UpdateLatency     time.Duration
	DeleteLatency     time.Duration
	SaveRulesLatency  time.Duration
	DeleteFailureRate float64
	FailureSeed       int64 // 0 = seeded from the clock
}

// UIConfig controls user-facing timings.
type UIConfig struct {
	NotificationTTL time.Duration
	ChatReplyDelay  time.Duration
}

// RateLimitConfig controls per-client chat rate limiting.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// RetryConfig controls database retry behavior.
type RetryConfig struct {
	DatabaseMaxRetries     int
	DatabaseRetryBaseDelay time.Duration
}

// TimeoutConfig holds timeouts for request handling.
type TimeoutConfig struct {
	HealthCheck time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/studio.db"),
		Backend: BackendConfig{
			ListLatency:       getEnvDuration("LATENCY_LIST", 800*time.Millisecond),
			CreateLatency:     getEnvDuration("LATENCY_CREATE", time.Second),
			UpdateLatency:     getEnvDuration("LATENCY_UPDATE", 800*time.Millisecond),
			DeleteLatency:     getEnvDuration("LATENCY_DELETE", 600*time.Millisecond),
			SaveRulesLatency:  getEnvDuration("LATENCY_SAVE_RULES", time.Second),
			DeleteFailureRate: getEnvFloat("DELETE_FAILURE_RATE", 0.1),
			FailureSeed:       int64(getEnvInt("FAILURE_SEED", 0)),
		},
		UI: UIConfig{
			NotificationTTL: getEnvDuration("NOTIFICATION_TTL", 3*time.Second),
			ChatReplyDelay:  getEnvDuration("CHAT_REPLY_DELAY", 1500*time.Millisecond),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("CHAT_RATE_LIMIT", 20),
			WindowDuration:    getEnvDuration("CHAT_RATE_WINDOW", time.Minute),
		},
		Retry: RetryConfig{
			DatabaseMaxRetries:     getEnvInt("DB_MAX_RETRIES", 3),
			DatabaseRetryBaseDelay: getEnvDuration("DB_RETRY_BASE_DELAY", 50*time.Millisecond),
		},
		Timeout: TimeoutConfig{
			HealthCheck: getEnvDuration("HEALTH_CHECK_TIMEOUT", 5*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Backend.DeleteFailureRate < 0 || c.Backend.DeleteFailureRate > 1 {
		return fmt.Errorf("DELETE_FAILURE_RATE must be between 0 and 1")
	}
	for name, d := range map[string]time.Duration{
		"LATENCY_LIST":       c.Backend.ListLatency,
		"LATENCY_CREATE":     c.Backend.CreateLatency,
		"LATENCY_UPDATE":     c.Backend.UpdateLatency,
		"LATENCY_DELETE":     c.Backend.DeleteLatency,
		"LATENCY_SAVE_RULES": c.Backend.SaveRulesLatency,
		"CHAT_REPLY_DELAY":   c.UI.ChatReplyDelay,
	} {
		if d < 0 {
			return fmt.Errorf("%s cannot be negative", name)
		}
	}
	if c.UI.NotificationTTL <= 0 {
		return fmt.Errorf("NOTIFICATION_TTL must be > 0")
	}
	if c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("CHAT_RATE_LIMIT must be > 0")
	}
	if c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("CHAT_RATE_WINDOW must be > 0")
	}
	if c.Retry.DatabaseMaxRetries <= 0 {
		return fmt.Errorf("DB_MAX_RETRIES must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the origins the API accepts cross-origin requests from.
func (c *Config) AllowedOrigins() []string {
	if c.IsDevelopment() {
		return []string{"*"}
	}
	return []string{c.FrontendURL}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// getEnvDuration accepts Go duration strings ("800ms") or plain milliseconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
