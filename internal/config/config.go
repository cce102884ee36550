// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
)

// knownWeakSecrets contains example secrets that must never sign webhooks.
var knownWeakSecrets = []string{
	"change-me-to-a-long-webhook-secret",
	"REPLACE_WITH_YOUR_OWN_WEBHOOK_SECRET",
}

// MinWebhookSecretLength is the minimum length of the HMAC signing key.
const MinWebhookSecretLength = 16

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Env        string `env:"NEWSMATE_ENV" envDefault:"development"`
	ServerHost string `env:"NEWSMATE_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"NEWSMATE_SERVER_PORT" envDefault:"8080"`
	LogLevel   string `env:"NEWSMATE_LOG_LEVEL" envDefault:"info"`

	// Audit database
	DBPath         string        `env:"NEWSMATE_DB_PATH" envDefault:"./data/newsmate.db"`
	EventRetention time.Duration `env:"NEWSMATE_EVENT_RETENTION" envDefault:"720h"` // Event log entries older than this are pruned daily

	// Auto-publish sweep
	SweepSchedule string `env:"NEWSMATE_SWEEP_SCHEDULE" envDefault:"* * * * *"`

	// Cache configuration
	RedisURL     string        `env:"NEWSMATE_REDIS_URL"`                           // Optional Redis URL for shared list caching
	CachePrefix  string        `env:"NEWSMATE_CACHE_PREFIX" envDefault:"newsmate:"` // Redis key prefix
	CacheTTL     time.Duration `env:"NEWSMATE_CACHE_TTL" envDefault:"5m"`           // Default cache TTL
	CacheMaxSize int           `env:"NEWSMATE_CACHE_MAX_SIZE" envDefault:"10000"`   // Max memory cache entries

	// Webhooks
	WebhookURLs    []string `env:"NEWSMATE_WEBHOOK_URLS" envSeparator:","`
	WebhookSecret  string   `env:"NEWSMATE_WEBHOOK_SECRET"`
	WebhookWorkers int      `env:"NEWSMATE_WEBHOOK_WORKERS" envDefault:"3"`

	// Per-actor write rate limiting
	RateLimit float64 `env:"NEWSMATE_RATE_LIMIT" envDefault:"10"` // Requests per second
	RateBurst int     `env:"NEWSMATE_RATE_BURST" envDefault:"20"`

	// Seeding configuration
	BootstrapAdmin string `env:"NEWSMATE_BOOTSTRAP_ADMIN" envDefault:"Super Admin"` // Name of the first super admin
	DoSeed         bool   `env:"NEWSMATE_DO_SEED" envDefault:"false"`               // Load demo newsroom data
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// WebhooksEnabled returns true if at least one webhook endpoint is configured.
func (c Config) WebhooksEnabled() bool {
	return len(c.WebhookURLs) > 0
}

// SlogLevel maps LogLevel to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.WebhooksEnabled() && !hasMinimumEntropy(cfg.WebhookSecret) {
		slog.Warn("NEWSMATE_WEBHOOK_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

// Validate checks value ranges and cross-field requirements. All problems
// are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.ServerPort < 1 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("NEWSMATE_SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("NEWSMATE_LOG_LEVEL must be one of debug, info, warn, error; got %q", c.LogLevel))
	}

	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		errs = append(errs, fmt.Errorf("NEWSMATE_SWEEP_SCHEDULE %q is not a valid cron expression: %w", c.SweepSchedule, err))
	}

	if c.EventRetention <= 0 {
		errs = append(errs, errors.New("NEWSMATE_EVENT_RETENTION must be positive"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("NEWSMATE_CACHE_TTL must be positive"))
	}
	if c.CacheMaxSize < 0 {
		errs = append(errs, errors.New("NEWSMATE_CACHE_MAX_SIZE must not be negative"))
	}

	if c.RateLimit <= 0 {
		errs = append(errs, errors.New("NEWSMATE_RATE_LIMIT must be positive"))
	}
	if c.RateBurst < 1 {
		errs = append(errs, errors.New("NEWSMATE_RATE_BURST must be at least 1"))
	}

	errs = append(errs, c.validateWebhooks()...)

	return errors.Join(errs...)
}

func (c *Config) validateWebhooks() []error {
	if !c.WebhooksEnabled() {
		return nil
	}

	var errs []error
	for _, raw := range c.WebhookURLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("NEWSMATE_WEBHOOK_URLS entry %q must be an absolute http or https URL", raw))
		}
	}

	if c.WebhookWorkers < 1 {
		errs = append(errs, errors.New("NEWSMATE_WEBHOOK_WORKERS must be at least 1"))
	}

	switch {
	case c.WebhookSecret == "":
		errs = append(errs, errors.New("NEWSMATE_WEBHOOK_SECRET is required when NEWSMATE_WEBHOOK_URLS is set"))
	case len(c.WebhookSecret) < MinWebhookSecretLength:
		errs = append(errs, fmt.Errorf("NEWSMATE_WEBHOOK_SECRET must be at least %d bytes long, got %d bytes",
			MinWebhookSecretLength, len(c.WebhookSecret)))
	default:
		for _, weak := range knownWeakSecrets {
			if c.WebhookSecret == weak {
				errs = append(errs, errors.New("NEWSMATE_WEBHOOK_SECRET is a known default value and must not be used"))
			}
		}
	}
	return errs
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
