// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/newsmate-go/internal/cache"
	"github.com/olegiv/newsmate-go/internal/config"
	"github.com/olegiv/newsmate-go/internal/handler/api"
	"github.com/olegiv/newsmate-go/internal/logging"
	"github.com/olegiv/newsmate-go/internal/middleware"
	"github.com/olegiv/newsmate-go/internal/model"
	"github.com/olegiv/newsmate-go/internal/resource"
	"github.com/olegiv/newsmate-go/internal/scheduler"
	"github.com/olegiv/newsmate-go/internal/service"
	"github.com/olegiv/newsmate-go/internal/store"
	"github.com/olegiv/newsmate-go/internal/version"
	"github.com/olegiv/newsmate-go/internal/webhook"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// eventRetentionJob prunes the event log once a day.
const eventRetentionJob = "event_retention"

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "newsmate - newsroom content and ad campaign API\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSMATE_DB_PATH           Audit database path (default: ./data/newsmate.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSMATE_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSMATE_ENV               Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSMATE_REDIS_URL         Redis URL for shared list caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSMATE_WEBHOOK_URLS      Comma-separated webhook endpoints (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSMATE_SWEEP_SCHEDULE    Auto-publish cron schedule (default: every minute)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSMATE_DO_SEED           Load demo newsroom data (default: false)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}
	if *showVersion {
		_, _ = fmt.Printf("newsmate %s (built: %s)\n", versionInfo, versionInfo.BuildTime)
		os.Exit(0)
	}

	if err := run(versionInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(versionInfo version.Info) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := cfg.SlogLevel()
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(textHandler)
	slog.SetDefault(logger)

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing audit database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}()

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Upgrade logger to also write WARN and ERROR logs to the event log
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	eventService := service.NewEventService(db)
	auditService := service.NewAuditService(db, logger)

	listCache := cache.New(cache.Config{
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      cfg.CacheTTL,
		MaxSize:         cfg.CacheMaxSize,
		CleanupInterval: time.Minute,
	}, logger)
	defer func() {
		if err := listCache.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()

	ctx := context.Background()
	sinks := resource.MultiSink{
		resource.LogSink{Logger: logger},
		auditService,
		cache.NewInvalidator(listCache),
	}

	var dispatcher *webhook.Dispatcher
	var debouncer *webhook.Debouncer
	if cfg.WebhooksEnabled() {
		whCfg := webhook.DefaultConfig()
		whCfg.URLs = cfg.WebhookURLs
		whCfg.Secret = cfg.WebhookSecret
		whCfg.Workers = cfg.WebhookWorkers
		dispatcher = webhook.NewDispatcher(logger, whCfg)
		dispatcher.Start(ctx)
		debouncer = webhook.NewDebouncer(dispatcher, webhook.DefaultDebounceConfig())
		sinks = append(sinks, webhook.NewNotifier(dispatcher, debouncer))
		slog.Info("webhook dispatcher initialized", "endpoints", len(cfg.WebhookURLs), "workers", cfg.WebhookWorkers)
	}

	newsroom := resource.New(resource.Options{
		Sink:    sinks,
		Logger:  logger,
		Denials: eventService,
	})

	root, err := newsroom.Bootstrap(ctx, cfg.BootstrapAdmin)
	if err != nil {
		return fmt.Errorf("bootstrapping super admin: %w", err)
	}
	// The password is never stored in plain text, so this is the only
	// chance to hand it to the operator. It stays out of the log stream.
	printCredentials(os.Stderr, "Super admin", root)
	_ = eventService.LogInfo(ctx, model.EventCategoryStaff, "Super admin bootstrapped", root.Account.ID,
		map[string]any{"email": root.Credentials.Email})

	if cfg.DoSeed {
		report, err := resource.Seed(ctx, newsroom, root.Account.Actor(), rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)))
		if err != nil {
			return fmt.Errorf("seeding demo data: %w", err)
		}
		for _, s := range report.Staff {
			printCredentials(os.Stderr, "Demo "+s.Account.Role.Label(), s)
		}
		slog.Info("demo data loaded", "categories", report.Categories, "news", report.News, "ads", report.Ads, "trashed", report.Trashed)
	}

	sched := scheduler.New(newsroom, cfg.SweepSchedule, logger)
	err = sched.Register(eventRetentionJob, "Prune event log entries past the retention period", "@daily",
		func(ctx context.Context) error {
			n, err := eventService.DeleteOldEvents(ctx, cfg.EventRetention)
			if err != nil {
				return err
			}
			slog.Info("event log pruned", "category", "system", "deleted", n, "retention", cfg.EventRetention)
			return nil
		})
	if err != nil {
		return fmt.Errorf("registering retention job: %w", err)
	}
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	loginCfg := middleware.DefaultLoginProtectionConfig()
	loginCfg.Logger = logger
	loginProtection := middleware.NewLoginProtection(loginCfg)

	apiHandler := api.NewHandler(api.Config{
		Store:     newsroom,
		Audit:     auditService,
		Events:    eventService,
		Jobs:      sched,
		Cache:     listCache,
		CacheTTL:  cfg.CacheTTL,
		Login:     loginProtection,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		Version:   versionInfo.String(),
		Logger:    logger,
	})

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.StripSlashes)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(middleware.Timeout(30*time.Second, logger))
	r.Use(middleware.NewGlobalRateLimiter(50, 100).Middleware())

	r.Mount("/api/v1", apiHandler.Routes())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		api.WriteNotFound(w, "Not found")
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.String())
		_ = eventService.LogSystemEvent(ctx, model.EventLevelInfo, "Server started",
			map[string]any{"addr": cfg.ServerAddr(), "version": versionInfo.String()})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// Pending debounced events go out before the workers stop.
	if debouncer != nil {
		debouncer.Stop()
	}
	if dispatcher != nil {
		dispatcher.Stop()
	}
	sched.Stop()
	loginProtection.Close()

	_ = eventService.LogSystemEvent(context.Background(), model.EventLevelInfo, "Server stopped", nil)
	slog.Info("server stopped")
	return nil
}

// printCredentials writes generated staff credentials for the operator.
func printCredentials(w io.Writer, label string, c resource.StaffCreated) {
	_, _ = fmt.Fprintf(w, "%s %q (%s)\n  email:    %s\n  password: %s\n",
		label, c.Account.Name, c.Account.ID, c.Credentials.Email, c.Credentials.Password)
}
