// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/olegiv/eventbot/internal/auth"
	"github.com/olegiv/eventbot/internal/bot"
	"github.com/olegiv/eventbot/internal/catalog"
	"github.com/olegiv/eventbot/internal/config"
	"github.com/olegiv/eventbot/internal/delivery"
	"github.com/olegiv/eventbot/internal/directory"
	"github.com/olegiv/eventbot/internal/gateway/telegram"
	"github.com/olegiv/eventbot/internal/logging"
	"github.com/olegiv/eventbot/internal/menu"
	"github.com/olegiv/eventbot/internal/scheduler"
	"github.com/olegiv/eventbot/internal/server"
	"github.com/olegiv/eventbot/internal/session"
	"github.com/olegiv/eventbot/internal/timegate"
	"github.com/olegiv/eventbot/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.BoolP("version", "v", false, "Show version information")
	showHelp := flag.BoolP("help", "h", false, "Show help information")
	envFile := flag.String("env-file", "", "Load environment variables from this file instead of ./.env")
	checkOnly := flag.Bool("check", false, "Validate configuration, catalog and attendee list, then exit")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "eventbot - Telegram assistant for event attendees\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BOT_TOKEN            Telegram bot token (required)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  USE_WEBHOOK          Receive updates by webhook (default: true)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  WEBHOOK_HOST         Public base URL for the webhook; polling when empty\n")
		_, _ = fmt.Fprintf(os.Stderr, "  HOST, PORT           HTTP listen address (default: 0.0.0.0:8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LAUNCH_DATE          Event date YYYY-MM-DD; enables the pre-launch lockdown\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PRELAUNCH_DAYS       Days before the event the bot unlocks (default: 2)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PRELAUNCH_MESSAGE    Text shown below the countdown while locked\n")
		_, _ = fmt.Fprintf(os.Stderr, "  WIFI_NAME            Venue network name\n")
		_, _ = fmt.Fprintf(os.Stderr, "  WIFI_PASSWORD        Venue network password\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CATALOG_PATH         Catalog YAML (default: embedded)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DIRECTORY_PATH       Attendee list YAML (default: embedded)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DATA_DIR             Base directory for catalog files (default: ./data)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  REDIS_URL            Redis URL for sessions (optional, memory when empty)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SESSION_PREFIX       Redis key prefix (default: eventbot:session:)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SESSION_TTL          Session lifetime in Redis, 0 for none (default: 0s)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BOT_STATUS_CRON      Status report schedule (default: @every 1h)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  TELEGRAM_SEND_RATE   Outbound API calls per second (default: 25)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  HEALTH_VERBOSE       Report runtime details on /health?verbose=true (default: false)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BOT_ENV              Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LOG_LEVEL            debug|info|warn|error (default: info)\n")
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
		_, _ = fmt.Println(versionInfo.String())
		os.Exit(0)
	}

	if err := run(*envFile, *checkOnly, versionInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(envFile string, checkOnly bool, versionInfo version.Info) error {
	if err := loadEnv(envFile); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(os.Stdout, logging.ParseLevel(cfg.LogLevel), cfg.IsDevelopment(), cfg.BotToken)
	slog.SetDefault(logger)

	dir, cat, err := loadContent(cfg)
	if err != nil {
		return err
	}
	logger.Info("content loaded",
		"event", cat.EventName,
		"presenters", len(cat.Presenters),
		"attendees", dir.Len())

	if checkOnly {
		logger.Info("configuration is valid")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := session.New(ctx, session.Config{
		RedisURL: cfg.RedisURL,
		Prefix:   cfg.SessionPrefix,
		TTL:      cfg.SessionTTL,
	})
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("error closing session store", "error", err)
		}
	}()
	if cfg.UseRedisSessions() {
		logger.Info("session store initialized", "backend", "redis")
	} else {
		logger.Info("session store initialized", "backend", "memory")
	}

	if err := telegram.UseLogger(logger); err != nil {
		logger.Warn("failed to redirect telegram logger", "error", err)
	}
	client, err := telegram.New(telegram.Options{
		Token:    cfg.BotToken,
		SendRate: cfg.SendRate,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	launch, hasLaunch := cfg.LaunchAt()
	gate := timegate.New(launch, hasLaunch, cfg.PrelaunchDays, cfg.PrelaunchMessage)
	if unlock, ok := gate.UnlockAt(); ok {
		logger.Info("pre-launch lockdown configured", "unlocks_at", unlock.Format(time.DateOnly))
	}

	router := bot.NewRouter(bot.Deps{
		Gateway:   client,
		Gate:      gate,
		Auth:      auth.New(dir, store, logger),
		Catalog:   cat,
		Renderer:  menu.NewRenderer(cat, cfg.WifiName, cfg.WifiPassword),
		Deliverer: delivery.New(client, logger),
		Logger:    logger,
	})
	dispatcher := bot.NewDispatcher(router, logger, bot.DefaultConfig())

	srvOpts := server.Options{
		Addr:   cfg.ServerAddr(),
		Health: server.NewHealthHandler(store, cfg.DataDir, versionInfo.Version, cfg.HealthVerbose),
		Logger: logger,
	}
	if cfg.WebhookMode() {
		srvOpts.WebhookPath = cfg.WebhookPath()
		srvOpts.Webhook = client.WebhookHandler(dispatcher)
	}
	srv := server.New(srvOpts)
	sched := scheduler.New(cfg.StatusCron, statusFunc(gate, store, dispatcher), logger)

	logger.Info("starting eventbot",
		"version", versionInfo.Version,
		"bot", client.Username(),
		"webhook", cfg.WebhookMode(),
		"env", cfg.Env)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Serve(gctx, srv, logger) })
	g.Go(func() error { return sched.Run(gctx) })
	if cfg.WebhookMode() {
		if err := client.SetWebhook(gctx, cfg.WebhookURL()); err != nil {
			stop()
			_ = g.Wait()
			return err
		}
	} else {
		g.Go(func() error { return client.Poll(gctx, dispatcher) })
	}
	err = g.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
	defer cancel()
	if stopErr := dispatcher.Stop(stopCtx); stopErr != nil {
		logger.Warn("event dispatcher did not drain", "error", stopErr)
	}

	logger.Info("eventbot stopped")
	return err
}

// loadEnv loads .env files. An explicit file must exist; the default
// ./.env is optional.
func loadEnv(envFile string) error {
	if envFile == "" {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("loading env file: %w", err)
	}
	return nil
}

// loadContent loads and validates the attendee list and the catalog.
func loadContent(cfg *config.Config) (*directory.Directory, *catalog.Catalog, error) {
	if err := scheduler.Validate(cfg.StatusCron); err != nil {
		return nil, nil, fmt.Errorf("BOT_STATUS_CRON: %w", err)
	}

	dir, err := directory.Load(cfg.DirectoryPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading attendee list: %w", err)
	}
	cat, err := catalog.Load(cfg.CatalogPath, cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading catalog: %w", err)
	}
	if err := menu.ValidateTokens(cat); err != nil {
		return nil, nil, fmt.Errorf("validating catalog: %w", err)
	}
	return dir, cat, nil
}

// statusFunc reports the gate state, session count and dispatcher load.
func statusFunc(gate *timegate.Gate, store session.Store, d *bot.Dispatcher) scheduler.StatusFunc {
	return func(ctx context.Context) (scheduler.Status, error) {
		n, err := store.Count(ctx)
		if err != nil {
			return scheduler.Status{}, fmt.Errorf("counting sessions: %w", err)
		}
		locked, _ := gate.IsLocked(time.Now())
		return scheduler.Status{
			Locked:      locked,
			Sessions:    n,
			ActiveUsers: d.Active(),
		}, nil
	}
}
