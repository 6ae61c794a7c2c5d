// SPDX-License-Identifier: MIT

// Command workpulsed is the break-tracking daemon: HTTP API, push event
// stream and the break monitor, backed by SQLite and (optionally) Redis.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/Aathif-M/workpulse/internal/api"
	"github.com/Aathif-M/workpulse/internal/auth"
	"github.com/Aathif-M/workpulse/internal/clock"
	"github.com/Aathif-M/workpulse/internal/config"
	"github.com/Aathif-M/workpulse/internal/hub"
	wplog "github.com/Aathif-M/workpulse/internal/log"
	"github.com/Aathif-M/workpulse/internal/store"
	"github.com/Aathif-M/workpulse/internal/telemetry"
	"github.com/Aathif-M/workpulse/internal/watch"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// .env is a development convenience; absence is not an error
	_ = godotenv.Load()

	wplog.Configure(wplog.Config{
		Level:   config.ParseString("WP_LOG_LEVEL", "info"),
		Service: "workpulsed",
		Version: version,
	})
	logger := wplog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", *configPath).
			Msg("failed to load configuration")
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.ListenAddr).
		Msg("starting workpulsed")
	logger.Info().Msgf("→ Data dir: %s", cfg.DataDir)
	if cfg.RedisAddr != "" {
		logger.Info().Msgf("→ Sessions: redis (%s)", cfg.RedisAddr)
	} else {
		logger.Warn().Msg("→ Sessions: in-memory (tokens do not survive restarts)")
	}
	logger.Info().Msgf("→ Warning lead: %s, monitor interval: %s", cfg.WarningLead, cfg.MonitorInterval)

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		logger.Fatal().Err(err).Msg("failed to create data directory")
	}

	tracer, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.TracingEnabled,
		ServiceName:    "workpulsed",
		ServiceVersion: version,
		Environment:    config.ParseString("WP_ENV", "production"),
		ExporterType:   cfg.TracingExporter,
		Endpoint:       cfg.TracingEndpoint,
		SamplingRate:   cfg.TracingSampling,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise tracing")
	}

	st, err := store.New(cfg.DatabasePath(), store.DefaultConfig())
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DatabasePath()).Msg("failed to open database")
	}

	sessions, err := auth.NewSessions(auth.Config{
		TTL:           cfg.TokenTTL,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	}, wplog.WithComponent("auth"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise session store")
	}

	events := hub.New()
	clk := clock.System()
	monitor := watch.New(st, events, clk, cfg.WarningLead, cfg.MonitorInterval)

	server := api.New(cfg, st, sessions, events, clk,
		api.WithSweeper(monitor),
		api.WithVersion(version),
	)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := monitor.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("break monitor: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		logger.Info().Msg("shutting down")
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		events.Close()
		if err := sessions.Close(); err != nil {
			logger.Warn().Err(err).Msg("session store close failed")
		}
		if err := st.Close(); err != nil {
			logger.Warn().Err(err).Msg("database close failed")
		}
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("daemon failed")
	}
	logger.Info().Msg("server exiting")
}
