package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/tagimport/internal/config"
	"github.com/JonMunkholm/tagimport/internal/importer"
	"github.com/JonMunkholm/tagimport/internal/logging"
	"github.com/JonMunkholm/tagimport/internal/store"
	"github.com/JonMunkholm/tagimport/internal/tagcsv"
	"github.com/JonMunkholm/tagimport/internal/web"
)

func main() {
	// Overload lets a local .env win over the shell environment.
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("configuration loaded", "config", cfg.String())

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		logger.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	tracks := store.New(pool, logger.With("component", "store"))
	if err := tracks.EnsureSchema(ctx); err != nil {
		logger.Error("failed to prepare schema", "error", err)
		os.Exit(1)
	}

	parser := tagcsv.New(
		tagcsv.WithLogger(logger.With("component", "tagcsv")),
		tagcsv.WithHeaderMode(cfg.Parse.Mode()),
		tagcsv.WithMaxFileSize(cfg.Parse.MaxFileSize),
	)
	logger.Info("parse cascade ready", "stages", parser.Stages(), "header_mode", cfg.Parse.Mode())

	limiter := importer.NewLimiter(cfg.Parse.MaxConcurrent, cfg.Parse.MaxWaitTime)
	service := importer.New(parser, tracks, limiter, logger.With("component", "importer"))
	server := web.NewServer(cfg, service, tracks, logger)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}

		if st := limiter.Status(); st.Active > 0 {
			logger.Info("waiting for parses to complete", "active", st.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				logger.Warn("parses did not complete in time", "error", err)
			} else {
				logger.Info("all parses completed")
			}
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-stopped
	logger.Info("server stopped")
}
