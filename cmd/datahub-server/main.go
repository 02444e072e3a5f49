// Package main provides the dataset hub server entry point: dataset CRUD,
// versioning, trending, recommendations and the archive publication
// workflow in a single process.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/uvlhub/datahub/pkg/archive"
	"github.com/uvlhub/datahub/pkg/server"
)

func main() {
	var (
		configPath string
		listenAddr string
	)
	flag.StringVar(&configPath, "config", "", "Path to YAML config file")
	flag.StringVar(&listenAddr, "listen", "", "Address to listen on (overrides config)")
	flag.Parse()

	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("starting datahub server",
		"listen", cfg.Listen,
		"driver", cfg.DatabaseDriver,
		"archive", cfg.ArchiveURL != "",
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	db, err := openDatabase(cfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var opts []server.Option
	if cfg.ArchiveURL != "" {
		opts = append(opts, server.WithArchiveClient(archive.NewClient(cfg.ArchiveURL, nil)))
	}

	srv := server.New(db, logger, opts...)
	if err := srv.Init(); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	router := srv.MountRoutes()

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: router,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	logger.Info("datahub server ready", "listen", cfg.Listen)

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("datahub server stopped")
}

func openDatabase(cfg *server.Config) (*gorm.DB, error) {
	switch cfg.DatabaseDriver {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	default:
		return gorm.Open(sqlite.Open(cfg.DatabaseDSN), &gorm.Config{})
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
