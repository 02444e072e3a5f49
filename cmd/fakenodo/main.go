// Package main provides the standalone mock archive service. It exposes a
// Zenodo-style deposition API backed by in-memory state and a local storage
// directory, for development and end-to-end testing of the publication
// workflow.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uvlhub/datahub/pkg/archive"
)

func main() {
	var (
		listenAddr string
		storageDir string
	)
	flag.StringVar(&listenAddr, "listen", ":5001", "Address to listen on")
	flag.StringVar(&storageDir, "storage", "fakenodo-uploads", "Directory for uploaded files")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	files, err := archive.NewFileStore(storageDir)
	if err != nil {
		logger.Error("failed to create storage directory", "dir", storageDir, "error", err)
		os.Exit(1)
	}
	registry := archive.NewRegistry(files, logger)
	router := archive.NewRouter(registry, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: router,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	logger.Info("fakenodo ready", "listen", listenAddr, "storage", files.Dir())

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("fakenodo stopped")
}
