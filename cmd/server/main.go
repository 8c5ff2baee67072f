// Package main is the entry point for the tsubuyaki server.
//
// main only reads configuration, builds the logger and the backend, and
// starts the server. Everything else lives under internal/.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/sakif/tsubuyaki/internal/config"
	"github.com/sakif/tsubuyaki/internal/server"
)

func main() {
	// === 1. CONFIGURATION ===
	// Reads .env when present, then the environment. See internal/config.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. LOGGING ===
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// === 3. BACKEND ===
	b, err := server.OpenBackend(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to open backend", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 4. SERVER ===
	srv, err := server.New(cfg, b, logger)
	if err != nil {
		b.Close()
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM and closes the backend on the way out.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
