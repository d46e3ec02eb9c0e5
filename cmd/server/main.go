// Command server runs the diary HTTP service.
//
// Configuration is read from an optional YAML file (-config) and from the
// environment; see internal/config for the keys.
package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Thcamm/personal-diary/internal/config"
	"github.com/Thcamm/personal-diary/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("DIARY_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	if cfg.Auth.EphemeralSecret {
		logger.Warn("JWT_SECRET not set, using a random secret; sessions end when the server restarts")
	}
	if !cfg.GitHub.Enabled() {
		logger.Info("GitHub sign-in disabled, set GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET to enable it")
	}

	if cfg.Database.Driver == "sqlite" && cfg.Database.DSN != ":memory:" {
		dbDir := filepath.Dir(cfg.Database.DSN)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
