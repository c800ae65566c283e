// migrate applies the embedded users and audit schema; run with go run ./cmd/migrate [-direction up|down] [-status].
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"identity-registration/internal/config"
	"identity-registration/internal/db/migrate"
	"identity-registration/internal/logging"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	status := flag.Bool("status", false, "Print the current schema version and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	if *status {
		version, dirty, err := migrate.Version(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("migrate status failed", zap.Error(err))
		}
		logger.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		logger.Fatal("migrate failed", zap.String("direction", *direction), zap.Error(err))
	}
	logger.Info("migrations applied", zap.String("direction", *direction))
}
