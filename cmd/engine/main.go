// Command engine runs the request-processing engine: identity resolution,
// classification, deduplication and lifecycle management for inbound
// content requests. The chat transport and admin UI attach to the engine
// surface; this process owns the store, the cache and the services.
//
// Configuration comes from CONFIG_PATH (YAML) overridden by environment
// variables; see internal/config. Exit codes: 0 = clean shutdown,
// 1 = startup or config error.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/blackflag/requestbot/internal/app"
	"github.com/blackflag/requestbot/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer a.Close()

	<-ctx.Done()
	logger.Info("shutdown signal received")
}
