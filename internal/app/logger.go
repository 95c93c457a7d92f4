package app

import (
	"log/slog"
	"os"
	"strings"

	"github.com/blackflag/requestbot/internal/config"
)

// NewLogger builds the process logger from config and installs it as the
// slog default. Format "json" is for production ingestion; anything else
// gets a text handler with source locations for development.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level, AddSource: true})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
