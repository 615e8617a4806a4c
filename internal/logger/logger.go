package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/alkime/jackmixer/internal/config"
)

// SetupLogger configures structured logging based on environment. Logs go
// to stderr; stdout is reserved for state output.
func SetupLogger(cfg *config.Config) *slog.Logger {
	logger := New(os.Stderr, cfg)

	slog.SetDefault(logger)

	return logger
}

// New builds a logger writing to w.
func New(w io.Writer, cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	if cfg.IsDevelopment() {
		level = slog.LevelDebug
	}

	//nolint:exhaustruct // Using default values for other HandlerOptions fields
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
