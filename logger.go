package ggui

import (
	"log/slog"

	"github.com/gogpu/ggui/internal/logging"
)

// SetLogger configures the logger for ggui and all its sub-packages.
// By default, ggui produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by ggui:
//   - [slog.LevelDebug]: pass statistics (closure size, measured leaves, cache hits)
//   - [slog.LevelWarn]: recovered failures (measurement errors, rejected cache entries)
//   - [slog.LevelError]: structural mutations that were dropped (cycles, second root)
//
// Example:
//
//	ggui.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Logger returns the current logger used by ggui.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return logging.L()
}
