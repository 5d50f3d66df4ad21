// Package logger builds the daemon's slog logger.
package logger

import (
	"io"
	"log/slog"
	"strings"
)

// NewWithWriter returns a logger with a fixed level.
func NewWithWriter(w io.Writer, level string, format string) *slog.Logger {
	lvl := new(slog.LevelVar)
	lvl.Set(ParseLevel(level))
	return NewWithLevel(w, lvl, format)
}

// NewWithLevel builds a logger whose level follows lvl, so a config reload
// can change verbosity in place. format is "json" or "text"; anything
// else falls back to text.
func NewWithLevel(w io.Writer, lvl *slog.LevelVar, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lvl}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps a config level name to a slog level. Unknown names are
// info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
