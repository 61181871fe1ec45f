package config

import (
	"io"
	"log/slog"
)

// SlogLevel maps the configured level name to a slog.Level. Unknown or
// empty values fall back to info.
func (c LoggingConfig) SlogLevel() slog.Level {
	switch c.Level {
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

// Handler builds a slog handler from the logging configuration. forceDebug
// lowers the level to debug regardless of the configured level (used by the
// --verbose flag and core.debug).
func (c LoggingConfig) Handler(w io.Writer, forceDebug bool) slog.Handler {
	level := c.SlogLevel()
	if forceDebug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
