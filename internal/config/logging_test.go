package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LoggingConfig{Level: "debug"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LoggingConfig{Level: "info"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, LoggingConfig{Level: "warn"}.SlogLevel())
	assert.Equal(t, slog.LevelError, LoggingConfig{Level: "error"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LoggingConfig{}.SlogLevel())
}

func TestLoggingHandlerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	handler := LoggingConfig{Level: "info", Format: "json"}.Handler(&buf, false)

	slog.New(handler).Info("daemon started", "pid", 42)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "daemon started", record["msg"])
	assert.Equal(t, float64(42), record["pid"])
}

func TestLoggingHandlerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	handler := LoggingConfig{Level: "info", Format: "text"}.Handler(&buf, false)

	slog.New(handler).Info("daemon started")

	out := buf.String()
	assert.Contains(t, out, "msg=\"daemon started\"")
	assert.False(t, strings.HasPrefix(out, "{"))
}

func TestLoggingHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	handler := LoggingConfig{Level: "warn", Format: "text"}.Handler(&buf, false)
	logger := slog.New(handler)

	logger.Info("suppressed")
	logger.Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "suppressed")
	assert.Contains(t, out, "kept")
}

func TestLoggingHandlerForceDebug(t *testing.T) {
	var buf bytes.Buffer
	handler := LoggingConfig{Level: "error", Format: "text"}.Handler(&buf, true)

	slog.New(handler).Debug("verbose detail")

	assert.Contains(t, buf.String(), "verbose detail")
}
