package logging

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const serviceName = "homefin"

const (
	envLogLevel  = "HOMEFIN_LOG_LEVEL"
	envLogFormat = "HOMEFIN_LOG_FORMAT"
)

// NewLogger creates a slog.Logger writing to stdout and installs it as the
// process default. Level and format come from HOMEFIN_LOG_LEVEL and
// HOMEFIN_LOG_FORMAT ("json" or text), falling back to the given level.
func NewLogger(level slog.Level) *slog.Logger {
	handler := newHandler(os.Stdout, resolveLevel(level))
	logger := slog.New(handler).With("service", serviceName)
	slog.SetDefault(logger)
	return logger
}

func resolveLevel(fallback slog.Level) slog.Level {
	value := strings.TrimSpace(os.Getenv(envLogLevel))
	if value == "" {
		return fallback
	}

	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		if i, err := strconv.Atoi(value); err == nil {
			return slog.Level(i)
		}
		return fallback
	}
}

func newHandler(w io.Writer, level slog.Level) slog.Handler {
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(os.Getenv(envLogFormat)))
	if format == "json" {
		return slog.NewJSONHandler(w, options)
	}
	return slog.NewTextHandler(w, options)
}
