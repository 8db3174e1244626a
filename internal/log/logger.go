// Package log wraps slog with JSON output and request correlation.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type Logger struct {
	*slog.Logger
}

// NewLoggerWithJSONOutput writes JSON lines to stdout at the level named by
// LOG_LEVEL (debug, info, warn, error). Unknown values mean info.
func NewLoggerWithJSONOutput() *Logger {
	return NewLogger(os.Stdout, ParseLevel(os.Getenv("LOG_LEVEL")))
}

func NewLogger(w io.Writer, level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})),
	}
}

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

func ParseLevel(raw string) slog.Level {
	if level, ok := levels[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return level
	}
	return slog.LevelInfo
}

// WithCorrelationID tags every record with the correlation id of ctx, or a
// fresh one when ctx carries none.
func (l *Logger) WithCorrelationID(ctx context.Context) *Logger {
	return &Logger{Logger: l.Logger.With(string(CorrelatedIDKey), GetOrGenerateCorrelationID(ctx))}
}
