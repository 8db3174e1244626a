package log

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	CorrelatedIDKey     contextKey = "correlation_id"
	LoggerKeyForContext contextKey = "logger"
)

func GenerateCorrelationID() string {
	return uuid.NewString()
}

func GetOrGenerateCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelatedIDKey).(string); ok && id != "" {
		return id
	}
	return GenerateCorrelationID()
}

// ContextWithCorrelationID stores id, generating one when id is empty.
func ContextWithCorrelationID(ctx context.Context, id string) (context.Context, string) {
	if id == "" {
		id = GenerateCorrelationID()
	}
	return context.WithValue(ctx, CorrelatedIDKey, id), id
}

// ContextWithLogger stores a logger already bound to the context's
// correlation id so downstream code can pick it up with
// GetLoggerInstanceFromContext.
func ContextWithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerKeyForContext, logger.WithCorrelationID(ctx))
}

// GetLoggerInstanceFromContext returns the logger stored in ctx. Otherwise
// it binds fallbackLogger, or a stdout logger, to the correlation id of ctx.
func GetLoggerInstanceFromContext(ctx context.Context, fallbackLogger *Logger) *Logger {
	if fallbackLogger == nil {
		fallbackLogger = NewLoggerWithJSONOutput()
	}
	if ctx == nil {
		return fallbackLogger
	}
	if l, ok := ctx.Value(LoggerKeyForContext).(*Logger); ok {
		return l
	}
	return fallbackLogger.WithCorrelationID(ctx)
}
