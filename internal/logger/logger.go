// Package logger carries a single zap.Logger on a context.Context
// rather than one context key per field, selected once at process start
// between a structured production encoder and a human-readable
// development one.
package logger

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

const loggerKey contextKey = "logger"

// PrepareLogger builds the process logger (development or production,
// selected by EXECENGINE_ENV) and attaches it to ctx.
//
// Usage:
//
//	ctx, log := logger.PrepareLogger(ctx)
//	log.Info("worker started")
func PrepareLogger(ctx context.Context) (context.Context, *zap.Logger) {
	l := NewLoggerFromEnv()
	return context.WithValue(ctx, loggerKey, l), l
}

// GetLogger recovers the logger attached to ctx, falling back to a
// production logger if none was ever attached. Never returns nil.
func GetLogger(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return NewProductionLogger()
	}
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok && l != nil {
		return l
	}
	return NewProductionLogger()
}

func withFields(ctx context.Context, fields ...zap.Field) context.Context {
	l := GetLogger(ctx).With(fields...)
	return context.WithValue(ctx, loggerKey, l)
}

// WithRun returns a context carrying a sub-logger with runId and
// tenantId fields, the correlation pair every execution-context log
// line must include.
func WithRun(ctx context.Context, runID, tenantID string) context.Context {
	return withFields(ctx, zap.String("run_id", runID), zap.String("tenant_id", tenantID))
}

// NewProductionLogger logs at INFO and above to stdout as JSON with an
// ISO8601 timestamp.
func NewProductionLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// NewDevelopmentLogger logs at DEBUG and above to stdout in a
// human-readable, color-coded console format.
func NewDevelopmentLogger() *zap.Logger {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	l, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// NewLoggerFromEnv picks the development logger when EXECENGINE_ENV is
// "development" or "dev", and the production logger otherwise.
func NewLoggerFromEnv() *zap.Logger {
	env := os.Getenv("EXECENGINE_ENV")
	if env == "development" || env == "dev" {
		return NewDevelopmentLogger()
	}
	return NewProductionLogger()
}
