// Package observability provides structured logging helpers shared by the
// pipeline stages and the watch loop.
package observability

import (
	"context"
	"log/slog"
)

// LogContext holds structured logging context information.
type LogContext struct {
	ExportID string
	Stage    string
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithExportID adds an export run ID to the context.
func WithExportID(ctx context.Context, exportID string) context.Context {
	lc := extractLogContext(ctx)
	lc.ExportID = exportID
	return context.WithValue(ctx, logContextKey, lc)
}

// WithStage adds a stage name to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	lc := extractLogContext(ctx)
	lc.Stage = stage
	return context.WithValue(ctx, logContextKey, lc)
}

// extractLogContext retrieves or creates a LogContext from the context.
func extractLogContext(ctx context.Context) LogContext {
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

// Attrs returns slog attributes from the context's LogContext.
func Attrs(ctx context.Context) []any {
	lc := extractLogContext(ctx)
	attrs := []any{}
	if lc.ExportID != "" {
		attrs = append(attrs, slog.String("export.id", lc.ExportID))
	}
	if lc.Stage != "" {
		attrs = append(attrs, slog.String("stage", lc.Stage))
	}
	return attrs
}

// Log emits a log record enriched with context attributes.
func Log(ctx context.Context, level slog.Level, msg string, args ...any) {
	all := append(Attrs(ctx), args...)
	slog.Log(ctx, level, msg, all...)
}

// Info logs at info level with context attributes.
func Info(ctx context.Context, msg string, args ...any) {
	Log(ctx, slog.LevelInfo, msg, args...)
}

// Debug logs at debug level with context attributes.
func Debug(ctx context.Context, msg string, args ...any) {
	Log(ctx, slog.LevelDebug, msg, args...)
}

// Warn logs at warn level with context attributes.
func Warn(ctx context.Context, msg string, args ...any) {
	Log(ctx, slog.LevelWarn, msg, args...)
}

// Error logs at error level with context attributes.
func Error(ctx context.Context, msg string, args ...any) {
	Log(ctx, slog.LevelError, msg, args...)
}
