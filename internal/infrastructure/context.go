package infrastructure

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	apperrors "github.com/galtons-data/family-heights/internal/errors"
)

// Log record keys shared by the pipeline
const (
	KeyRunID       = "run_id"
	KeySpanTraceID = "span_trace_id"
	KeyComponent   = "component"
	KeyError       = "error"
)

// runIDKey carries the id of the current galton invocation. One run covers
// every step it executes, so log lines of a run can be grepped together.
type runIDKey struct{}

// NewRunID returns a fresh run identifier (a UUID v4 string)
func NewRunID() string {
	return uuid.NewString()
}

// WithRunID returns a copy of ctx carrying id
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns the run id of ctx, or "" when none was set
func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// EnsureRunID gives ctx a new run id unless it already carries one
func EnsureRunID(ctx context.Context) context.Context {
	if RunIDFromContext(ctx) != "" {
		return ctx
	}
	return WithRunID(ctx, NewRunID())
}

// WithComponent tags every record of logger with the emitting package
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String(KeyComponent, component))
}

// WithError binds err to logger. An AppError also contributes its type and
// context (family_id, column, path...).
func WithError(logger *slog.Logger, err error) *slog.Logger {
	if err == nil {
		return logger
	}
	args := []any{slog.String(KeyError, err.Error())}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		args = append(args, appErr.LogAttrs()...)
	}
	return logger.With(args...)
}
