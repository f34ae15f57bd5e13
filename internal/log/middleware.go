package log

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

type ContextKey string

const LoggerContextKey ContextKey = "logger"

// Middleware stores logger in every request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), LoggerContextKey, logger)))
		})
	}
}

// FromContext returns the request logger, or one over slog.Default tagged
// "unknown".
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), base: slog.Default(), component: "unknown"}
}

// RequestIDMiddleware adds the id returned by extractRequestID to the
// context logger. It must run inside Middleware and after the id is set.
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := FromContext(r.Context()).With(FieldRequestID, extractRequestID(r))
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), LoggerContextKey, logger)))
		})
	}
}

// StructuredLogger writes the ledger's recurring records with consistent
// fields.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogRejected logs input refused by the ledger.
func (sl *StructuredLogger) LogRejected(ctx context.Context, op string, err error) {
	fields := NewFields().
		WithError(err).
		WithOperation(op).
		WithErrorType(ErrorTypeValidation)
	sl.logger.WarnContext(ctx, "Ledger input rejected", fields.ToSlice()...)
}

// LogTransaction logs a successful change to one record.
func (sl *StructuredLogger) LogTransaction(ctx context.Context, op, id, txType string, amountCents int64, category string) {
	fields := NewFields().
		WithOperation(op).
		WithTransaction(id, txType, amountCents, category)
	sl.logger.InfoContext(ctx, "Ledger updated", fields.ToSlice()...)
}

// LogFailure logs err at error level, classifying it by errType.
func (sl *StructuredLogger) LogFailure(ctx context.Context, msg, op, errType string, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	fields := NewFields().
		WithError(err).
		WithOperation(op).
		WithErrorType(errType)
	sl.logger.ErrorContext(ctx, msg, fields.ToSlice()...)
}
