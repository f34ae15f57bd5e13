// Package trace tags each request with an id and logs one line when it ends.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	applog "finx/internal/log"
)

type ctxKey struct{}

// HeaderRequestID echoes the id back to the client.
const HeaderRequestID = "X-Request-ID"

// Middleware counts requests and writes an access log entry for each.
type Middleware struct {
	extractIP func(*http.Request) string
	logger    *slog.Logger
	requests  atomic.Int64
}

// NewMiddleware builds a tracer. extractIP may be nil.
func NewMiddleware(extractIP func(*http.Request) string, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{extractIP: extractIP, logger: logger.With(applog.FieldComponent, applog.ComponentTrace)}
}

// Middleware wraps next. Client errors log at warn, server errors at error.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.requests.Add(1)

		id := GenerateRequestID()
		ctx := context.WithValue(r.Context(), ctxKey{}, id)
		w.Header().Set(HeaderRequestID, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		attrs := []any{
			applog.FieldRequestID, id,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatus, rec.status,
			applog.FieldDuration, time.Since(start).Milliseconds(),
		}
		if r.URL.RawQuery != "" {
			attrs = append(attrs, applog.FieldQuery, r.URL.RawQuery)
		}
		if m.extractIP != nil {
			attrs = append(attrs, applog.FieldClientIP, m.extractIP(r))
		}
		if ua := r.Header.Get("User-Agent"); ua != "" {
			attrs = append(attrs, applog.FieldUserAgent, ua)
		}
		m.logger.Log(ctx, levelFor(rec.status), "request", attrs...)
	})
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Requests returns the number of requests seen.
func (m *Middleware) Requests() int64 {
	return m.requests.Load()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// GenerateRequestID returns "req_" followed by 16 hex characters.
func GenerateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req_%016x", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(b)
}

// GetRequestID returns the id stored by the middleware, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
