package http

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"finx/internal/cache"
	"finx/internal/chart"
	"finx/internal/ledger"
	applog "finx/internal/log"
	"finx/internal/middleware/ratelimit"
	"finx/internal/middleware/security"
	"finx/internal/middleware/trace"
	"finx/internal/present"
	appweb "finx/web"
)

// Deps groups what the server needs from the rest of the application.
type Deps struct {
	Store *ledger.Store
	HTML  *present.HTML
	// Chart is the widget the store's chart projector draws on. When nil,
	// /api/chart projects the current view on demand.
	Chart *chart.LatestWidget
	// Fragments is the cache behind HTML, reported on /readyz and /metrics.
	Fragments          *cache.LRUCache[[]byte]
	Logger             *slog.Logger
	RateLimitPerMinute int
	// CacheCleanupInterval defaults to ten minutes.
	CacheCleanupInterval time.Duration
}

var ErrMissingDeps = errors.New("server requires a store and html renderer")

type Server struct {
	http.Server
	store     *ledger.Store
	html      *present.HTML
	chart     *chart.LatestWidget
	fragments *cache.LRUCache[[]byte]

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	caches   *cache.Manager

	logger  *slog.Logger
	started time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Store == nil || deps.HTML == nil {
		return nil, ErrMissingDeps
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := deps.CacheCleanupInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	s := &Server{
		store:     deps.Store,
		html:      deps.HTML,
		chart:     deps.Chart,
		fragments: deps.Fragments,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		detector:  security.NewDetector(logger),
		caches:    cache.NewManager(logger),
		logger:    logger.With("component", applog.ComponentHTTP),
		started:   time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	if s.fragments != nil {
		s.caches.Register(s.fragments)
		s.caches.StartCleanup(interval)
	}

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/ledger", s.handleLedger)
	mux.HandleFunc("POST /transactions", s.handleAdd)
	mux.HandleFunc("POST /transactions/clear", s.handleClear)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleRemove)
	mux.HandleFunc("POST /transactions/{id}/delete", s.handleRemove)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/chart", s.handleChart)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	appLogger := applog.New(applog.Config{Component: applog.ComponentHTTP, Handler: logger.Handler()})

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(s.detector.ExtractClientIP)(h)
	h = applog.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(h)
	h = s.tracer.Middleware(h)
	h = applog.Middleware(appLogger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	NewHTMXResponse().
		Status(http.StatusTooManyRequests).
		Header("Retry-After", "60").
		TriggerErrorNotification("Too many requests, try again in a minute").
		BodyHTML(`<div class="error">Rate limit exceeded. Please try again later.</div>`).
		Write(w)
}

// Shutdown stops background cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
