package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finx/internal/cache"
	"finx/internal/chart"
	"finx/internal/cli"
	apphttp "finx/internal/http"
	"finx/internal/ledger"
	"finx/internal/present"
	"finx/web"
)

// fragmentTTL bounds how long a rendered partial may be served. Entries are
// keyed by revision, so expiry only reclaims memory.
const fragmentTTL = 15 * time.Minute

func main() {
	_ = cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(os.Stdout, cfg.LogLevel)

	ctx, cancel := cli.ShutdownContext(context.Background(), logger)
	defer cancel()

	res, err := cli.InitBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	fragments := cache.NewLRUCache[[]byte](cfg.FragmentCacheSize, fragmentTTL)
	html, err := present.NewHTML(web.TemplatesFS, fragments, logger)
	if err != nil {
		logger.Error("Failed to load templates", "error", err)
		os.Exit(1)
	}
	widget := chart.NewLatestWidget()

	store := cli.OpenLedger(ctx, logger, cfg, res,
		ledger.WithRenderer(html),
		ledger.WithRenderer(chart.NewProjector(widget)))
	store.Refresh(ctx)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:              store,
		HTML:               html,
		Chart:              widget,
		Fragments:          fragments,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		os.Exit(1)
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting finx server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"transactions", store.Len(),
			"notifications", cfg.NotificationsEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
