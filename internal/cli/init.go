// Package cli holds the bootstrap steps shared by cmd/finx and cmd/finx-cli.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"finx/internal/backend"
	"finx/internal/config"
	"finx/internal/ledger"
	applog "finx/internal/log"
	"finx/internal/storage"
)

// SetupLogger initializes structured text logging on w at the given level
// and sets it as the default logger.
func SetupLogger(w io.Writer, level string) *slog.Logger {
	l := applog.NewText(w, applog.ParseLevel(level), applog.ComponentApp)
	applog.SetDefault(l)
	return l.Logger
}

// LoadEnvFile loads environment files for local development. Without
// arguments a missing ./.env is ignored; named files must exist.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitBackend opens the configured slot and, when enabled, the change
// notifier.
func InitBackend(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}
	return res, nil
}

// OpenLedger loads the ledger stored under cfg.StorageKey in res.
func OpenLedger(ctx context.Context, logger *slog.Logger, cfg *config.Config, res *backend.BackendResult, opts ...ledger.Option) *ledger.Store {
	adapter := storage.NewAdapter(res.Slot, cfg.StorageKey, logger)
	opts = append(opts, ledger.WithLogger(logger))
	if res.Notifier != nil {
		opts = append(opts, ledger.WithNotifier(res.Notifier))
	}
	return ledger.New(ctx, adapter, opts...)
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
