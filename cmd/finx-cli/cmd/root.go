// Package cmd provides the finx-cli commands.
package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"finx/internal/cli"
	"finx/internal/config"
	"finx/internal/ledger"
	"finx/internal/present"
)

// app carries what PersistentPreRunE sets up for every subcommand.
type app struct {
	envFile string
	debug   bool

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand builds the finx-cli command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "finx-cli",
		Short: "Track income and expenses from the terminal",
		Long: `finx-cli records income and expense transactions in the same
ledger the finx web server uses.

Example:
  finx-cli add expense 12.50 --category Food --desc Lunch
  finx-cli list --filter expense
  finx-cli summary`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if a.envFile != "" {
				err = cli.LoadEnvFile(a.envFile)
			} else {
				err = cli.LoadEnvFile()
			}
			if err != nil {
				return err
			}
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			level := cfg.LogLevel
			if a.debug {
				level = "debug"
			}
			a.cfg = cfg
			a.logger = cli.SetupLogger(cmd.ErrOrStderr(), level)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "environment file (default is .env)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newAddCommand(a),
		newListCommand(a),
		newRemoveCommand(a),
		newClearCommand(a),
		newSummaryCommand(a),
		newChartCommand(a),
		newWatchCommand(a),
	)
	return root
}

// open loads the ledger from the configured backend. The returned func
// releases the backend.
func (a *app) open(ctx context.Context, opts ...ledger.Option) (*ledger.Store, func(), error) {
	res, err := cli.InitBackend(ctx, a.logger, a.cfg)
	if err != nil {
		return nil, nil, err
	}
	store := cli.OpenLedger(ctx, a.logger, a.cfg, res, opts...)
	return store, func() {
		if err := res.Cleanup(); err != nil {
			a.logger.Warn("Backend cleanup failed", "error", err)
		}
	}, nil
}

// openWithTable opens the ledger with a terminal table redrawn on every
// change.
func (a *app) openWithTable(cmd *cobra.Command) (*ledger.Store, func(), error) {
	return a.open(cmd.Context(), ledger.WithRenderer(present.NewTerminal(cmd.OutOrStdout())))
}
