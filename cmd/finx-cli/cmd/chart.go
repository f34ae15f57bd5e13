package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"finx/internal/chart"
	"finx/internal/ledger"
)

func newChartCommand(a *app) *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Draw per-category totals as bars",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projector := chart.NewProjector(chart.NewTextWidget(cmd.OutOrStdout(), width))
			store, done, err := a.open(cmd.Context(), ledger.WithRenderer(projector))
			if err != nil {
				return err
			}
			defer done()

			if store.Len() == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transactions yet.")
				return nil
			}
			store.Refresh(cmd.Context())
			return nil
		},
	}
	cmd.Flags().IntVarP(&width, "width", "w", 30, "width of the longest bar")
	return cmd
}
