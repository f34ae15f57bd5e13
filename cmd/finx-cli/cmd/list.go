package cmd

import (
	"github.com/spf13/cobra"

	"finx/internal/core"
)

func newListCommand(a *app) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the ledger, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := core.ParseFilterMode(filter)
			if err != nil {
				return err
			}
			store, done, err := a.openWithTable(cmd)
			if err != nil {
				return err
			}
			defer done()
			return store.SetFilter(cmd.Context(), mode)
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "all", "all, income or expense")
	return cmd
}
