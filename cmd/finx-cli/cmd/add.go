package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"finx/internal/ledger"
)

func newAddCommand(a *app) *cobra.Command {
	var category, desc string
	cmd := &cobra.Command{
		Use:   "add <income|expense> <amount>",
		Short: "Record a transaction dated today",
		Example: `  finx-cli add income 2500 --category Salary
  finx-cli add expense 12,50 --category Food --desc Lunch`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, done, err := a.openWithTable(cmd)
			if err != nil {
				return err
			}
			defer done()

			tx, err := store.Add(cmd.Context(), ledger.AddRequest{
				Kind:        args[0],
				Amount:      args[1],
				Category:    category,
				Description: desc,
			})
			var verr *ledger.ValidationError
			if errors.As(err, &verr) {
				return fmt.Errorf("invalid %s %q: %w", verr.Field, fieldValue(verr.Field, args), verr.Err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s (%s)\n", tx.Kind, tx.Amount, tx.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "category name")
	cmd.Flags().StringVarP(&desc, "desc", "d", "", "description")
	return cmd
}

func fieldValue(field string, args []string) string {
	if field == "type" {
		return args[0]
	}
	return args[1]
}
