package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newSummaryCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print balance, income and expense totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, done, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			sum := store.View().Summary
			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(map[string]any{
					"count":         store.Len(),
					"income_cents":  sum.Income.Cents,
					"expense_cents": sum.Expense.Cents,
					"balance_cents": sum.Balance.Cents,
				})
			}
			fmt.Fprintf(out, "Balance  %s\nIncome   %s\nExpense  %s\n", sum.Balance, sum.Income, sum.Expense)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print totals as JSON")
	return cmd
}
