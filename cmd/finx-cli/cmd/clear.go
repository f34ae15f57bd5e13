package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"finx/internal/ledger"
)

func newClearCommand(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every transaction after confirmation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, done, err := a.openWithTable(cmd)
			if err != nil {
				return err
			}
			defer done()

			var c ledger.Confirmer = ledger.Always(true)
			if !yes {
				c = promptConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr())
			}
			n := store.Len()
			cleared, err := store.Clear(cmd.Context(), c)
			if err != nil {
				return err
			}
			switch {
			case n == 0:
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to clear")
			case cleared:
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d transactions\n", n)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// promptConfirmer asks on out and accepts y or yes from in.
func promptConfirmer(in io.Reader, out io.Writer) ledger.ConfirmFunc {
	return func(_ context.Context, prompt string) bool {
		fmt.Fprintf(out, "%s [y/N] ", prompt)
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		default:
			return false
		}
	}
}
