package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"finx/internal/amqp"
)

var errNotificationsDisabled = errors.New("AMQP_URL is not set, change notifications are disabled")

func newWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print ledger change notifications as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cfg.NotificationsEnabled() {
				return errNotificationsDisabled
			}
			client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue, a.logger)
			if err != nil {
				return err
			}
			defer client.Close()

			err = client.ConsumeChanges(cmd.Context(), printChange(cmd.OutOrStdout()))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func printChange(out io.Writer) func(*amqp.ChangeMessage) error {
	return func(m *amqp.ChangeMessage) error {
		_, err := fmt.Fprintln(out, formatChange(m))
		return err
	}
}

func formatChange(m *amqp.ChangeMessage) string {
	line := fmt.Sprintf("%s  rev %d  %s", m.At.Format("2006-01-02 15:04:05"), m.Revision, m.Op)
	if m.ID != "" {
		line += " " + m.ID
	}
	if m.Count > 1 {
		line += fmt.Sprintf(" (%d)", m.Count)
	}
	return line
}
