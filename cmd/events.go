package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEventsCmd(app *app) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent pool events, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			events := app.scheduler.RecentEvents(count)
			if len(events) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No events recorded.")
				return nil
			}

			for _, ev := range events {
				name := ev.AccountName
				if name == "" {
					name = "-"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "[%s] %-8s %-20s %s: %s\n",
					ev.Time.Format("2006-01-02 15:04:05"), ev.Severity, ev.Kind, name, ev.Message)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 20, "number of events to show")

	return cmd
}
