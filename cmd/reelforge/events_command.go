package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelforge/internal/api"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "events <job-id>",
		Short: "Show the retained progress events of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().Events(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			if len(resp.Events) == 0 {
				fmt.Fprintln(out, "No events recorded")
				return nil
			}
			fmt.Fprintln(out, renderEventTable(resp.Events))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}

func renderEventTable(events []api.EventView) string {
	headers := []string{"TIME", "STAGE", "PHASE", "PERCENT"}
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{
			ev.At.Local().Format("15:04:05.000"),
			stageLabel(ev.Stage),
			ev.Phase,
			fmt.Sprintf("%d%%", ev.Percent),
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight})
}
