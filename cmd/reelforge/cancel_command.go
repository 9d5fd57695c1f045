package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCancelCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Request cancellation of a queued or running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().Cancel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			if resp.Cancelled {
				fmt.Fprintf(out, "Job %s cancellation requested (status: %s)\n", shortID(resp.ID), resp.Status)
			} else {
				fmt.Fprintf(out, "Job %s is already %s; nothing to cancel\n", shortID(resp.ID), resp.Status)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}
