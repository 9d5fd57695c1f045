package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"reelforge/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().Status(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, resp)
			}
			renderDaemonStatus(cmd.OutOrStdout(), resp)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}

func renderDaemonStatus(out io.Writer, status api.StatusResponse) {
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	if status.Running {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "Not running", colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Lock File", statusInfo, status.LockFilePath, colorize))
	fmt.Fprintln(out, renderStatusLine("Assets", statusInfo, fmt.Sprintf("%d stored", status.Assets), colorize))

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Queue", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Workers", statusInfo, fmt.Sprintf("%d max concurrent", status.Queue.MaxConcurrent), colorize))
	fmt.Fprintln(out, renderStatusLine("Queued", statusInfo, fmt.Sprintf("%d", status.Queue.Queued), colorize))
	fmt.Fprintln(out, renderStatusLine("Running", statusInfo, fmt.Sprintf("%d", status.Queue.Running), colorize))
	fmt.Fprintln(out, renderStatusLine("Completed", statusOK, fmt.Sprintf("%d", status.Queue.Completed), colorize))
	failedKind := statusInfo
	if status.Queue.Failed > 0 {
		failedKind = statusError
	}
	fmt.Fprintln(out, renderStatusLine("Failed", failedKind, fmt.Sprintf("%d", status.Queue.Failed), colorize))
	fmt.Fprintln(out, renderStatusLine("Cancelled", statusInfo, fmt.Sprintf("%d", status.Queue.Cancelled), colorize))

	if len(status.Dependencies) > 0 {
		fmt.Fprintln(out)
		for _, line := range renderSectionHeader("Dependencies", colorize) {
			fmt.Fprintln(out, line)
		}
		for _, dep := range status.Dependencies {
			kind := statusOK
			message := dep.Command
			if !dep.Available {
				kind = statusError
				if dep.Optional {
					kind = statusWarn
				}
				message = dep.Detail
			}
			fmt.Fprintln(out, renderStatusLine(dep.Name, kind, message, colorize))
		}
	}
}
