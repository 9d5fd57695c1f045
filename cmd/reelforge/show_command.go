package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"reelforge/internal/api"
	"reelforge/internal/jobs"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show the details of one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := ctx.client().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, job)
			}
			renderJobDetail(cmd.OutOrStdout(), job)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}

func renderJobDetail(out io.Writer, job api.JobView) {
	colorize := shouldColorize(out)

	title := job.Title
	if title == "" {
		title = "(untitled)"
	}
	for _, line := range renderSectionHeader(fmt.Sprintf("Job %s", shortID(job.ID)), colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Title", statusInfo, title, colorize))
	fmt.Fprintln(out, renderStatusLine("Status", statusForJob(job.Status), strings.ToUpper(job.Status), colorize))
	fmt.Fprintln(out, renderStatusLine("Progress", statusInfo, formatProgress(job.Progress), colorize))
	if job.StartedAt != nil && job.CompletedAt != nil {
		fmt.Fprintln(out, renderStatusLine("Duration", statusInfo, formatDuration(job.CompletedAt.Sub(*job.StartedAt)), colorize))
	}
	if job.Error != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, job.Error, colorize))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderStageTable(job.Stages))

	if job.Result != nil {
		fmt.Fprintln(out)
		renderResult(out, job.Result, colorize)
	}
}

func renderStageTable(stages map[string]api.StageView) string {
	headers := []string{"STAGE", "PHASE", "PERCENT"}
	rows := make([][]string, 0, len(stages))
	for _, stage := range jobs.Stages() {
		state, ok := stages[string(stage)]
		if !ok {
			continue
		}
		rows = append(rows, []string{
			stageLabel(string(stage)),
			state.Phase,
			fmt.Sprintf("%d%%", state.Percent),
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignRight})
}

func renderResult(out io.Writer, result *api.ResultView, colorize bool) {
	for _, line := range renderSectionHeader("Artifacts", colorize) {
		fmt.Fprintln(out, line)
	}
	if len(result.Keyframes) > 0 {
		fmt.Fprintln(out, renderStatusLine("Keyframes", statusOK, fmt.Sprintf("%d", len(result.Keyframes)), colorize))
	}
	if len(result.Clips) > 0 {
		fmt.Fprintln(out, renderStatusLine("Clips", statusOK, fmt.Sprintf("%d", len(result.Clips)), colorize))
	}
	if result.Voiceover != "" {
		fmt.Fprintln(out, renderStatusLine("Voiceover", statusOK, string(result.Voiceover), colorize))
	}
	if result.Music != "" {
		fmt.Fprintln(out, renderStatusLine("Music", statusOK, string(result.Music), colorize))
	}
	if result.Master != "" {
		fmt.Fprintln(out, renderStatusLine("Master", statusOK, string(result.Master), colorize))
	}

	names := make([]string, 0, len(result.Exports))
	for name := range result.Exports {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintln(out, renderStatusLine("Export "+name, statusOK, string(result.Exports[name]), colorize))
	}
}

func statusForJob(status string) statusKind {
	switch status {
	case string(jobs.StatusCompleted):
		return statusOK
	case string(jobs.StatusFailed):
		return statusError
	case string(jobs.StatusCancelled):
		return statusWarn
	default:
		return statusInfo
	}
}
