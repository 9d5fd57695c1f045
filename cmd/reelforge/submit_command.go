package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"reelforge/internal/api"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var prompt string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "submit [spec.json]",
		Short: "Submit a generation job from a spec file or a prompt",
		Long: `Submit a generation job to the daemon.

Pass a workflow spec as a JSON file ("-" reads from stdin), or describe the
video with --prompt and let the planner draft the spec.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildSubmitRequest(args, prompt, cmd.InOrStdin())
			if err != nil {
				return err
			}

			resp, err := ctx.client().Submit(cmd.Context(), req)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s queued\n", resp.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Natural-language brief for the planner")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}

func buildSubmitRequest(args []string, prompt string, stdin io.Reader) (api.SubmitRequest, error) {
	prompt = strings.TrimSpace(prompt)

	if len(args) == 0 {
		if prompt == "" {
			return api.SubmitRequest{}, errors.New("provide a spec file or --prompt")
		}
		return api.SubmitRequest{Prompt: prompt}, nil
	}
	if prompt != "" {
		return api.SubmitRequest{}, errors.New("a spec file and --prompt are mutually exclusive")
	}

	var raw []byte
	var err error
	if args[0] == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return api.SubmitRequest{}, fmt.Errorf("read spec: %w", err)
	}

	var spec map[string]any
	if err := json.Unmarshal(raw, &spec); err != nil {
		return api.SubmitRequest{}, fmt.Errorf("parse spec: %w", err)
	}
	return api.SubmitRequest{Spec: spec}, nil
}
