package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/riskcanvas/analysis-client/internal/orchestrator"
)

type RunOptions struct {
	GlobalOptions

	Attachments []string
	Mode        string
	Params      string
}

func DefaultRunOptions() *RunOptions {
	return &RunOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdRun() *cobra.Command {
	o := DefaultRunOptions()
	cmd := &cobra.Command{
		Use:     "run [INPUT]",
		Short:   "Start a risk analysis job and watch it to completion",
		Example: `run "draft a lease risk review" -a lease.pdf -m multi`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *RunOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringSliceVarP(&o.Attachments, "attachment", "a", o.Attachments, "Attachment reference to analyze, repeatable")
	fs.StringVarP(&o.Mode, "mode", "m", o.Mode, "Analysis mode chosen when pre-organization completes; prompted for when empty")
	fs.StringVarP(&o.Params, "params", "p", o.Params, "Extra JSON parameters sent with the mode choice")
}

func (o *RunOptions) Validate(args []string) error {
	if len(args) == 0 && len(o.Attachments) == 0 {
		return fmt.Errorf("provide an input text, an attachment, or both")
	}
	if o.Params != "" && !json.Valid([]byte(o.Params)) {
		return fmt.Errorf("--params must be valid JSON")
	}
	return nil
}

func (o *RunOptions) Run(ctx context.Context, args []string) error {
	cfg, err := o.Config()
	if err != nil {
		return err
	}

	orch, err := o.Orchestrator(cfg)
	if err != nil {
		return err
	}

	tasks := orchestrator.NewRegistry()
	defer tasks.DisposeAll()

	input := ""
	if len(args) > 0 {
		input = args[0]
	}

	jobID, err := orch.Create(ctx, input, o.Attachments)
	if err != nil {
		return err
	}
	tasks.Add(orch)
	if err := persistJobID(cfg.DataDir, jobID); err != nil {
		return fmt.Errorf("persisting job reference: %w", err)
	}
	fmt.Printf("Job %s started\n", jobID)

	if err := watchJob(ctx, tasks.Focused(), o.Mode, jsonParams(o.Params)); err != nil {
		return err
	}
	discardJobID(cfg.DataDir)
	return nil
}

func jsonParams(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}
