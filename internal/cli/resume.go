package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/riskcanvas/analysis-client/internal/orchestrator"
)

type ResumeOptions struct {
	GlobalOptions

	Mode   string
	Params string
}

func DefaultResumeOptions() *ResumeOptions {
	return &ResumeOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdResume() *cobra.Command {
	o := DefaultResumeOptions()
	cmd := &cobra.Command{
		Use:     "resume [JOB_ID]",
		Short:   "Reattach to a running job from the server checkpoint",
		Example: "resume            # resumes the last job started on this machine",
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

func (o *ResumeOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.Mode, "mode", "m", o.Mode, "Analysis mode chosen when pre-organization completes; prompted for when empty")
	fs.StringVarP(&o.Params, "params", "p", o.Params, "Extra JSON parameters sent with the mode choice")
}

func (o *ResumeOptions) Run(ctx context.Context, args []string) error {
	cfg, err := o.Config()
	if err != nil {
		return err
	}

	jobID := ""
	if len(args) > 0 {
		jobID = args[0]
	} else {
		jobID, err = loadJobID(cfg.DataDir)
		if err != nil {
			return err
		}
	}
	if jobID == "" {
		return fmt.Errorf("no job to resume; pass a JOB_ID or start one with run")
	}

	orch, err := o.Orchestrator(cfg)
	if err != nil {
		return err
	}

	tasks := orchestrator.NewRegistry()
	defer tasks.DisposeAll()

	if err := orch.Restore(ctx, jobID); err != nil {
		var notFound *orchestrator.NotFoundError
		if errors.As(err, &notFound) {
			// the server forgot the job, so do we
			discardJobID(cfg.DataDir)
		}
		return err
	}
	tasks.Add(orch)
	fmt.Printf("Resumed job %s\n", jobID)

	if err := watchJob(ctx, tasks.Focused(), o.Mode, jsonParams(o.Params)); err != nil {
		return err
	}
	discardJobID(cfg.DataDir)
	return nil
}
