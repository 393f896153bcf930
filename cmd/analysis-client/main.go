package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/riskcanvas/analysis-client/internal/cli"
	"github.com/riskcanvas/analysis-client/pkg/log"
)

func main() {
	logLevel := zapcore.InfoLevel
	if lvl := os.Getenv("RISK_ANALYSIS_LOG_LEVEL"); lvl != "" {
		logLevel = log.ParseLevel(lvl)
	}
	logger := log.InitLog(zap.NewAtomicLevelAt(logLevel))
	defer func() { _ = logger.Sync() }()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	command := NewAnalysisClientCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}

func NewAnalysisClientCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analysis-client [flags] [options]",
		Short: "analysis-client drives risk analysis jobs on the analysis service.",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(cli.NewCmdRun())
	cmd.AddCommand(cli.NewCmdResume())
	cmd.AddCommand(cli.NewCmdVersion())

	return cmd
}
