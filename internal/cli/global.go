package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/riskcanvas/analysis-client/internal/client"
	"github.com/riskcanvas/analysis-client/internal/config"
	"github.com/riskcanvas/analysis-client/internal/orchestrator"
	"github.com/riskcanvas/analysis-client/internal/transport"
)

type GlobalOptions struct {
	ConfigFile string
	ServerUrl  string
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		ConfigFile: config.DefaultConfigFile,
	}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ConfigFile, "config", "c", o.ConfigFile, "Path to the client configuration file")
	fs.StringVarP(&o.ServerUrl, "server-url", "u", o.ServerUrl, "Address of the analysis server, overrides the config file")
}

func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	return nil
}

// Config loads the client configuration from file, environment and flags, in
// increasing precedence.
func (o *GlobalOptions) Config() (*config.Config, error) {
	cfg := config.NewDefault()
	if err := cfg.ParseConfigFile(o.ConfigFile); err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	if o.ServerUrl != "" {
		cfg.AnalysisService.Service.Server = o.ServerUrl
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.CreateDataDir(); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return cfg, nil
}

// Orchestrator wires a task orchestrator against the configured server.
func (o *GlobalOptions) Orchestrator(cfg *config.Config) (*orchestrator.Orchestrator, error) {
	analysisClient, err := client.NewAnalysis(&cfg.AnalysisService.Config)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	dialer := transport.NewDialer(&cfg.AnalysisService.Config)
	return orchestrator.New(
		analysisClient,
		dialer,
		orchestrator.WithHeartbeatInterval(cfg.HeartbeatInterval.Duration),
	), nil
}
