package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"sigs.k8s.io/yaml"

	"github.com/riskcanvas/analysis-client/internal/client"
	"github.com/riskcanvas/analysis-client/internal/util"
)

const (
	// DefaultConfigDir is the default directory for the client's configuration
	DefaultConfigDir = "~/.risk-analysis"
	// DefaultConfigFile is the default path to the client's configuration file
	DefaultConfigFile = DefaultConfigDir + "/config.yaml"
	// DefaultDataDir is where the client persists the active job reference
	DefaultDataDir = "~/.risk-analysis/data"
	// DefaultServiceEndpoint is the default address of the analysis server
	DefaultServiceEndpoint = "https://localhost:8443"
	// DefaultHeartbeatInterval keeps a paused job warm on the server
	DefaultHeartbeatInterval = time.Duration(30 * time.Second)
)

type Config struct {
	// ConfigDir is the directory where the client's configuration is stored
	ConfigDir string `json:"config-dir"`
	// DataDir is the directory where the client's data is stored
	DataDir string `json:"data-dir"`

	// AnalysisService is the client configuration for connecting to the analysis server
	AnalysisService AnalysisService `json:"analysis-service,omitempty"`

	// HeartbeatInterval is the interval between two liveness reports
	HeartbeatInterval util.Duration `json:"heartbeat-interval,omitempty"`

	// LogLevel is the level of logging: "debug", "info", "warn", "error";
	// anything else is treated as "info"
	LogLevel string `json:"log-level,omitempty"`
}

type AnalysisService struct {
	client.Config
}

func (s *AnalysisService) Equal(s2 *AnalysisService) bool {
	if s == s2 {
		return true
	}
	return s.Config.Equal(&s2.Config)
}

// envOverrides are applied on top of the config file so containerized runs
// can skip the file entirely.
type envOverrides struct {
	Server            string `envconfig:"RISK_ANALYSIS_SERVER" default:""`
	Channel           string `envconfig:"RISK_ANALYSIS_CHANNEL" default:""`
	DataDir           string `envconfig:"RISK_ANALYSIS_DATA_DIR" default:""`
	LogLevel          string `envconfig:"RISK_ANALYSIS_LOG_LEVEL" default:""`
	HeartbeatInterval string `envconfig:"RISK_ANALYSIS_HEARTBEAT_INTERVAL" default:""`
}

func NewDefault() *Config {
	return &Config{
		ConfigDir:         expandHome(DefaultConfigDir),
		DataDir:           expandHome(DefaultDataDir),
		AnalysisService:   AnalysisService{Config: *client.NewDefault()},
		HeartbeatInterval: util.Duration{Duration: DefaultHeartbeatInterval},
		LogLevel:          "info",
	}
}

// ParseConfigFile reads the config file and unmarshals it into the Config
// struct, then applies environment overrides. A missing file is not an error
// when the environment provides the server address.
func (cfg *Config) ParseConfigFile(cfgFile string) error {
	contents, err := os.ReadFile(cfgFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(contents, cfg); err != nil {
			return fmt.Errorf("failed to unmarshal config file: %w", err)
		}
		cfg.AnalysisService.Config.SetBaseDir(filepath.Dir(cfgFile))
	}
	return cfg.applyEnv()
}

func (cfg *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return err
	}
	if env.Server != "" {
		cfg.AnalysisService.Service.Server = env.Server
	}
	if env.Channel != "" {
		cfg.AnalysisService.Service.Channel = env.Channel
	}
	if env.DataDir != "" {
		cfg.DataDir = env.DataDir
	}
	if env.LogLevel != "" {
		cfg.LogLevel = env.LogLevel
	}
	if env.HeartbeatInterval != "" {
		d, err := time.ParseDuration(env.HeartbeatInterval)
		if err != nil {
			return fmt.Errorf("invalid RISK_ANALYSIS_HEARTBEAT_INTERVAL: %w", err)
		}
		cfg.HeartbeatInterval = util.Duration{Duration: d}
	}
	return nil
}

// Validate checks that the required fields are set.
func (cfg *Config) Validate() error {
	if cfg.DataDir == "" {
		return fmt.Errorf("data-dir is required")
	}
	if cfg.HeartbeatInterval.Duration <= 0 {
		return fmt.Errorf("heartbeat-interval must be positive")
	}
	return cfg.AnalysisService.Validate()
}

// CreateDataDir makes sure the data directory exists.
func (cfg *Config) CreateDataDir() error {
	return os.MkdirAll(cfg.DataDir, 0700)
}

func (cfg *Config) String() string {
	contents, err := json.Marshal(cfg)
	if err != nil {
		return "<error>"
	}
	return string(contents)
}

func expandHome(p string) string {
	if len(p) == 0 || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}
