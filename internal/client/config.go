package client

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sigs.k8s.io/yaml"
)

// Config holds the information needed to reach the risk analysis API server.
type Config struct {
	Service Service `json:"service"`

	// baseDir is used to resolve relative paths.
	// If baseDir is empty, the current working directory is used.
	baseDir string `json:"-"`
}

// Service contains the addresses of the analysis API server.
type Service struct {
	// Server is the URL of the analysis API server (the part before /api/v1/...).
	Server string `json:"server"`
	// Channel is the websocket base URL for per-job live channels. Derived
	// from Server when empty.
	Channel string `json:"channel,omitempty"`
}

func (c *Config) Equal(c2 *Config) bool {
	if c == c2 {
		return true
	}
	if c == nil || c2 == nil {
		return false
	}
	return c.Service.Equal(&c2.Service)
}

func (s *Service) Equal(s2 *Service) bool {
	if s == s2 {
		return true
	}
	if s == nil || s2 == nil {
		return false
	}
	return s.Server == s2.Server && s.Channel == s2.Channel
}

func (c *Config) DeepCopy() *Config {
	if c == nil {
		return nil
	}
	return &Config{
		Service: *c.Service.DeepCopy(),
		baseDir: c.baseDir,
	}
}

func (s *Service) DeepCopy() *Service {
	if s == nil {
		return nil
	}
	s2 := *s
	return &s2
}

func (c *Config) SetBaseDir(baseDir string) {
	c.baseDir = baseDir
}

func NewDefault() *Config {
	return &Config{}
}

// ChannelURL returns the websocket address for one job's live channel.
func (c *Config) ChannelURL(jobID string) (string, error) {
	base := c.Service.Channel
	if base == "" {
		u, err := url.Parse(c.Service.Server)
		if err != nil {
			return "", fmt.Errorf("parsing server url: %w", err)
		}
		switch u.Scheme {
		case "https":
			u.Scheme = "wss"
		default:
			u.Scheme = "ws"
		}
		base = u.String()
	}
	return fmt.Sprintf("%s/api/v1/jobs/%s/channel", strings.TrimRight(base, "/"), jobID), nil
}

// NewHTTPClientFromConfig returns a new HTTP Client from the given config.
func NewHTTPClientFromConfig(config *Config) (*http.Client, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     false,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
	return httpClient, nil
}

func ParseConfigFile(filename string) (*Config, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	config := NewDefault()
	if err := yaml.Unmarshal(contents, config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	config.SetBaseDir(filepath.Dir(filename))
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// WriteConfig writes a client config file using the given parameters.
func WriteConfig(filename string, server string) error {
	config := NewDefault()
	config.Service = Service{
		Server: server,
	}

	return config.Persist(filename)
}

func (c *Config) Persist(filename string) error {
	contents, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	directory := filename[:strings.LastIndex(filename, "/")]
	if err := os.MkdirAll(directory, 0700); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.WriteFile(filename, contents, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if len(c.Service.Server) == 0 {
		return fmt.Errorf("invalid configuration: no server found")
	}
	u, err := url.Parse(c.Service.Server)
	if err != nil {
		return fmt.Errorf("invalid configuration: server %q is not a valid url: %w", c.Service.Server, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid configuration: server %q must use http or https", c.Service.Server)
	}
	return nil
}
