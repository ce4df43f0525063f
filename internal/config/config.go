// Package config loads session settings from the environment and an optional
// .env file. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// PlaceholderEndpoint is the value shipped in the sample .env file.
	PlaceholderEndpoint = "your_project_endpoint"
	// MissingEndpointMessage is printed when ErrMissingEndpoint stops startup.
	MissingEndpointMessage = "ERROR: Please set PROJECT_ENDPOINT in the .env file.\n" +
		"       Copy it from the Foundry portal > Project > Overview page."
)

// Backend names accepted by AGENT_BACKEND.
const (
	BackendAssistants = "assistants"
	BackendMessages   = "messages"
)

var (
	// ErrMissingEndpoint means PROJECT_ENDPOINT is unset or still the placeholder.
	ErrMissingEndpoint = errors.New("PROJECT_ENDPOINT is not set")
	// ErrUnknownBackend means AGENT_BACKEND names no known backend.
	ErrUnknownBackend = errors.New("unknown AGENT_BACKEND")
)

// Config is the full set of session settings.
type Config struct {
	Endpoint      string        `mapstructure:"project_endpoint"`
	APIKey        string        `mapstructure:"project_api_key"`
	Model         string        `mapstructure:"model_deployment_name"`
	Backend       string        `mapstructure:"agent_backend"`
	DataFile      string        `mapstructure:"data_file"`
	PolicyFile    string        `mapstructure:"policy_file"`
	OutputDir     string        `mapstructure:"output_dir"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	MaxToolRounds int           `mapstructure:"max_tool_rounds"`
	TokenBudget   int           `mapstructure:"agt_token_budget"`
	LogLevel      string        `mapstructure:"log_level"`
	ObserveJSON   bool          `mapstructure:"agt_observe_json"`
	EventsDir     string        `mapstructure:"agt_events_dir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("project_endpoint", "")
	v.SetDefault("project_api_key", "")
	v.SetDefault("model_deployment_name", "gpt-4.1")
	v.SetDefault("agent_backend", BackendAssistants)
	v.SetDefault("data_file", "data.txt")
	v.SetDefault("policy_file", "expense_policy.txt")
	v.SetDefault("output_dir", ".")
	v.SetDefault("poll_interval", "500ms")
	v.SetDefault("max_tool_rounds", 10)
	v.SetDefault("agt_token_budget", 100000)
	v.SetDefault("log_level", "info")
	v.SetDefault("agt_observe_json", false)
	v.SetDefault("agt_events_dir", ".agent")
}

// Load reads <dir>/.env when present, overlays the environment and resolves
// relative paths against dir. An empty dir means the working directory.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = "."
	}
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	envFile := filepath.Join(dir, ".env")
	if _, err := os.Stat(envFile); err == nil {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))

	for _, p := range []*string{&cfg.DataFile, &cfg.PolicyFile, &cfg.OutputDir, &cfg.EventsDir} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	return cfg, nil
}

// Validate checks the settings that must hold before any resource is touched.
func (c *Config) Validate() error {
	if c.Endpoint == "" || c.Endpoint == PlaceholderEndpoint {
		return ErrMissingEndpoint
	}
	switch c.Backend {
	case BackendAssistants, BackendMessages:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	return nil
}
