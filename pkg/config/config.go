// Package config loads the planner configuration from a YAML file with
// ${ENV_VAR} expansion, then applies environment overrides on top.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/sethvargo/go-envconfig"
)

// Config is the YAML structure of the planner config file.
type Config struct {
	// Provider: "openai" | "anthropic" | "bedrock" (or any
	// openai-compatible endpoint via BaseURL).
	Provider string `yaml:"provider" env:"PLANNER_PROVIDER, overwrite"`

	// Model ID to use (e.g. "gpt-4o", "claude-sonnet-4-5").
	Model string `yaml:"model" env:"PLANNER_MODEL, overwrite"`

	// BaseURL overrides the default provider endpoint. Only used by the
	// HTTP providers.
	BaseURL string `yaml:"base_url" env:"PLANNER_BASE_URL, overwrite"`

	// APIKey is the literal key, or "${ENV_VAR}" to pull it from the
	// environment at load time.
	APIKey string `yaml:"api_key" env:"PLANNER_API_KEY, overwrite"`

	// Region selects the Amazon Bedrock region (e.g. "us-east-1"). When
	// empty the AWS SDK default chain applies.
	Region string `yaml:"region"`

	// Profile names the AWS profile used for Bedrock authentication.
	Profile string `yaml:"profile"`

	// MaxTokens caps each response (0 = provider default).
	MaxTokens int `yaml:"max_tokens" env:"PLANNER_MAX_TOKENS, overwrite"`

	// Temperature controls randomness. Defaults to 0.7.
	Temperature *float64 `yaml:"temperature"`

	// Planner controls plan-mode behavior.
	Planner PlannerConfig `yaml:"planner"`

	// Tools configures the worker tool registry.
	Tools ToolsConfig `yaml:"tools"`
}

// PlannerConfig is the planner section of the config file.
type PlannerConfig struct {
	// Mode: "disabled" | "dynamic" | "enforced". Defaults to "dynamic".
	Mode string `yaml:"mode" env:"PLANNER_MODE, overwrite"`

	// MaxIters caps planner iterations per user input. Defaults to 100.
	MaxIters int `yaml:"max_iters"`

	// WorkerMaxIters caps each worker run. Defaults to 20.
	WorkerMaxIters int `yaml:"worker_max_iters"`

	// Workspace is the directory task directories are created under.
	// Defaults to the process working directory.
	Workspace string `yaml:"workspace" env:"PLANNER_WORKSPACE, overwrite"`

	// StateDir is where run directories and snapshots are written.
	// Defaults to "agent-states".
	StateDir string `yaml:"state_dir" env:"PLANNER_STATE_DIR, overwrite"`
}

// ToolsConfig configures the worker tool registry.
type ToolsConfig struct {
	// ResponseBudget caps tool result size in bytes; longer results are
	// truncated. Defaults to 40960.
	ResponseBudget int `yaml:"response_budget"`

	// Servers lists external tool server executables to start.
	Servers []ServerConfig `yaml:"servers"`
}

// ServerConfig describes one external tool server process.
type ServerConfig struct {
	// Path points at the server executable.
	Path string `yaml:"path"`
	// Args are extra CLI arguments passed to the server process.
	Args []string `yaml:"args"`
}

// Load reads and parses a YAML config file, expanding ${ENV_VAR} references
// in the raw text and applying PLANNER_* environment overrides on top. An
// empty path starts from an empty config, so the planner can run on
// environment variables alone.
func Load(ctx context.Context, path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: environment overrides: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Temperature == nil {
		t := 0.7
		c.Temperature = &t
	}
	if c.Planner.Mode == "" {
		c.Planner.Mode = "dynamic"
	}
	if c.Planner.MaxIters <= 0 {
		c.Planner.MaxIters = 100
	}
	if c.Planner.WorkerMaxIters <= 0 {
		c.Planner.WorkerMaxIters = 20
	}
	if c.Planner.StateDir == "" {
		c.Planner.StateDir = "agent-states"
	}
	if c.Tools.ResponseBudget <= 0 {
		c.Tools.ResponseBudget = 40960
	}
}

func (c *Config) validate() error {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		return fmt.Errorf("config: provider is required")
	}
	if c.Model == "" {
		return fmt.Errorf("config: model is required")
	}
	switch c.Planner.Mode {
	case "disabled", "dynamic", "enforced":
	default:
		return fmt.Errorf("config: unknown planner mode %q", c.Planner.Mode)
	}
	return nil
}
