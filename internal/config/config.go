// Package config loads the gateway's YAML configuration file, grounded
// on the teacher's config layer (config parsing is named as an
// out-of-scope external collaborator by spec.md §1; this package supplies
// the ambient stack's YAML-tag-driven implementation of it).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LLMConfig selects and parameterizes the LLM provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // "openai" | "anthropic" | "bedrock"
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Region      string  `yaml:"region"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// AgentConfig tunes the turn loop.
type AgentConfig struct {
	MaxIterations int `yaml:"max_iterations"`
	MemoryWindow  int `yaml:"memory_window"`
}

// SubagentConfig tunes spawned background workers.
type SubagentConfig struct {
	ExecTimeoutSeconds  int  `yaml:"exec_timeout_seconds"`
	RestrictToWorkspace bool `yaml:"restrict_to_workspace"`
}

// HeartbeatConfig tunes the HEARTBEAT.md poll.
type HeartbeatConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// HTTPConfig tunes the control-plane server.
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LoggingConfig tunes the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// Config is the whole gateway configuration tree, loaded once at startup
// and passed down explicitly rather than held as a package-level global.
type Config struct {
	Workspace string          `yaml:"workspace"`
	CronStore string          `yaml:"cron_store"`
	LLM       LLMConfig       `yaml:"llm"`
	Agent     AgentConfig     `yaml:"agent"`
	Subagent  SubagentConfig  `yaml:"subagent"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
}

func defaults() Config {
	return Config{
		Workspace: ".",
		CronStore: "cron.json",
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			TopP:        0.9,
			MaxTokens:   4096,
		},
		Agent: AgentConfig{
			MaxIterations: 10,
			MemoryWindow:  20,
		},
		Subagent: SubagentConfig{
			ExecTimeoutSeconds:  60,
			RestrictToWorkspace: true,
		},
		Heartbeat: HeartbeatConfig{
			Enabled:  true,
			Interval: 30 * time.Minute,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Addr:    ":8080",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads and validates the configuration file at path. A memory_window
// of 0 is explicitly rejected rather than silently disabling consolidation,
// since the source leaves that case undefined.
func Load(path string) (Config, error) {
	cfg := defaults()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %q: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Agent.MemoryWindow == 0 {
		return fmt.Errorf("agent.memory_window must be nonzero")
	}
	if c.Agent.MemoryWindow < 0 {
		return fmt.Errorf("agent.memory_window must be positive")
	}
	if c.Agent.MaxIterations <= 0 {
		return fmt.Errorf("agent.max_iterations must be positive")
	}
	switch c.LLM.Provider {
	case "openai", "anthropic", "bedrock":
	default:
		return fmt.Errorf("llm.provider %q is not one of openai, anthropic, bedrock", c.LLM.Provider)
	}
	return nil
}
