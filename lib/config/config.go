// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the Parley bridge.
//
// Configuration is loaded from a single file specified by:
//   - PARLEY_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
//
// The config file may contain environment-specific sections
// (development, staging, production) that override base values when the
// environment matches. Secret fields support ${VAR} and ${VAR:-default}
// expansion so tokens stay out of the file itself.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for Parley.
type Config struct {
	// Environment identifies the deployment type (development, staging,
	// production).
	Environment Environment `yaml:"environment"`

	// Server configures the internal HTTP endpoint.
	Server ServerConfig `yaml:"server"`

	// Slack configures the Slack Web API client and Socket Mode stream.
	Slack SlackConfig `yaml:"slack"`

	// LLM configures the model provider.
	LLM LLMConfig `yaml:"llm"`

	// Agent configures conversation handling and the orchestration loop.
	Agent AgentConfig `yaml:"agent"`

	// Per-environment overrides, applied after the base config loads.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Server *ServerConfig `yaml:"server,omitempty"`
	Slack  *SlackConfig  `yaml:"slack,omitempty"`
	LLM    *LLMConfig    `yaml:"llm,omitempty"`
	Agent  *AgentConfig  `yaml:"agent,omitempty"`
}

// ServerConfig configures the internal HTTP endpoint.
type ServerConfig struct {
	// Listen is the address the HTTP server binds to.
	// Default: 127.0.0.1:8484
	Listen string `yaml:"listen"`
}

// SlackConfig configures the Slack Web API client.
type SlackConfig struct {
	// BotToken is the xoxb- token used for Web API calls.
	// Default: ${SLACK_BOT_TOKEN}
	BotToken string `yaml:"bot_token"`

	// AppToken is the xapp- token used to open Socket Mode connections.
	// Default: ${SLACK_APP_TOKEN}
	AppToken string `yaml:"app_token"`

	// BaseURL is the Web API root. Default: https://slack.com/api/
	BaseURL string `yaml:"base_url"`

	// SocketMode enables the Socket Mode event stream. When disabled,
	// only the HTTP endpoint receives messages.
	// Default: true (development), overridable per environment.
	SocketMode bool `yaml:"socket_mode"`
}

// LLMConfig configures the model provider.
type LLMConfig struct {
	// Provider selects the wire format: "anthropic" or "openai".
	Provider string `yaml:"provider"`

	// Model is the model identifier sent to the provider. It also
	// selects the message shaping profile.
	Model string `yaml:"model"`

	// APIKey authenticates provider requests.
	// Default: ${ANTHROPIC_API_KEY}
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider endpoint. Empty means the
	// provider's public endpoint.
	BaseURL string `yaml:"base_url"`

	// MaxTokens caps the model's response length. Default: 1024.
	MaxTokens int `yaml:"max_tokens"`
}

// AgentConfig configures conversation handling and the orchestration
// loop.
type AgentConfig struct {
	// Instructions is the system message seeded into every new
	// conversation.
	Instructions string `yaml:"instructions"`

	// HistoryWindow is how many recent non-system messages are sent to
	// the model. The default of 1 sends only the system message plus
	// the latest user message; raise it to give the model multi-turn
	// memory at higher token cost.
	HistoryWindow int `yaml:"history_window"`

	// MaxConversations bounds the in-memory conversation store.
	// Creating one past the cap evicts the least recently active
	// conversation. Default: 1000.
	MaxConversations int `yaml:"max_conversations"`

	// IdleTTL evicts conversations idle longer than this duration.
	// Parsed with time.ParseDuration. Empty or "0" disables the
	// sweeper. Default: 24h.
	IdleTTL string `yaml:"idle_ttl"`

	// SweepInterval is how often the idle sweeper runs. Default: 10m.
	SweepInterval string `yaml:"sweep_interval"`

	// MaxFollowUpRounds caps continuation depth per incoming message.
	// Default: 3.
	MaxFollowUpRounds int `yaml:"max_follow_up_rounds"`

	// RulesFile optionally overrides the embedded continuation rules.
	// The file is JSONC (JSON with comments).
	RulesFile string `yaml:"rules_file"`
}

// Default returns the default configuration. These defaults are the
// base before loading the config file; the file is still required for
// anything beyond local experimentation.
func Default() *Config {
	return &Config{
		Environment: Development,
		Server: ServerConfig{
			Listen: "127.0.0.1:8484",
		},
		Slack: SlackConfig{
			BotToken:   "${SLACK_BOT_TOKEN}",
			AppToken:   "${SLACK_APP_TOKEN}",
			BaseURL:    "https://slack.com/api/",
			SocketMode: true,
		},
		LLM: LLMConfig{
			Provider:  "anthropic",
			Model:     "claude-sonnet-4-5",
			APIKey:    "${ANTHROPIC_API_KEY}",
			MaxTokens: 1024,
		},
		Agent: AgentConfig{
			Instructions:      "You are a helpful workspace assistant. Use the available functions to act on the user's behalf.",
			HistoryWindow:     1,
			MaxConversations:  1000,
			IdleTTL:           "24h",
			SweepInterval:     "10m",
			MaxFollowUpRounds: 3,
		},
	}
}

// Load loads configuration from the PARLEY_CONFIG environment variable.
//
// There are no fallbacks - if PARLEY_CONFIG is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("PARLEY_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("PARLEY_CONFIG environment variable not set; " +
			"set it to the path of your parley.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables
// do not override config values; the only expansion performed is the
// ${VAR} syntax in secret fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.Server != nil {
		if overrides.Server.Listen != "" {
			c.Server.Listen = overrides.Server.Listen
		}
	}

	if overrides.Slack != nil {
		if overrides.Slack.BotToken != "" {
			c.Slack.BotToken = overrides.Slack.BotToken
		}
		if overrides.Slack.AppToken != "" {
			c.Slack.AppToken = overrides.Slack.AppToken
		}
		if overrides.Slack.BaseURL != "" {
			c.Slack.BaseURL = overrides.Slack.BaseURL
		}
		// SocketMode is a bool, so overrides always apply it.
		c.Slack.SocketMode = overrides.Slack.SocketMode
	}

	if overrides.LLM != nil {
		if overrides.LLM.Provider != "" {
			c.LLM.Provider = overrides.LLM.Provider
		}
		if overrides.LLM.Model != "" {
			c.LLM.Model = overrides.LLM.Model
		}
		if overrides.LLM.APIKey != "" {
			c.LLM.APIKey = overrides.LLM.APIKey
		}
		if overrides.LLM.BaseURL != "" {
			c.LLM.BaseURL = overrides.LLM.BaseURL
		}
		if overrides.LLM.MaxTokens != 0 {
			c.LLM.MaxTokens = overrides.LLM.MaxTokens
		}
	}

	if overrides.Agent != nil {
		if overrides.Agent.Instructions != "" {
			c.Agent.Instructions = overrides.Agent.Instructions
		}
		if overrides.Agent.HistoryWindow != 0 {
			c.Agent.HistoryWindow = overrides.Agent.HistoryWindow
		}
		if overrides.Agent.MaxConversations != 0 {
			c.Agent.MaxConversations = overrides.Agent.MaxConversations
		}
		if overrides.Agent.IdleTTL != "" {
			c.Agent.IdleTTL = overrides.Agent.IdleTTL
		}
		if overrides.Agent.SweepInterval != "" {
			c.Agent.SweepInterval = overrides.Agent.SweepInterval
		}
		if overrides.Agent.MaxFollowUpRounds != 0 {
			c.Agent.MaxFollowUpRounds = overrides.Agent.MaxFollowUpRounds
		}
		if overrides.Agent.RulesFile != "" {
			c.Agent.RulesFile = overrides.Agent.RulesFile
		}
	}
}

// expandVariables expands ${VAR} patterns in secret and path fields.
func (c *Config) expandVariables() {
	c.Slack.BotToken = expandVars(c.Slack.BotToken)
	c.Slack.AppToken = expandVars(c.Slack.AppToken)
	c.LLM.APIKey = expandVars(c.LLM.APIKey)
	c.Agent.RulesFile = expandVars(c.Agent.RulesFile)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns against the
// process environment.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Server.Listen == "" {
		errs = append(errs, fmt.Errorf("server.listen is required"))
	}

	if c.Slack.BotToken == "" {
		errs = append(errs, fmt.Errorf("slack.bot_token is required (set SLACK_BOT_TOKEN)"))
	}
	if c.Slack.SocketMode && c.Slack.AppToken == "" {
		errs = append(errs, fmt.Errorf("slack.app_token is required for socket mode (set SLACK_APP_TOKEN)"))
	}
	if c.Slack.BaseURL == "" {
		errs = append(errs, fmt.Errorf("slack.base_url is required"))
	}

	if c.LLM.Provider != "anthropic" && c.LLM.Provider != "openai" {
		errs = append(errs, fmt.Errorf("llm.provider must be \"anthropic\" or \"openai\", got %q", c.LLM.Provider))
	}
	if c.LLM.Model == "" {
		errs = append(errs, fmt.Errorf("llm.model is required"))
	}
	if c.LLM.APIKey == "" {
		errs = append(errs, fmt.Errorf("llm.api_key is required (set ANTHROPIC_API_KEY or OPENAI_API_KEY)"))
	}
	if c.LLM.MaxTokens < 1 {
		errs = append(errs, fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens))
	}

	if c.Agent.HistoryWindow < 1 {
		errs = append(errs, fmt.Errorf("agent.history_window must be positive, got %d", c.Agent.HistoryWindow))
	}
	if c.Agent.MaxConversations < 1 {
		errs = append(errs, fmt.Errorf("agent.max_conversations must be positive, got %d", c.Agent.MaxConversations))
	}
	if _, err := c.ParsedIdleTTL(); err != nil {
		errs = append(errs, fmt.Errorf("agent.idle_ttl: %w", err))
	}
	if _, err := c.ParsedSweepInterval(); err != nil {
		errs = append(errs, fmt.Errorf("agent.sweep_interval: %w", err))
	}
	if c.Agent.MaxFollowUpRounds < 0 {
		errs = append(errs, fmt.Errorf("agent.max_follow_up_rounds must be non-negative, got %d", c.Agent.MaxFollowUpRounds))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ParsedIdleTTL returns the idle TTL as a duration. Zero means the
// sweeper is disabled.
func (c *Config) ParsedIdleTTL() (time.Duration, error) {
	return parseDuration(c.Agent.IdleTTL)
}

// ParsedSweepInterval returns the sweep cadence as a duration.
func (c *Config) ParsedSweepInterval() (time.Duration, error) {
	return parseDuration(c.Agent.SweepInterval)
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be non-negative, got %s", s)
	}
	return d, nil
}
