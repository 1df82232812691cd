// ABOUTME: Configuration loading and parsing for finassist
// ABOUTME: YAML with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete finassist configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Model    ModelConfig    `yaml:"model"`
	Chat     ChatConfig     `yaml:"chat"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds the HTTP listen address
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// ModelConfig holds the OpenAI-compatible endpoint configuration
type ModelConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Name    string `yaml:"name"`
}

// ChatConfig holds conversation and exchange configuration
type ChatConfig struct {
	// Conversations restricts valid conversation ids. Empty means any id is
	// accepted and created lazily.
	Conversations []string `yaml:"conversations"`

	// IdentitiesPath points at an optional TOML file naming the assistant
	// and system-error identities.
	IdentitiesPath string `yaml:"identities_path"`

	StreamTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	StreamTimeoutRaw string `yaml:"stream_timeout"`
}

// DatabaseConfig holds the transcript ledger location. An empty path
// disables the ledger.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	// A configured model needs an endpoint; a fully absent model section is
	// allowed for demo mode.
	if c.Model.Name != "" && c.Model.BaseURL == "" {
		return fmt.Errorf("model.base_url is required when model.name is set")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Chat.StreamTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Chat.StreamTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing stream_timeout %q: %w", cfg.Chat.StreamTimeoutRaw, err)
		}
		cfg.Chat.StreamTimeout = d
	}
	return nil
}
