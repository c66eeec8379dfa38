// ABOUTME: Configuration loading and parsing for lore-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete lore-gateway configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Sessions SessionsConfig `yaml:"sessions"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// UpstreamConfig holds the archive API connection settings
type UpstreamConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"-"`

	TimeoutRaw string `yaml:"timeout"`
}

// SessionsConfig holds session lifecycle configuration
type SessionsConfig struct {
	IdleTTL time.Duration `yaml:"-"`

	IdleTTLRaw string `yaml:"idle_ttl"`
}

// DispatchConfig holds request dispatch configuration
type DispatchConfig struct {
	CallTimeout time.Duration `yaml:"-"`

	CallTimeoutRaw string `yaml:"call_timeout"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// DatabaseConfig holds the invocation ledger configuration.
// An empty path disables the ledger.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
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

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}

	if c.Sessions.IdleTTL < 0 {
		return fmt.Errorf("sessions.idle_ttl must not be negative")
	}

	if c.Dispatch.CallTimeout < 0 {
		return fmt.Errorf("dispatch.call_timeout must not be negative")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Upstream.TimeoutRaw != "" {
		cfg.Upstream.Timeout, err = time.ParseDuration(cfg.Upstream.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing upstream.timeout %q: %w", cfg.Upstream.TimeoutRaw, err)
		}
	}

	if cfg.Sessions.IdleTTLRaw != "" {
		cfg.Sessions.IdleTTL, err = time.ParseDuration(cfg.Sessions.IdleTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing sessions.idle_ttl %q: %w", cfg.Sessions.IdleTTLRaw, err)
		}
	}

	if cfg.Dispatch.CallTimeoutRaw != "" {
		cfg.Dispatch.CallTimeout, err = time.ParseDuration(cfg.Dispatch.CallTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing dispatch.call_timeout %q: %w", cfg.Dispatch.CallTimeoutRaw, err)
		}
	}

	return nil
}
