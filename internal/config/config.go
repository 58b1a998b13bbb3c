// Package config loads MCP client configuration from files and the
// environment.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/mediactl/mcp-go/mcp"
)

// Config is the on-disk and environment configuration of the CLI.
type Config struct {
	APIKey             string            `json:"api_key" yaml:"api_key" env:"MCP_API_KEY"`
	Endpoint           string            `json:"endpoint" yaml:"endpoint" env:"MCP_ENDPOINT"`
	Timeout            int               `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"MCP_TIMEOUT"`
	MaxRetries         int               `json:"max_retries,omitempty" yaml:"max_retries,omitempty" env:"MCP_MAX_RETRIES"`
	RetryBackoffFactor float64           `json:"retry_backoff_factor,omitempty" yaml:"retry_backoff_factor,omitempty" env:"MCP_RETRY_BACKOFF_FACTOR"`
	VerifySSL          *bool             `json:"verify_ssl,omitempty" yaml:"verify_ssl,omitempty" env:"MCP_VERIFY_SSL"`
	Headers            map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// DefaultConfig returns the documented defaults. API key and endpoint
// have none; they must come from a file or the environment.
func DefaultConfig() Config {
	return Config{
		Timeout:            30,
		MaxRetries:         3,
		RetryBackoffFactor: 0.5,
	}
}

// DataDir returns the MCP data directory: ~/.mcp.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mcp"
	}
	return filepath.Join(home, ".mcp")
}

// SearchPaths returns the config file locations tried in order:
// working directory first, then the user's data directory.
func SearchPaths() []string {
	return []string{
		"mcp_config.json",
		"mcp_config.yaml",
		filepath.Join(DataDir(), "config.json"),
		filepath.Join(DataDir(), "config.yaml"),
	}
}

// TimeoutDuration converts the timeout to a duration.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// Validate checks the fields a client cannot be built without.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return &mcp.ConfigurationError{Message: "API key is required", Setting: "api_key"}
	}
	if c.Endpoint == "" {
		return &mcp.ConfigurationError{Message: "endpoint is required", Setting: "endpoint"}
	}
	if c.Timeout < 0 {
		return &mcp.ConfigurationError{Message: "timeout must not be negative", Setting: "timeout"}
	}
	if c.MaxRetries < 0 {
		return &mcp.ConfigurationError{Message: "max_retries must not be negative", Setting: "max_retries"}
	}
	return nil
}

// ClientOptions translates the configuration into client options.
func (c *Config) ClientOptions() []mcp.Option {
	opts := []mcp.Option{
		mcp.WithTimeout(c.TimeoutDuration()),
		mcp.WithMaxRetries(c.MaxRetries),
		mcp.WithBackoffFactor(c.RetryBackoffFactor),
	}
	if len(c.Headers) > 0 {
		opts = append(opts, mcp.WithHeaders(c.Headers))
	}
	if c.VerifySSL != nil && !*c.VerifySSL {
		opts = append(opts, mcp.WithInsecureSkipVerify())
	}
	return opts
}
