package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/mediactl/mcp-go/mcp"
)

// Load resolves configuration in order: the explicit path when given,
// then the default search paths, then environment variables.
// Environment variables always override file values. With no file and
// no MCP_API_KEY/MCP_ENDPOINT in the environment, loading fails.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	loaded := false

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
		loaded = true
	} else {
		for _, candidate := range SearchPaths() {
			if _, err := os.Stat(candidate); err != nil {
				continue
			}
			if err := loadFile(candidate, &cfg); err != nil {
				return nil, err
			}
			loaded = true
			break
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, &mcp.ConfigurationError{Message: fmt.Sprintf("parse environment: %v", err)}
	}

	if !loaded && cfg.APIKey == "" && cfg.Endpoint == "" {
		return nil, &mcp.ConfigurationError{
			Message: "no configuration found; create a config file or set MCP_API_KEY and MCP_ENDPOINT",
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadFile parses a JSON or YAML config file into cfg, keeping the
// defaults for fields the file omits.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &mcp.ConfigurationError{Message: fmt.Sprintf("read config %s: %v", path, err)}
	}

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return &mcp.ConfigurationError{Message: fmt.Sprintf("parse config %s: %v", path, err)}
		}
		return nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return &mcp.ConfigurationError{Message: fmt.Sprintf("parse config %s: %v", path, err)}
	}
	return nil
}

// Save writes cfg to path as indented JSON, 0600, creating parent
// directories. If path is empty the default user config path is used.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = filepath.Join(DataDir(), "config.json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
