package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Config defines client configuration.
type Config struct {
	API   APIConfig   `yaml:"api"`
	State StateConfig `yaml:"state"`
	Log   LogConfig   `yaml:"log"`
}

type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

type StateConfig struct {
	Path    string `yaml:"path"`
	KeyPath string `yaml:"key_path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	stateDir := defaultStateDir()
	cfg := Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080/api",
			Timeout: "15s",
		},
		State: StateConfig{
			Path:    filepath.Join(stateDir, "state.db"),
			KeyPath: filepath.Join(stateDir, "state.key"),
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if path := os.Getenv("BACKDESK_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if base := os.Getenv("BACKDESK_API_BASE_URL"); base != "" {
		cfg.API.BaseURL = base
	}
	if timeout := os.Getenv("BACKDESK_API_TIMEOUT"); timeout != "" {
		cfg.API.Timeout = timeout
	}
	if path := os.Getenv("BACKDESK_STATE_PATH"); path != "" {
		cfg.State.Path = path
	}
	if path := os.Getenv("BACKDESK_STATE_KEY_PATH"); path != "" {
		cfg.State.KeyPath = path
	}
	if level := os.Getenv("BACKDESK_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	return cfg, nil
}

// Validate checks every field and reports all problems at once.
func (c Config) Validate() error {
	var result *multierror.Error

	base, err := url.Parse(c.API.BaseURL)
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("api.base_url: %w", err))
	} else if base.Scheme != "http" && base.Scheme != "https" {
		result = multierror.Append(result, fmt.Errorf("api.base_url: unsupported scheme %q", base.Scheme))
	}

	if timeout, err := time.ParseDuration(c.API.Timeout); err != nil {
		result = multierror.Append(result, fmt.Errorf("api.timeout: %w", err))
	} else if timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("api.timeout: must be positive, got %s", timeout))
	}

	if c.State.Path == "" {
		result = multierror.Append(result, fmt.Errorf("state.path: must not be empty"))
	}
	if c.State.KeyPath == "" {
		result = multierror.Append(result, fmt.Errorf("state.key_path: must not be empty"))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		result = multierror.Append(result, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}

	return result.ErrorOrNil()
}

// RequestTimeout returns the parsed API timeout. Call Validate first; an
// unparseable value falls back to 15 seconds.
func (c APIConfig) RequestTimeout() time.Duration {
	timeout, err := time.ParseDuration(c.Timeout)
	if err != nil || timeout <= 0 {
		return 15 * time.Second
	}
	return timeout
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "backdesk")
	}
	return "."
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
