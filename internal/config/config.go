package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/otiai10/podog/internal/pushover"
	"github.com/otiai10/podog/internal/security"
)

// FileName is the credentials file looked up in the home directory.
const FileName = ".podog"

// Config represents the podog configuration file.
//
// The file is JSON in practice:
//
//	{"api_key": "azGDORePK8gMaC0QOYAMyEEuzJnyUi", "user_key": "uQiRzpo4DXghDmr9QzzfQu27cmVRsG"}
//
// It is decoded as YAML, so the same keys in YAML syntax work as well.
type Config struct {
	APIKey      string `yaml:"api_key"`
	UserKey     string `yaml:"user_key"`
	Endpoint    string `yaml:"endpoint,omitempty"`     // API root, defaults to pushover.DefaultBaseURL
	HistoryPath string `yaml:"history_path,omitempty"` // sqlite file, empty disables history
	LogLevel    string `yaml:"log_level,omitempty"`
}

// LoadError reports a missing, unreadable, or invalid configuration file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// DefaultPath returns ~/.podog.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", &LoadError{Path: "~/" + FileName, Err: fmt.Errorf("no home directory: %w", err)}
	}
	return filepath.Join(home, FileName), nil
}

// Load reads configuration from the specified file.
// Environment variables override file values:
//   - PODOG_ENDPOINT overrides endpoint
//   - PODOG_HISTORY_PATH overrides history_path
//   - PODOG_LOG_LEVEL overrides log_level
//
// Every failure is returned as a *LoadError.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("failed to read config file: %w", err)}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("failed to parse config file: %w", err)}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("invalid configuration: %w", err)}
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PODOG_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv("PODOG_HISTORY_PATH"); v != "" {
		c.HistoryPath = v
	}
	if v := os.Getenv("PODOG_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.APIKey) == "" {
		errs = append(errs, errors.New("api_key is required"))
	}
	if strings.TrimSpace(c.UserKey) == "" {
		errs = append(errs, errors.New("user_key is required"))
	}
	if c.Endpoint != "" {
		if err := security.ValidateEndpoint(c.Endpoint); err != nil {
			errs = append(errs, fmt.Errorf("endpoint must be a usable API root: %w", err))
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unsupported log_level %q (supported: debug, info, warn, error)", c.LogLevel))
	}
	return errors.Join(errs...)
}

// Credentials returns the application token and user key.
func (c *Config) Credentials() pushover.Credentials {
	return pushover.Credentials{
		Token: strings.TrimSpace(c.APIKey),
		User:  strings.TrimSpace(c.UserKey),
	}
}

// BaseURL returns the API root to send to.
func (c *Config) BaseURL() string {
	if c.Endpoint == "" {
		return pushover.DefaultBaseURL
	}
	return c.Endpoint
}
