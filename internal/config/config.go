// Package config loads marketbrief configuration from TOML files,
// environment variables, and command-line flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/marketbrief/internal/common"
)

// Config represents the application configuration.
type Config struct {
	Environment string               `toml:"environment"`
	Server      ServerConfig         `toml:"server"`
	Storage     StorageConfig        `toml:"storage"`
	Clients     ClientsConfig        `toml:"clients"`
	Retry       RetryConfig          `toml:"retry"`
	Logging     common.LoggingConfig `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// StorageConfig contains storage layer settings.
type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig contains BadgerDB-specific settings.
type BadgerConfig struct {
	Path string `toml:"path"`
}

// ClientsConfig holds AI provider client configurations.
type ClientsConfig struct {
	Provider string       `toml:"provider"` // "gemini" (default) or "openai"
	Gemini   GeminiConfig `toml:"gemini"`
	OpenAI   OpenAIConfig `toml:"openai"`
}

// GeminiConfig holds Gemini API configuration.
type GeminiConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	Timeout string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration.
func (c *GeminiConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// OpenAIConfig holds OpenAI API configuration.
type OpenAIConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	Timeout string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration.
func (c *OpenAIConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// RetryConfig tunes the backoff retrier used for AI calls.
type RetryConfig struct {
	MaxRetries      int     `toml:"max_retries"`
	InitialDelay    string  `toml:"initial_delay"`
	MaxDelay        string  `toml:"max_delay"`
	ExponentialBase float64 `toml:"exponential_base"`
}

// GetInitialDelay parses and returns the initial retry delay.
func (c *RetryConfig) GetInitialDelay() time.Duration {
	d, err := time.ParseDuration(c.InitialDelay)
	if err != nil {
		return 1 * time.Second
	}
	return d
}

// GetMaxDelay parses and returns the retry delay cap.
func (c *RetryConfig) GetMaxDelay() time.Duration {
	d, err := time.ParseDuration(c.MaxDelay)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// IsDevMode reports whether the configured environment is a development one.
func (c *Config) IsDevMode() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "dev" || env == "development"
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies MARKETBRIEF_* environment variable overrides.
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("MARKETBRIEF_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("MARKETBRIEF_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if badgerPath := os.Getenv("MARKETBRIEF_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if provider := os.Getenv("MARKETBRIEF_AI_PROVIDER"); provider != "" {
		config.Clients.Provider = provider
	}
	if key := os.Getenv("MARKETBRIEF_GEMINI_API_KEY"); key != "" {
		config.Clients.Gemini.APIKey = key
	}
	if key := os.Getenv("MARKETBRIEF_OPENAI_API_KEY"); key != "" {
		config.Clients.OpenAI.APIKey = key
	}
	if level := os.Getenv("MARKETBRIEF_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}
