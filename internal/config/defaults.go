package config

import "github.com/bobmcallan/marketbrief/internal/common"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "prod",
		Server: ServerConfig{
			Port: 4301,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/marketbrief",
			},
		},
		Clients: ClientsConfig{
			Provider: "gemini",
			Gemini: GeminiConfig{
				BaseURL: "https://generativelanguage.googleapis.com",
				Model:   "gemini-2.0-flash",
				Timeout: "120s",
			},
			OpenAI: OpenAIConfig{
				Model:   "gpt-4o-mini",
				Timeout: "120s",
			},
		},
		Retry: RetryConfig{
			MaxRetries:      3,
			InitialDelay:    "1s",
			MaxDelay:        "30s",
			ExponentialBase: 2.0,
		},
		Logging: common.LoggingConfig{
			Level:   "info",
			Outputs: []string{"console", "file"},
		},
	}
}
