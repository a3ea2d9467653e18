package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// DefaultMaxDocumentBytes caps incoming XML documents at 50 MB.
const DefaultMaxDocumentBytes = 50 * 1024 * 1024

type Config struct {
	Env                string `mapstructure:"ENV"`
	LogLevel           string `mapstructure:"LOG_LEVEL"`
	ServiceVersion     string `mapstructure:"SERVICE_VERSION"`
	MaxDocumentBytes   int64  `mapstructure:"MAX_DOCUMENT_BYTES"`
	EnhancementEnabled bool   `mapstructure:"ENHANCEMENT_ENABLED"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVICE_VERSION", "1.0.0")
	v.SetDefault("MAX_DOCUMENT_BYTES", DefaultMaxDocumentBytes)
	v.SetDefault("ENHANCEMENT_ENABLED", false)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("ENV")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("SERVICE_VERSION")
	v.BindEnv("MAX_DOCUMENT_BYTES")
	v.BindEnv("ENHANCEMENT_ENABLED")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run with.
func (c *Config) Validate() error {
	if c.MaxDocumentBytes <= 0 {
		return fmt.Errorf("MAX_DOCUMENT_BYTES must be positive, got %d", c.MaxDocumentBytes)
	}
	if c.ServiceVersion == "" {
		return fmt.Errorf("SERVICE_VERSION must not be empty")
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got %q", c.LogLevel)
	}
	return nil
}
