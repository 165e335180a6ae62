// Package config loads application settings from the embedded defaults,
// an optional .env file and environment variable overrides.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var embeddedDefaults []byte

// Config holds all runtime settings for the fetcher, the dashboard and
// the bot.
type Config struct {
	Portal struct {
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"portal"`

	Station struct {
		Name string `yaml:"name"`
	} `yaml:"station"`

	Paths struct {
		RawDir   string `yaml:"raw_dir"`
		Combined string `yaml:"combined"`
		Database string `yaml:"database"`
	} `yaml:"paths"`

	Dashboard struct {
		HTTPAddr    string `yaml:"http_addr"`
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"dashboard"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// PortalTimeout returns the HTTP timeout for portal requests.
func (c *Config) PortalTimeout() time.Duration {
	if c.Portal.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Portal.TimeoutSeconds) * time.Second
}

// LogLevel parses the configured logging level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads the embedded defaults, applies a .env file when one exists
// in the working directory, and finally applies environment variable
// overrides. A CONFIG_PATH environment variable replaces the embedded
// defaults with an external YAML file.
func Load() (*Config, error) {
	// .env is optional; ignore a missing file but not a broken one.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	raw := embeddedDefaults
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		raw = b
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	applyEnvOverrides(&cfg)

	if cfg.Station.Name == "" {
		return nil, fmt.Errorf("station name must not be empty")
	}
	if cfg.Portal.BaseURL == "" {
		return nil, fmt.Errorf("portal base URL must not be empty")
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INMET_BASE_URL"); v != "" {
		cfg.Portal.BaseURL = v
	}
	if v := os.Getenv("INMET_STATION"); v != "" {
		cfg.Station.Name = v
	}
	if v := os.Getenv("RAW_DIR"); v != "" {
		cfg.Paths.RawDir = v
	}
	if v := os.Getenv("COMBINED_PATH"); v != "" {
		cfg.Paths.Combined = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Paths.Database = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Dashboard.HTTPAddr = v
	}
	if v := os.Getenv("REFRESH_CRON"); v != "" {
		cfg.Dashboard.RefreshCron = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
