// Package config loads dashboard settings from an optional YAML file, with
// defaults for every field and environment overrides for deployment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/certdash/generic"
	"github.com/warp/certdash/remote"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Remote      RemoteConfig      `yaml:"remote"`
	Stores      StoresConfig      `yaml:"stores"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// PersistenceConfig selects where store snapshots live.
type PersistenceConfig struct {
	Driver string `yaml:"driver"` // memory, sqlite
	Path   string `yaml:"path"`   // sqlite file
}

// RemoteConfig selects the data source behind the stores.
type RemoteConfig struct {
	Mode         string         `yaml:"mode"` // mock, http
	BaseURL      string         `yaml:"base_url"`
	Timeout      time.Duration  `yaml:"timeout"`
	Latency      remote.Latency `yaml:"latency"` // mock only
	DownloadBase string         `yaml:"download_base"`
}

type StoresConfig struct {
	RacePolicy      string        `yaml:"race_policy"` // latest-issued, last-resolved
	NotificationTTL time.Duration `yaml:"notification_ttl"`
	RefreshInterval time.Duration `yaml:"refresh_interval"` // 0 disables background refresh
	PrefersDark     bool          `yaml:"prefers_dark"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Persistence: PersistenceConfig{
			Driver: "sqlite",
			Path:   "certdash.db",
		},
		Remote: RemoteConfig{
			Mode:         "mock",
			Timeout:      30 * time.Second,
			Latency:      remote.DefaultLatency(),
			DownloadBase: "https://certificates.example.com",
		},
		Stores: StoresConfig{
			RacePolicy:      generic.LatestIssued.String(),
			NotificationTTL: 5 * time.Second,
			RefreshInterval: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CERTDASH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("CERTDASH_DB"); v != "" {
		c.Persistence.Driver = "sqlite"
		c.Persistence.Path = v
	}
	if v := os.Getenv("CERTDASH_REMOTE_URL"); v != "" {
		c.Remote.Mode = "http"
		c.Remote.BaseURL = v
	}
}

// Validate checks enumerated fields and required combinations.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &generic.ValidationError{Field: "server.port", Message: "must be between 1 and 65535"}
	}
	switch c.Persistence.Driver {
	case "memory":
	case "sqlite":
		if c.Persistence.Path == "" {
			return &generic.ValidationError{Field: "persistence.path", Message: "is required for sqlite"}
		}
	default:
		return &generic.ValidationError{Field: "persistence.driver", Message: "must be memory or sqlite"}
	}
	switch c.Remote.Mode {
	case "mock":
	case "http":
		if c.Remote.BaseURL == "" {
			return &generic.ValidationError{Field: "remote.base_url", Message: "is required for http mode"}
		}
	default:
		return &generic.ValidationError{Field: "remote.mode", Message: "must be mock or http"}
	}
	if _, err := generic.ParseRacePolicy(c.Stores.RacePolicy); err != nil {
		return err
	}
	if c.Stores.NotificationTTL < 0 || c.Stores.RefreshInterval < 0 {
		return &generic.ValidationError{Field: "stores", Message: "durations must not be negative"}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &generic.ValidationError{Field: "logging.level", Message: "must be debug, info, warn or error"}
	}
	return nil
}

// Save writes c as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
