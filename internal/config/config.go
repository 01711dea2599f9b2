// Package config loads Archivist configuration from TOML files and
// ARCHIVIST_* environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/archivist/pkg/database"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvArchivistEnv             = "ARCHIVIST_ENV"
	EnvArchivistShutdownTimeout = "ARCHIVIST_SHUTDOWN_TIMEOUT"
	EnvArchivistVersion         = "ARCHIVIST_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "ARCHIVIST_DB_HOST",
	Port:            "ARCHIVIST_DB_PORT",
	Name:            "ARCHIVIST_DB_NAME",
	User:            "ARCHIVIST_DB_USER",
	Password:        "ARCHIVIST_DB_PASSWORD",
	SSLMode:         "ARCHIVIST_DB_SSL_MODE",
	MaxOpenConns:    "ARCHIVIST_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "ARCHIVIST_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "ARCHIVIST_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "ARCHIVIST_DB_CONN_TIMEOUT",
}

// Config is the root configuration for the Archivist service.
type Config struct {
	Server          ServerConfig         `toml:"server"`
	Database        database.Config      `toml:"database"`
	API             APIConfig            `toml:"api"`
	Classification  ClassificationConfig `toml:"classification"`
	AI              AIConfig             `toml:"ai"`
	Webhooks        WebhooksConfig       `toml:"webhooks"`
	Scheduler       SchedulerConfig      `toml:"scheduler"`
	Lock            LockConfig           `toml:"lock"`
	ShutdownTimeout string               `toml:"shutdown_timeout"`
	Version         string               `toml:"version"`
}

// Env returns the ARCHIVIST_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvArchivistEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.API.Merge(&overlay.API)
	c.Classification.Merge(&overlay.Classification)
	c.AI.Merge(&overlay.AI)
	c.Webhooks.Merge(&overlay.Webhooks)
	c.Scheduler.Merge(&overlay.Scheduler)
	c.Lock.Merge(&overlay.Lock)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Classification.Finalize(); err != nil {
		return fmt.Errorf("classification: %w", err)
	}
	if err := c.AI.Finalize(); err != nil {
		return fmt.Errorf("ai: %w", err)
	}
	if err := c.Webhooks.Finalize(); err != nil {
		return fmt.Errorf("webhooks: %w", err)
	}
	if err := c.Scheduler.Finalize(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if err := c.Lock.Finalize(); err != nil {
		return fmt.Errorf("lock: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvArchivistShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvArchivistVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvArchivistEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
