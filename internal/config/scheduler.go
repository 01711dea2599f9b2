package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvSchedulerEnabled           = "ARCHIVIST_SCHEDULER_ENABLED"
	EnvSchedulerCron              = "ARCHIVIST_SCHEDULER_CRON"
	EnvSchedulerTimezone          = "ARCHIVIST_SCHEDULER_TIMEZONE"
	EnvSchedulerRunTimeout        = "ARCHIVIST_SCHEDULER_RUN_TIMEOUT"
	EnvSchedulerEnforceRecurrence = "ARCHIVIST_SCHEDULER_ENFORCE_RECURRENCE"
)

// SchedulerConfig controls the in-process scheduled scan.
type SchedulerConfig struct {
	Enabled           bool   `toml:"enabled"`
	Cron              string `toml:"cron"`
	Timezone          string `toml:"timezone"`
	RunTimeout        string `toml:"run_timeout"`
	EnforceRecurrence bool   `toml:"enforce_recurrence"`
}

// Location returns the time zone that defines "today" for scheduled triggers.
func (c *SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RunTimeoutDuration returns RunTimeout as a time.Duration.
func (c *SchedulerConfig) RunTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RunTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *SchedulerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites fields from overlay. Boolean fields always apply; string
// fields only apply when non-empty.
func (c *SchedulerConfig) Merge(overlay *SchedulerConfig) {
	c.Enabled = overlay.Enabled
	c.EnforceRecurrence = overlay.EnforceRecurrence

	if overlay.Cron != "" {
		c.Cron = overlay.Cron
	}
	if overlay.Timezone != "" {
		c.Timezone = overlay.Timezone
	}
	if overlay.RunTimeout != "" {
		c.RunTimeout = overlay.RunTimeout
	}
}

func (c *SchedulerConfig) loadDefaults() {
	if c.Cron == "" {
		c.Cron = "@every 5m"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.RunTimeout == "" {
		c.RunTimeout = "4m"
	}
}

func (c *SchedulerConfig) loadEnv() {
	if v := os.Getenv(EnvSchedulerEnabled); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Enabled = b
		}
	}
	if v := os.Getenv(EnvSchedulerCron); v != "" {
		c.Cron = v
	}
	if v := os.Getenv(EnvSchedulerTimezone); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv(EnvSchedulerRunTimeout); v != "" {
		c.RunTimeout = v
	}
	if v := os.Getenv(EnvSchedulerEnforceRecurrence); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.EnforceRecurrence = b
		}
	}
}

func (c *SchedulerConfig) validate() error {
	if c.Timezone == "Local" {
		return fmt.Errorf("invalid timezone %q: use an IANA zone name", c.Timezone)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if _, err := time.ParseDuration(c.RunTimeout); err != nil {
		return fmt.Errorf("invalid run_timeout: %w", err)
	}
	return nil
}
