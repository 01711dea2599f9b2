package config

import (
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	EnvLockRedisURL = "ARCHIVIST_LOCK_REDIS_URL"
	EnvLockTTL      = "ARCHIVIST_LOCK_TTL"
	EnvLockRetry    = "ARCHIVIST_LOCK_RETRY"
)

// LockConfig selects the per-document lock backend. An empty redis_url keeps
// locks in process.
type LockConfig struct {
	RedisURL string `toml:"redis_url"`
	TTL      string `toml:"ttl"`
	Retry    string `toml:"retry"`
}

// Distributed reports whether locks are shared through Redis.
func (c *LockConfig) Distributed() bool {
	return c.RedisURL != ""
}

// TTLDuration returns TTL as a time.Duration.
func (c *LockConfig) TTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TTL)
	return d
}

// RetryDuration returns Retry as a time.Duration.
func (c *LockConfig) RetryDuration() time.Duration {
	d, _ := time.ParseDuration(c.Retry)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *LockConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *LockConfig) Merge(overlay *LockConfig) {
	if overlay.RedisURL != "" {
		c.RedisURL = overlay.RedisURL
	}
	if overlay.TTL != "" {
		c.TTL = overlay.TTL
	}
	if overlay.Retry != "" {
		c.Retry = overlay.Retry
	}
}

func (c *LockConfig) loadDefaults() {
	if c.TTL == "" {
		c.TTL = "2m"
	}
	if c.Retry == "" {
		c.Retry = "50ms"
	}
}

func (c *LockConfig) loadEnv() {
	if v := os.Getenv(EnvLockRedisURL); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv(EnvLockTTL); v != "" {
		c.TTL = v
	}
	if v := os.Getenv(EnvLockRetry); v != "" {
		c.Retry = v
	}
}

func (c *LockConfig) validate() error {
	if c.RedisURL != "" {
		if _, err := redis.ParseURL(c.RedisURL); err != nil {
			return fmt.Errorf("invalid redis_url: %w", err)
		}
	}
	if d, err := time.ParseDuration(c.TTL); err != nil || d <= 0 {
		return fmt.Errorf("invalid ttl %q", c.TTL)
	}
	if d, err := time.ParseDuration(c.Retry); err != nil || d <= 0 {
		return fmt.Errorf("invalid retry %q", c.Retry)
	}
	return nil
}
