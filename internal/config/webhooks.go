package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/archivist/pkg/formatting"
)

const (
	EnvWebhooksDefaultTimeout    = "ARCHIVIST_WEBHOOKS_DEFAULT_TIMEOUT"
	EnvWebhooksDefaultRetryCount = "ARCHIVIST_WEBHOOKS_DEFAULT_RETRY_COUNT"
	EnvWebhooksMaxBackoff        = "ARCHIVIST_WEBHOOKS_MAX_BACKOFF"
	EnvWebhooksMaxResponseSize   = "ARCHIVIST_WEBHOOKS_MAX_RESPONSE_SIZE"
)

// WebhooksConfig holds delivery defaults for webhooks that do not set their own.
type WebhooksConfig struct {
	DefaultTimeout    string `toml:"default_timeout"`
	DefaultRetryCount *int   `toml:"default_retry_count"`
	MaxBackoff        string `toml:"max_backoff"`
	MaxResponseSize   string `toml:"max_response_size"`
}

// DefaultTimeoutDuration returns DefaultTimeout as a time.Duration.
func (c *WebhooksConfig) DefaultTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.DefaultTimeout)
	return d
}

// MaxBackoffDuration returns MaxBackoff as a time.Duration.
func (c *WebhooksConfig) MaxBackoffDuration() time.Duration {
	d, _ := time.ParseDuration(c.MaxBackoff)
	return d
}

// RetryCount returns the default retry count.
func (c *WebhooksConfig) RetryCount() int {
	if c.DefaultRetryCount == nil {
		return 3
	}
	return *c.DefaultRetryCount
}

// MaxResponseBytes returns the response body capture limit in bytes.
func (c *WebhooksConfig) MaxResponseBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxResponseSize)
	if err != nil {
		return 10000
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *WebhooksConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *WebhooksConfig) Merge(overlay *WebhooksConfig) {
	if overlay.DefaultTimeout != "" {
		c.DefaultTimeout = overlay.DefaultTimeout
	}
	if overlay.DefaultRetryCount != nil {
		c.DefaultRetryCount = overlay.DefaultRetryCount
	}
	if overlay.MaxBackoff != "" {
		c.MaxBackoff = overlay.MaxBackoff
	}
	if overlay.MaxResponseSize != "" {
		c.MaxResponseSize = overlay.MaxResponseSize
	}
}

func (c *WebhooksConfig) loadDefaults() {
	if c.DefaultTimeout == "" {
		c.DefaultTimeout = "30s"
	}
	if c.DefaultRetryCount == nil {
		n := 3
		c.DefaultRetryCount = &n
	}
	if c.MaxBackoff == "" {
		c.MaxBackoff = "60s"
	}
	if c.MaxResponseSize == "" {
		c.MaxResponseSize = "10000"
	}
}

func (c *WebhooksConfig) loadEnv() {
	if v := os.Getenv(EnvWebhooksDefaultTimeout); v != "" {
		c.DefaultTimeout = v
	}
	if v := os.Getenv(EnvWebhooksDefaultRetryCount); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DefaultRetryCount = &n
		}
	}
	if v := os.Getenv(EnvWebhooksMaxBackoff); v != "" {
		c.MaxBackoff = v
	}
	if v := os.Getenv(EnvWebhooksMaxResponseSize); v != "" {
		c.MaxResponseSize = v
	}
}

func (c *WebhooksConfig) validate() error {
	if _, err := time.ParseDuration(c.DefaultTimeout); err != nil {
		return fmt.Errorf("invalid default_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.MaxBackoff); err != nil {
		return fmt.Errorf("invalid max_backoff: %w", err)
	}
	if c.RetryCount() < 0 {
		return fmt.Errorf("invalid default_retry_count %d: must not be negative", c.RetryCount())
	}
	if _, err := formatting.ParseBytes(c.MaxResponseSize); err != nil {
		return fmt.Errorf("invalid max_response_size: %w", err)
	}
	return nil
}
