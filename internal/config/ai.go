package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

const (
	EnvAIBaseURL     = "ARCHIVIST_AI_BASE_URL"
	EnvAIAPIKey      = "ARCHIVIST_AI_API_KEY"
	EnvAIModel       = "ARCHIVIST_AI_MODEL"
	EnvAITimeout     = "ARCHIVIST_AI_TIMEOUT"
	EnvAITemperature = "ARCHIVIST_AI_TEMPERATURE"
)

// AIConfig configures the OpenAI-compatible classification provider.
// Leaving both base_url and api_key empty disables AI classification.
type AIConfig struct {
	BaseURL     string  `toml:"base_url"`
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *AIConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *AIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *AIConfig) Merge(overlay *AIConfig) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.Temperature != 0 {
		c.Temperature = overlay.Temperature
	}
}

func (c *AIConfig) loadDefaults() {
	if c.Timeout == "" {
		c.Timeout = "60s"
	}
}

func (c *AIConfig) loadEnv() {
	if v := os.Getenv(EnvAIBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvAIAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvAIModel); v != "" {
		c.Model = v
	}
	if v := os.Getenv(EnvAITimeout); v != "" {
		c.Timeout = v
	}
	if v := os.Getenv(EnvAITemperature); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			c.Temperature = float32(f)
		}
	}
}

func (c *AIConfig) validate() error {
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid base_url %q", c.BaseURL)
		}
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("invalid temperature %v: must be within [0, 2]", c.Temperature)
	}
	return nil
}
