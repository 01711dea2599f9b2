package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	EnvServerHost            = "ARCHIVIST_SERVER_HOST"
	EnvServerPort            = "ARCHIVIST_SERVER_PORT"
	EnvServerReadTimeout     = "ARCHIVIST_SERVER_READ_TIMEOUT"
	EnvServerWriteTimeout    = "ARCHIVIST_SERVER_WRITE_TIMEOUT"
	EnvServerIdleTimeout     = "ARCHIVIST_SERVER_IDLE_TIMEOUT"
	EnvServerShutdownTimeout = "ARCHIVIST_SERVER_SHUTDOWN_TIMEOUT"
)

// ServerConfig holds HTTP listener parameters. The write timeout bounds
// synchronous classification, which may wait on the AI endpoint.
type ServerConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	ReadTimeout     string `toml:"read_timeout"`
	WriteTimeout    string `toml:"write_timeout"`
	IdleTimeout     string `toml:"idle_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *ServerConfig) ReadTimeoutDuration() time.Duration     { return duration(c.ReadTimeout) }
func (c *ServerConfig) WriteTimeoutDuration() time.Duration    { return duration(c.WriteTimeout) }
func (c *ServerConfig) IdleTimeoutDuration() time.Duration     { return duration(c.IdleTimeout) }
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration { return duration(c.ShutdownTimeout) }

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Host != "" {
		c.Host = overlay.Host
	}
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	for dst, src := range c.durations(overlay) {
		if src != "" {
			*dst = src
		}
	}
}

// durations pairs each timeout field with its counterpart in other.
func (c *ServerConfig) durations(other *ServerConfig) map[*string]string {
	return map[*string]string{
		&c.ReadTimeout:     other.ReadTimeout,
		&c.WriteTimeout:    other.WriteTimeout,
		&c.IdleTimeout:     other.IdleTimeout,
		&c.ShutdownTimeout: other.ShutdownTimeout,
	}
}

func (c *ServerConfig) loadDefaults() {
	c.Host = pick(c.Host, "0.0.0.0")
	if c.Port == 0 {
		c.Port = 8080
	}
	c.ReadTimeout = pick(c.ReadTimeout, "1m")
	c.WriteTimeout = pick(c.WriteTimeout, "5m")
	c.IdleTimeout = pick(c.IdleTimeout, "2m")
	c.ShutdownTimeout = pick(c.ShutdownTimeout, "30s")
}

func (c *ServerConfig) loadEnv() {
	if v := os.Getenv(EnvServerHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvServerPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}

	overrides := &ServerConfig{
		ReadTimeout:     os.Getenv(EnvServerReadTimeout),
		WriteTimeout:    os.Getenv(EnvServerWriteTimeout),
		IdleTimeout:     os.Getenv(EnvServerIdleTimeout),
		ShutdownTimeout: os.Getenv(EnvServerShutdownTimeout),
	}
	c.Merge(overrides)
}

func (c *ServerConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	checks := []struct {
		name  string
		value string
	}{
		{"read_timeout", c.ReadTimeout},
		{"write_timeout", c.WriteTimeout},
		{"idle_timeout", c.IdleTimeout},
		{"shutdown_timeout", c.ShutdownTimeout},
	}
	for _, check := range checks {
		if _, err := time.ParseDuration(check.value); err != nil {
			return fmt.Errorf("invalid %s: %w", check.name, err)
		}
	}
	return nil
}

// pick returns v, or fallback when v is empty.
func pick(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
