package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/archivist/pkg/middleware"
	"github.com/JaimeStill/archivist/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "ARCHIVIST_CORS_ENABLED",
	Origins:          "ARCHIVIST_CORS_ORIGINS",
	AllowedMethods:   "ARCHIVIST_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "ARCHIVIST_CORS_ALLOWED_HEADERS",
	AllowCredentials: "ARCHIVIST_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "ARCHIVIST_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "ARCHIVIST_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "ARCHIVIST_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds API routing, metrics exposure, CORS, and pagination settings.
type APIConfig struct {
	BasePath    string                `toml:"base_path"`
	MetricsPath string                `toml:"metrics_path"`
	CORS        middleware.CORSConfig `toml:"cors"`
	Pagination  pagination.Config     `toml:"pagination"`
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MetricsPath != "" {
		c.MetricsPath = overlay.MetricsPath
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("ARCHIVIST_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("ARCHIVIST_API_METRICS_PATH"); v != "" {
		c.MetricsPath = v
	}
}
