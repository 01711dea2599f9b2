package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvClassificationMethod              = "ARCHIVIST_CLASSIFICATION_METHOD"
	EnvClassificationAutoApply           = "ARCHIVIST_CLASSIFICATION_AUTO_APPLY"
	EnvClassificationThreshold           = "ARCHIVIST_CLASSIFICATION_THRESHOLD"
	EnvClassificationDefaultAIConfidence = "ARCHIVIST_CLASSIFICATION_DEFAULT_AI_CONFIDENCE"
)

// ClassificationConfig selects the classification strategy and review policy.
type ClassificationConfig struct {
	Method              string   `toml:"method"`
	AutoApply           bool     `toml:"auto_apply"`
	Threshold           *float64 `toml:"threshold"`
	DefaultAIConfidence float64  `toml:"default_ai_confidence"`
}

// ThresholdValue returns the review threshold.
func (c *ClassificationConfig) ThresholdValue() float64 {
	if c.Threshold == nil {
		return 0.8
	}
	return *c.Threshold
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ClassificationConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. AutoApply always applies.
func (c *ClassificationConfig) Merge(overlay *ClassificationConfig) {
	if overlay.Method != "" {
		c.Method = overlay.Method
	}
	c.AutoApply = overlay.AutoApply
	if overlay.Threshold != nil {
		c.Threshold = overlay.Threshold
	}
	if overlay.DefaultAIConfidence != 0 {
		c.DefaultAIConfidence = overlay.DefaultAIConfidence
	}
}

func (c *ClassificationConfig) loadDefaults() {
	if c.Method == "" {
		c.Method = "auto"
	}
	if c.Threshold == nil {
		t := 0.8
		c.Threshold = &t
	}
	if c.DefaultAIConfidence == 0 {
		c.DefaultAIConfidence = 0.7
	}
}

func (c *ClassificationConfig) loadEnv() {
	if v := os.Getenv(EnvClassificationMethod); v != "" {
		c.Method = v
	}
	if v := os.Getenv(EnvClassificationAutoApply); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.AutoApply = b
		}
	}
	if v := os.Getenv(EnvClassificationThreshold); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Threshold = &f
		}
	}
	if v := os.Getenv(EnvClassificationDefaultAIConfidence); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.DefaultAIConfidence = f
		}
	}
}

func (c *ClassificationConfig) validate() error {
	switch c.Method {
	case "rules", "ai", "auto":
	default:
		return fmt.Errorf("invalid method %q: must be rules, ai, or auto", c.Method)
	}
	if t := c.ThresholdValue(); t < 0 || t > 1 {
		return fmt.Errorf("invalid threshold %v: must be within [0, 1]", t)
	}
	if c.DefaultAIConfidence <= 0 || c.DefaultAIConfidence > 1 {
		return fmt.Errorf("invalid default_ai_confidence %v: must be within (0, 1]", c.DefaultAIConfidence)
	}
	return nil
}
