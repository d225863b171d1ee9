package httpclient

import (
	"fmt"
	"time"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultHealthPath   = "/health"
	defaultProbeTimeout = 5 * time.Second
)

// Config configures the HTTP client.
type Config struct {
	// BaseURL is the base URL prepended to all request paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`

	// Timeout is the default request timeout. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// HealthPath is the path probed by the recovery prober. Defaults to /health.
	HealthPath string `yaml:"health_path" mapstructure:"health_path"`

	// ProbeTimeout bounds a single liveness probe. Defaults to 5s.
	ProbeTimeout time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.HealthPath == "" {
		c.HealthPath = defaultHealthPath
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = defaultProbeTimeout
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("httpclient: base_url is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("httpclient: probe_timeout must be positive")
	}
	return nil
}
