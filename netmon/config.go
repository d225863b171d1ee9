package netmon

import (
	"fmt"
	"time"
)

const (
	defaultCheckInterval = 15 * time.Second
	defaultCheckAddress  = "1.1.1.1:443"
	defaultDialTimeout   = 3 * time.Second
)

// Config configures the network monitor.
type Config struct {
	// Enabled turns on connectivity polling. Manual Set calls work either way.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// CheckInterval is how often the monitor polls. Defaults to 15s.
	CheckInterval time.Duration `yaml:"check_interval" mapstructure:"check_interval"`

	// CheckAddress is the host:port dialed to probe connectivity.
	// Defaults to 1.1.1.1:443.
	CheckAddress string `yaml:"check_address" mapstructure:"check_address"`

	// DialTimeout bounds a single connectivity check. Defaults to 3s.
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.CheckInterval <= 0 {
		c.CheckInterval = defaultCheckInterval
	}
	if c.CheckAddress == "" {
		c.CheckAddress = defaultCheckAddress
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.CheckInterval <= 0 {
		return fmt.Errorf("netmon: check_interval must be positive")
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("netmon: dial_timeout must be positive")
	}
	if c.CheckAddress == "" {
		return fmt.Errorf("netmon: check_address is required")
	}
	return nil
}
