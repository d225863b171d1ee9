package breaker

import (
	"fmt"
	"time"
)

// Config configures a circuit breaker. It is immutable after construction.
type Config struct {
	// Name identifies the guarded dependency for logging and metrics.
	Name string `yaml:"name" mapstructure:"name"`

	// FailureThreshold is the number of connectivity failures that opens the
	// circuit.
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold" validate:"omitempty,min=1"`

	// RecoveryTimeout is how long the circuit stays open before a caller is
	// allowed through to test recovery.
	RecoveryTimeout time.Duration `yaml:"recovery_timeout" mapstructure:"recovery_timeout"`

	// RetryTimeout is the minimum interval between failed-probe retries.
	RetryTimeout time.Duration `yaml:"retry_timeout" mapstructure:"retry_timeout"`

	// HealthCheckInterval is the cadence of the background watchdog probe
	// while the dependency is unreachable.
	HealthCheckInterval time.Duration `yaml:"health_check_interval" mapstructure:"health_check_interval"`

	// BaseRetryDelay is the backoff delay after the first connectivity failure.
	BaseRetryDelay time.Duration `yaml:"base_retry_delay" mapstructure:"base_retry_delay"`

	// MaxRetryDelay caps the exponential backoff.
	MaxRetryDelay time.Duration `yaml:"max_retry_delay" mapstructure:"max_retry_delay"`

	// OnTransition is called after every state transition.
	OnTransition func(name string, from, to State) `yaml:"-" mapstructure:"-"`
}

// DefaultConfig returns sensible defaults for guarding an HTTP dependency.
func DefaultConfig() Config {
	return Config{
		Name:                "dependency",
		FailureThreshold:    3,
		RecoveryTimeout:     30 * time.Second,
		RetryTimeout:        5 * time.Second,
		HealthCheckInterval: 30 * time.Second,
		BaseRetryDelay:      time.Second,
		MaxRetryDelay:       30 * time.Second,
	}
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	def := DefaultConfig()
	if c.Name == "" {
		c.Name = def.Name
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = def.RecoveryTimeout
	}
	if c.RetryTimeout <= 0 {
		c.RetryTimeout = def.RetryTimeout
	}
	if c.HealthCheckInterval <= 0 {
		c.HealthCheckInterval = def.HealthCheckInterval
	}
	if c.BaseRetryDelay <= 0 {
		c.BaseRetryDelay = def.BaseRetryDelay
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = def.MaxRetryDelay
	}
}

// Validate checks that the configuration is consistent.
func (c *Config) Validate() error {
	if c.FailureThreshold <= 0 {
		return fmt.Errorf("breaker: failure_threshold must be positive")
	}
	if c.RecoveryTimeout <= 0 {
		return fmt.Errorf("breaker: recovery_timeout must be positive")
	}
	if c.RetryTimeout <= 0 {
		return fmt.Errorf("breaker: retry_timeout must be positive")
	}
	if c.HealthCheckInterval <= 0 {
		return fmt.Errorf("breaker: health_check_interval must be positive")
	}
	if c.BaseRetryDelay <= 0 {
		return fmt.Errorf("breaker: base_retry_delay must be positive")
	}
	if c.MaxRetryDelay < c.BaseRetryDelay {
		return fmt.Errorf("breaker: max_retry_delay must be >= base_retry_delay")
	}
	return nil
}
