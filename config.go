package netguard

import (
	"fmt"

	"github.com/kbukum/netguard/breaker"
	"github.com/kbukum/netguard/config"
	"github.com/kbukum/netguard/httpclient"
	"github.com/kbukum/netguard/netmon"
	"github.com/kbukum/netguard/observability"
	"github.com/kbukum/netguard/status"
)

// Config is the full guard configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Breaker   breaker.Config       `yaml:"breaker" mapstructure:"breaker"`
	Client    httpclient.Config    `yaml:"client" mapstructure:"client"`
	Monitor   netmon.Config        `yaml:"monitor" mapstructure:"monitor"`
	Status    status.Config        `yaml:"status" mapstructure:"status"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// ApplyDefaults fills every section with its defaults. The breaker inherits
// the service name when it has none of its own, and telemetry inherits the
// service identity.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()

	if c.Breaker.Name == "" {
		c.Breaker.Name = c.Name
	}
	c.Breaker.ApplyDefaults()
	c.Client.ApplyDefaults()
	c.Monitor.ApplyDefaults()
	c.Status.ApplyDefaults()

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = c.Name
	}
	if c.Telemetry.ServiceVersion == "" {
		c.Telemetry.ServiceVersion = c.Version
	}
	if c.Telemetry.Environment == "" {
		c.Telemetry.Environment = c.Environment
	}
	c.Telemetry.ApplyDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Breaker.Validate(); err != nil {
		return fmt.Errorf("config.breaker: %w", err)
	}
	if err := c.Client.Validate(); err != nil {
		return fmt.Errorf("config.client: %w", err)
	}
	if err := c.Monitor.Validate(); err != nil {
		return fmt.Errorf("config.monitor: %w", err)
	}
	if err := c.Status.Validate(); err != nil {
		return fmt.Errorf("config.status: %w", err)
	}
	return nil
}
