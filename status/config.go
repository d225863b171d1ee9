package status

import (
	"fmt"
	"time"
)

const (
	defaultHost         = "0.0.0.0"
	defaultPort         = 8090
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 15 * time.Second
	defaultIdleTimeout  = 120 * time.Second
)

// AuthConfig configures operator authentication.
type AuthConfig struct {
	// Enabled turns authentication on for operator endpoints. When off the
	// endpoints are open, intended for local development only.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// JWTSecret is the HS256 secret for operator JWTs.
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`

	// TokenHash is the bcrypt hash of a static operator token. Either this
	// or JWTSecret must be set when auth is enabled.
	TokenHash string `yaml:"token_hash" mapstructure:"token_hash"`
}

// Validate checks that the auth configuration is usable.
func (c *AuthConfig) Validate() error {
	if c.Enabled && c.JWTSecret == "" && c.TokenHash == "" {
		return fmt.Errorf("status: auth enabled but neither jwt_secret nor token_hash is set")
	}
	return nil
}

// Config configures the status server.
type Config struct {
	// Enabled turns the status server on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port" validate:"omitempty,min=1,max=65535"`

	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`

	// FlagFile persists the operator enable/disable toggle across restarts.
	// Empty disables persistence.
	FlagFile string `yaml:"flag_file" mapstructure:"flag_file"`

	Auth AuthConfig `yaml:"auth" mapstructure:"auth"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = defaultHost
	}
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("status: port must be in 1..65535 (got %d)", c.Port)
	}
	return c.Auth.Validate()
}
