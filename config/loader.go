package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/netguard/logger"
)

// FileSystem abstracts file lookups so the loader can be tested without
// touching the real filesystem.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// osFileSystem implements FileSystem using real file operations.
type osFileSystem struct{}

func (osFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (osFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Options holds loader dependencies and optional file overrides.
type Options struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
}

// Option customizes a Load call.
type Option func(*Options)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) Option {
	return func(o *Options) { o.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) Option {
	return func(o *Options) { o.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) Option {
	return func(o *Options) { o.EnvFile = path }
}

// Load populates cfg for the named service. It reads the first config file
// it finds (or the explicit override), loads a .env file when present, binds
// environment variables, and unmarshals the merged result. A missing config
// file is not an error, environment variables alone can configure a service.
func Load(serviceName string, cfg any, opts ...Option) error {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if o.FileSystem == nil {
		o.FileSystem = osFileSystem{}
	}

	configFile := o.ConfigFile
	if configFile == "" {
		configFile = findConfigFile(o.FileSystem, serviceName)
	}
	envFile := o.EnvFile
	if envFile == "" {
		envFile = findEnvFile(o.FileSystem, serviceName)
	}

	v := viper.New()

	if configFile != "" && o.FileSystem.Exists(configFile) {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			logger.Warn("failed to read config file", logger.Fields(
				"file", configFile, logger.FieldError, err.Error(),
			))
		}
	}

	// .env feeds the process environment before env binding runs.
	if envFile != "" && o.FileSystem.Exists(envFile) {
		if err := o.FileSystem.LoadEnv(envFile); err != nil {
			logger.Warn("failed to load .env file", logger.Fields(
				"file", envFile, logger.FieldError, err.Error(),
			))
		}
	}

	v.AutomaticEnv()
	bindEnvironment(v)

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: unmarshal for service %s: %w", serviceName, err)
	}
	return nil
}

// findConfigFile searches standard locations for a config.yml.
func findConfigFile(fs FileSystem, serviceName string) string {
	candidates := []string{
		fmt.Sprintf("./cmd/%s/config.yml", serviceName),
		fmt.Sprintf("./config/%s.yml", serviceName),
		"./config/config.yml",
		"./config.yml",
	}
	for _, path := range candidates {
		if fs.Exists(path) {
			return path
		}
	}
	return ""
}

// findEnvFile searches standard locations for a .env file.
func findEnvFile(fs FileSystem, serviceName string) string {
	candidates := []string{
		fmt.Sprintf(".env.%s", serviceName),
		".env",
		"config/.env",
	}
	for _, path := range candidates {
		if fs.Exists(path) {
			return path
		}
	}
	return ""
}

// bindEnvironment maps every environment variable onto the viper key space.
// BREAKER_FAILURE_THRESHOLD becomes breaker.failure_threshold as well as the
// fully dotted breaker.failure.threshold, so both flat and nested config
// struct shapes pick it up.
func bindEnvironment(v *viper.Viper) {
	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		for _, variant := range keyVariants(key) {
			v.Set(variant, value)
		}
	}
}

// keyVariants expands an UPPER_SNAKE env key into the viper key shapes a
// nested config struct may use.
func keyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	if len(parts) == 1 {
		return []string{lower}
	}

	variants := []string{lower, strings.ReplaceAll(lower, "_", ".")}
	// Split at each underscore once: prefix becomes nesting, the rest stays flat.
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
	}

	seen := make(map[string]bool, len(variants))
	out := variants[:0]
	for _, k := range variants {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
