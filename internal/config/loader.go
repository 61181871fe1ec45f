package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles loading configuration from files.
type Loader interface {
	Load(path string) (*Config, error)
	LoadWithDefaults(path string) (*Config, error)
}

// viperLoader implements Loader using Viper.
type viperLoader struct {
	validator Validator
}

// NewLoader creates a new Loader instance.
func NewLoader(validator Validator) Loader {
	return &viperLoader{validator: validator}
}

// Load loads configuration from the specified file path.
// Returns an error if the file doesn't exist or cannot be parsed.
func (l *viperLoader) Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	defaults := DefaultConfig()
	v.SetDefault("core.home_dir", defaults.Core.HomeDir)
	v.SetDefault("core.data_dir", defaults.Core.DataDir)
	v.SetDefault("database.path", defaults.Database.Path)
	v.SetDefault("database.max_connections", defaults.Database.MaxConnections)
	v.SetDefault("database.busy_timeout", defaults.Database.BusyTimeout)
	v.SetDefault("daemon.grpc_address", defaults.Daemon.GRPCAddress)
	v.SetDefault("daemon.max_stored_events", defaults.Daemon.MaxStoredEvents)
	v.SetDefault("daemon.event_buffer_size", defaults.Daemon.EventBufferSize)
	v.SetDefault("daemon.pid_file", defaults.Daemon.PIDFile)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	interpolatePaths(&cfg)

	if err := l.validator.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads configuration from the specified file path.
// If the file doesn't exist, returns the default configuration.
func (l *viperLoader) LoadWithDefaults(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := l.validator.Validate(cfg); err != nil {
			return nil, fmt.Errorf("default configuration validation failed: %w", err)
		}
		return cfg, nil
	}

	return l.Load(path)
}

// interpolatePaths applies ${VAR} environment variable interpolation to the
// path-valued fields of the configuration.
func interpolatePaths(cfg *Config) {
	cfg.Core.HomeDir = interpolateString(cfg.Core.HomeDir)
	cfg.Core.DataDir = interpolateString(cfg.Core.DataDir)
	cfg.Database.Path = interpolateString(cfg.Database.Path)
	cfg.Daemon.GRPCAddress = interpolateString(cfg.Daemon.GRPCAddress)
	cfg.Daemon.PIDFile = interpolateString(cfg.Daemon.PIDFile)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolateString replaces ${VAR_NAME} with environment variable values.
// Unset variables are left as-is.
func interpolateString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if envValue := os.Getenv(varName); envValue != "" {
			return envValue
		}
		return match
	})
}
