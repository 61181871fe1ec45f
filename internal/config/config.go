package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration for the forge control plane.
type Config struct {
	Core     CoreConfig    `mapstructure:"core" yaml:"core" validate:"required"`
	Database DBConfig      `mapstructure:"database" yaml:"database" validate:"required"`
	Daemon   DaemonConfig  `mapstructure:"daemon" yaml:"daemon" validate:"required"`
	Logging  LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// CoreConfig contains core application settings.
type CoreConfig struct {
	HomeDir string `mapstructure:"home_dir" yaml:"home_dir"`
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
	Debug   bool   `mapstructure:"debug" yaml:"debug"`
}

// DBConfig contains fleet registry database configuration.
type DBConfig struct {
	Path           string        `mapstructure:"path" yaml:"path"`
	MaxConnections int           `mapstructure:"max_connections" yaml:"max_connections" validate:"min=1,max=100"`
	BusyTimeout    time.Duration `mapstructure:"busy_timeout" yaml:"busy_timeout" validate:"min=100ms"`
}

// DaemonConfig contains configuration for the forge daemon process.
type DaemonConfig struct {
	// GRPCAddress is the address the daemon's control API listens on.
	GRPCAddress string `mapstructure:"grpc_address" yaml:"grpc_address" validate:"required,hostname_port"`

	// MaxStoredEvents is the event bus retention buffer capacity.
	MaxStoredEvents int `mapstructure:"max_stored_events" yaml:"max_stored_events" validate:"min=1"`

	// EventBufferSize is the default per-subscriber channel capacity.
	EventBufferSize int `mapstructure:"event_buffer_size" yaml:"event_buffer_size" validate:"min=1"`

	// PIDFile is the path of the daemon PID file. Empty uses
	// <home_dir>/forged.pid.
	PIDFile string `mapstructure:"pid_file" yaml:"pid_file,omitempty"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=text json"`
}

// DefaultHomeDir returns the default forge home directory (~/.forge).
func DefaultHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".forge"
	}
	return filepath.Join(home, ".forge")
}

// DefaultConfigPath returns the default config file path under homeDir.
func DefaultConfigPath(homeDir string) string {
	return filepath.Join(homeDir, "config.yaml")
}

// DefaultConfig returns a configuration with sensible defaults rooted at the
// default home directory.
func DefaultConfig() *Config {
	home := DefaultHomeDir()
	return &Config{
		Core: CoreConfig{
			HomeDir: home,
			DataDir: filepath.Join(home, "data"),
		},
		Database: DBConfig{
			Path:           filepath.Join(home, "data", "forge.db"),
			MaxConnections: 10,
			BusyTimeout:    5 * time.Second,
		},
		Daemon: DaemonConfig{
			GRPCAddress:     "localhost:50551",
			MaxStoredEvents: 1000,
			EventBufferSize: 100,
			PIDFile:         filepath.Join(home, "forged.pid"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
