package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tOgg1/forge-sub005/internal/config"
	"github.com/tOgg1/forge-sub005/internal/daemon/client"
)

// connectToDaemon connects to the control API using the configured gRPC
// address, with a clear error when the daemon is not reachable.
func connectToDaemon(ctx context.Context) (*client.Client, error) {
	addr := daemonAddress()

	c, err := client.Connect(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to forge daemon at %s: %w\n\n"+
			"Is the daemon running? Start it with:\n"+
			"  forge daemon start", addr, err)
	}
	return c, nil
}

// daemonAddress resolves the control API address from the environment, the
// config file, or the built-in default.
func daemonAddress() string {
	if envAddr := os.Getenv("FORGE_DAEMON_GRPC_ADDR"); envAddr != "" {
		return envAddr
	}

	homeDir := resolveHomeDir()
	configFile := resolveConfigFile(homeDir)
	if _, err := os.Stat(configFile); err == nil {
		loader := config.NewLoader(config.NewValidator())
		if cfg, err := loader.LoadWithDefaults(configFile); err == nil {
			return cfg.Daemon.GRPCAddress
		}
	}

	return config.DefaultConfig().Daemon.GRPCAddress
}
