package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tOgg1/forge-sub005/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "Forge - fleet manager for autonomous agent loops",
	Long: `Forge manages a fleet of autonomous agent loops across workspaces.

The forge daemon owns the event bus and the fleet registry. CLI commands
connect to the running daemon over gRPC. Start the daemon with
'forge daemon start', then use 'forge events follow' to watch the fleet.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

// resolveHomeDir picks the forge home directory from flags, environment, or
// the default ~/.forge.
func resolveHomeDir() string {
	if globalFlags.HomeDir != "" {
		return globalFlags.HomeDir
	}
	if env := os.Getenv("FORGE_HOME"); env != "" {
		return env
	}
	return config.DefaultHomeDir()
}

// resolveConfigFile picks the config file path from flags or the default
// location under the home directory.
func resolveConfigFile(homeDir string) string {
	if globalFlags.ConfigFile != "" {
		return globalFlags.ConfigFile
	}
	return config.DefaultConfigPath(homeDir)
}

func init() {
	RegisterGlobalFlags(rootCmd)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(workspaceCmd)
	rootCmd.AddCommand(versionCmd)
}
