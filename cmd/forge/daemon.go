package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tOgg1/forge-sub005/internal/config"
	"github.com/tOgg1/forge-sub005/internal/daemon"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the forge daemon",
	Long: `Manage the forge daemon lifecycle - start, stop, and check status.

The daemon runs forge's long-running services: the event bus, the fleet
registry database, and the gRPC control API. CLI commands connect to the
daemon instead of opening the registry themselves.

USAGE SCENARIOS:

1. Local development:
   $ forge daemon start &
   $ forge agent list
   $ forge events follow
   $ forge daemon stop

2. Container deployment (Dockerfile):
   CMD ["forge", "daemon", "start"]

3. System service (systemd):
   ExecStart=/usr/bin/forge daemon start`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the forge daemon",
	Long: `Start the forge daemon (runs in foreground until stopped).

The daemon runs in the foreground and blocks until stopped with Ctrl+C or
SIGTERM, which makes it suitable for containers and systemd services. Use
shell job control to run it in the background during development.`,
	RunE: runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the forge daemon",
	Long: `Stop the running forge daemon gracefully.

Sends SIGTERM to the daemon process. The daemon stops accepting new
connections, closes event subscriptions, and cleans up its PID file.
Safe to run even if the daemon is not running; stale PID files left by a
crashed daemon are cleaned up.`,
	RunE: runDaemonStop,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long: `Display the status of the forge daemon.

Connects to the daemon's control API and prints process information, bus
statistics, and fleet counts. Returns a non-zero exit code if the daemon
is not running.`,
	RunE: runDaemonStatus,
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	homeDir := resolveHomeDir()
	configFile := resolveConfigFile(homeDir)

	if _, err := os.Stat(configFile); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("config file not found at %s (run 'forge init' to create)", configFile)
		}
		return fmt.Errorf("failed to access config file: %w", err)
	}

	loader := config.NewLoader(config.NewValidator())
	cfg, err := loader.LoadWithDefaults(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	forceDebug := globalFlags.IsVerbose() || cfg.Core.Debug
	slog.SetDefault(slog.New(cfg.Logging.Handler(os.Stdout, forceDebug)))

	d, err := daemon.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	return d.Start(cmd.Context())
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	pidFile, err := resolvePIDFile()
	if err != nil {
		return err
	}

	pid, err := daemon.ReadPIDFile(pidFile)
	if err != nil {
		return fmt.Errorf("failed to read PID file: %w", err)
	}
	if pid == 0 {
		cmd.Println("Daemon not running")
		return nil
	}

	running, _, err := daemon.CheckPIDFile(pidFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if !running {
		cmd.Printf("Daemon not running (stale PID file with PID %d)\n", pid)
		daemon.RemovePIDFile(pidFile)
		cmd.Println("Cleanup complete")
		return nil
	}

	if globalFlags.IsVerbose() {
		cmd.Printf("Sending SIGTERM to daemon (PID %d)...\n", pid)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find daemon process: %w", err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM to daemon: %w", err)
	}

	// Wait for the daemon to exit, up to 30 seconds.
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		stillRunning, _, err := daemon.CheckPIDFile(pidFile)
		if err != nil || !stillRunning {
			cmd.Println("Daemon stopped")
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}

	return fmt.Errorf("daemon did not stop within 30 seconds (PID %d)", pid)
}

// resolvePIDFile determines the daemon PID file path the same way the start
// path does: the config's daemon.pid_file when set, otherwise
// <home_dir>/forged.pid. A missing config file falls back to the default
// location rather than failing, so stop works after the config is removed.
func resolvePIDFile() (string, error) {
	homeDir := resolveHomeDir()
	configFile := resolveConfigFile(homeDir)

	if _, err := os.Stat(configFile); err != nil {
		if os.IsNotExist(err) {
			return filepath.Join(homeDir, "forged.pid"), nil
		}
		return "", fmt.Errorf("failed to access config file: %w", err)
	}

	loader := config.NewLoader(config.NewValidator())
	cfg, err := loader.LoadWithDefaults(configFile)
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Daemon.PIDFile != "" {
		return cfg.Daemon.PIDFile, nil
	}
	if cfg.Core.HomeDir != "" {
		homeDir = cfg.Core.HomeDir
	}
	return filepath.Join(homeDir, "forged.pid"), nil
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	c, err := connectToDaemon(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	status, err := c.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get daemon status: %w", err)
	}

	cmd.Println("Forge daemon status:")
	cmd.Printf("  Running:       %v\n", status.Running)
	cmd.Printf("  PID:           %d\n", status.PID)
	cmd.Printf("  Uptime:        %s\n", status.Uptime)
	cmd.Printf("  gRPC address:  %s\n", status.GRPCAddress)
	cmd.Printf("  Agents:        %d\n", status.AgentCount)
	cmd.Printf("  Workspaces:    %d\n", status.WorkspaceCount)
	cmd.Printf("  Subscribers:   %d\n", status.SubscriberCount)
	cmd.Printf("  Stored events: %d\n", status.StoredEventCount)
	return nil
}
