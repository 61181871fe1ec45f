package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tOgg1/forge-sub005/internal/config"
	"github.com/tOgg1/forge-sub005/internal/database"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize forge configuration and database",
	Long: `Initialize forge by creating:
- The forge home directory structure
- A default configuration file
- The fleet registry database with schema`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing configuration")
}

func runInit(cmd *cobra.Command, args []string) error {
	homeDir := resolveHomeDir()
	cmd.Printf("Initializing forge in %s...\n", homeDir)

	for _, dir := range []string{homeDir, filepath.Join(homeDir, "data")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configFile := resolveConfigFile(homeDir)
	configCreated, err := writeDefaultConfig(configFile, homeDir)
	if err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	cfg.Core.HomeDir = homeDir
	cfg.Database.Path = filepath.Join(homeDir, "data", "forge.db")

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create fleet registry database: %w", err)
	}
	defer db.Close()

	if err := database.NewMigrator(db).Migrate(context.Background()); err != nil {
		return fmt.Errorf("failed to migrate fleet registry database: %w", err)
	}

	cmd.Println("\nForge initialized successfully!")
	cmd.Printf("  Home directory: %s\n", homeDir)
	cmd.Printf("  Config created: %v\n", configCreated)
	cmd.Printf("  Database: %s\n", cfg.Database.Path)
	cmd.Println("\nStart the daemon with: forge daemon start")
	return nil
}

// writeDefaultConfig writes the default config file, refusing to overwrite
// an existing one unless --force is set. Returns whether a file was written.
func writeDefaultConfig(path, homeDir string) (bool, error) {
	if _, err := os.Stat(path); err == nil && !initForce {
		return false, nil
	}

	cfg := config.DefaultConfig()
	cfg.Core.HomeDir = homeDir
	cfg.Core.DataDir = filepath.Join(homeDir, "data")
	cfg.Database.Path = filepath.Join(homeDir, "data", "forge.db")
	cfg.Daemon.PIDFile = filepath.Join(homeDir, "forged.pid")

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return false, fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}
	return true, nil
}
