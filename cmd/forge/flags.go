package main

import (
	"github.com/spf13/cobra"
)

// GlobalFlags holds global flags available to all commands.
type GlobalFlags struct {
	Verbose    bool
	Quiet      bool
	ConfigFile string
	HomeDir    string
}

var globalFlags = &GlobalFlags{}

// RegisterGlobalFlags registers persistent flags on the root command.
func RegisterGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().StringVar(&globalFlags.ConfigFile, "config", "", "Path to config file (default: $FORGE_HOME/config.yaml)")
	cmd.PersistentFlags().StringVar(&globalFlags.HomeDir, "home", "", "Forge home directory (default: ~/.forge)")
}

// IsVerbose reports whether verbose mode is enabled.
func (f *GlobalFlags) IsVerbose() bool {
	return f.Verbose && !f.Quiet
}

// IsQuiet reports whether quiet mode is enabled.
func (f *GlobalFlags) IsQuiet() bool {
	return f.Quiet
}
