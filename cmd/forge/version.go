package main

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "0.1.0-dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the forge version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("forge %s\n", Version)
	},
}
