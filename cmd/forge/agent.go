package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var agentListWorkspace string

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Work with fleet agents",
}

var agentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered agents",
	Long: `List the agents registered in the fleet.

Use --workspace to scope the listing to a single workspace.`,
	RunE: runAgentList,
}

func init() {
	agentListCmd.Flags().StringVar(&agentListWorkspace, "workspace", "", "Only agents in this workspace id")
	agentCmd.AddCommand(agentListCmd)
}

func runAgentList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	c, err := connectToDaemon(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	agents, err := c.ListAgents(ctx, agentListWorkspace)
	if err != nil {
		return fmt.Errorf("failed to list agents: %w", err)
	}

	if len(agents) == 0 {
		cmd.Println("No agents registered")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATE\tWORKSPACE\tUPDATED\tID")
	for _, a := range agents {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			a.Name,
			stateColor(a.State).Sprint(a.State),
			a.WorkspaceID,
			a.UpdatedAt.Local().Format(time.DateTime),
			a.ID,
		)
	}
	return w.Flush()
}

func stateColor(state string) *color.Color {
	switch state {
	case "running":
		return color.New(color.FgGreen)
	case "paused":
		return color.New(color.FgYellow)
	case "failed":
		return color.New(color.FgRed, color.Bold)
	case "stopped":
		return color.New(color.FgWhite)
	default:
		return color.New(color.FgCyan)
	}
}
