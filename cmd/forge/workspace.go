package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Work with workspaces",
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered workspaces",
	RunE:  runWorkspaceList,
}

func init() {
	workspaceCmd.AddCommand(workspaceListCmd)
}

func runWorkspaceList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	c, err := connectToDaemon(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	workspaces, err := c.ListWorkspaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workspaces: %w", err)
	}

	if len(workspaces) == 0 {
		cmd.Println("No workspaces registered")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tROOT\tCREATED\tID")
	for _, ws := range workspaces {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			ws.Name,
			ws.RootPath,
			ws.CreatedAt.Local().Format(time.DateTime),
			ws.ID,
		)
	}
	return w.Flush()
}
