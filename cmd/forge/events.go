package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tOgg1/forge-sub005/internal/daemon/api"
	"github.com/tOgg1/forge-sub005/internal/daemon/client"
	"github.com/tOgg1/forge-sub005/internal/events"
)

var (
	eventsCursor     string
	eventsKinds      []int
	eventsAgents     []string
	eventsWorkspaces []string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Work with the daemon's event stream",
}

var eventsFollowCmd = &cobra.Command{
	Use:   "follow",
	Short: "Follow the fleet event stream",
	Long: `Stream events from the daemon to the terminal.

With --cursor, stored events from that event id onward are replayed before
the live stream begins. Filters narrow the stream; an event must match every
filter that is set. Events without an agent or workspace scope always pass
the --agent and --workspace filters.

EXAMPLES:

  # Follow everything live
  $ forge events follow

  # Replay from event 42, then follow
  $ forge events follow --cursor 42

  # Only state changes and errors for one agent
  $ forge events follow --kind 1 --kind 2 --agent 7c9e6679-7425-40de-944b-e07fc1f90ae7`,
	RunE: runEventsFollow,
}

func init() {
	eventsFollowCmd.Flags().StringVar(&eventsCursor, "cursor", "", "Replay stored events starting from this event id")
	eventsFollowCmd.Flags().IntSliceVar(&eventsKinds, "kind", nil, "Only these event kinds (repeatable)")
	eventsFollowCmd.Flags().StringSliceVar(&eventsAgents, "agent", nil, "Only events for these agent ids (repeatable)")
	eventsFollowCmd.Flags().StringSliceVar(&eventsWorkspaces, "workspace", nil, "Only events for these workspace ids (repeatable)")

	eventsCmd.AddCommand(eventsFollowCmd)
}

func runEventsFollow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	c, err := connectToDaemon(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	stream, err := c.Subscribe(ctx, client.SubscribeOptions{
		Cursor:       eventsCursor,
		Kinds:        eventsKinds,
		AgentIDs:     eventsAgents,
		WorkspaceIDs: eventsWorkspaces,
	})
	if err != nil {
		return err
	}

	if !globalFlags.IsQuiet() {
		cmd.PrintErrln("Following fleet events (Ctrl+C to stop)...")
	}

	for {
		ev, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			if status.Code(err) == codes.InvalidArgument {
				return fmt.Errorf("invalid subscription: %v", status.Convert(err).Message())
			}
			return fmt.Errorf("event stream failed: %w", err)
		}
		printEvent(cmd, ev)
	}
}

func printEvent(cmd *cobra.Command, ev *api.Event) {
	ts := ev.Timestamp.Local().Format(time.TimeOnly)
	kind := events.Kind(ev.Kind)

	header := fmt.Sprintf("%s  #%s  %s", ts, ev.ID, kindColor(kind).Sprint(kind.String()))
	cmd.Println(header)

	if ev.AgentID != "" {
		cmd.Printf("  agent: %s\n", ev.AgentID)
	}
	if ev.WorkspaceID != "" {
		cmd.Printf("  workspace: %s\n", ev.WorkspaceID)
	}

	switch {
	case ev.StateChange != nil:
		cmd.Printf("  %s -> %s", ev.StateChange.From, ev.StateChange.To)
		if ev.StateChange.Reason != "" {
			cmd.Printf(" (%s)", ev.StateChange.Reason)
		}
		cmd.Println()
	case ev.Error != nil:
		cmd.Printf("  [%s] %s\n", ev.Error.Source, ev.Error.Message)
	case ev.PaneContent != nil:
		cmd.Printf("  pane %s updated (%d lines)\n", ev.PaneContent.PaneID, ev.PaneContent.Lines)
	case ev.Violation != nil:
		cmd.Printf("  %s limit %.0f exceeded (observed %.0f)\n",
			ev.Violation.Resource, ev.Violation.Limit, ev.Violation.Observed)
	}
}

func kindColor(kind events.Kind) *color.Color {
	switch kind {
	case events.KindAgentStateChanged:
		return color.New(color.FgGreen)
	case events.KindError:
		return color.New(color.FgRed, color.Bold)
	case events.KindPaneContentChanged:
		return color.New(color.FgCyan)
	case events.KindResourceViolation:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgWhite)
	}
}
