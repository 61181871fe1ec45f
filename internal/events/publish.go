package events

import (
	"context"
	"time"
)

// Typed publish helpers. Producers use these instead of assembling the
// payload union by hand, which keeps the "payload variant matches kind"
// invariant in one place.

// PublishStateChange publishes an agent.state_changed event.
func (b *Bus) PublishStateChange(ctx context.Context, agentID, workspaceID, from, to, reason string) (Event, error) {
	return b.Publish(ctx, Event{
		Kind:        KindAgentStateChanged,
		Timestamp:   time.Now(),
		AgentID:     agentID,
		WorkspaceID: workspaceID,
		StateChange: &StateChangePayload{
			From:   from,
			To:     to,
			Reason: reason,
		},
	})
}

// PublishError publishes an error event. An empty agentID marks a daemon-level
// error not scoped to any agent.
func (b *Bus) PublishError(ctx context.Context, agentID, workspaceID, source, message string) (Event, error) {
	return b.Publish(ctx, Event{
		Kind:        KindError,
		Timestamp:   time.Now(),
		AgentID:     agentID,
		WorkspaceID: workspaceID,
		Error: &ErrorPayload{
			Message: message,
			Source:  source,
		},
	})
}

// PublishPaneContent publishes a pane.content_changed event.
func (b *Bus) PublishPaneContent(ctx context.Context, agentID, workspaceID, paneID, content string, lines int) (Event, error) {
	return b.Publish(ctx, Event{
		Kind:        KindPaneContentChanged,
		Timestamp:   time.Now(),
		AgentID:     agentID,
		WorkspaceID: workspaceID,
		PaneContent: &PaneContentPayload{
			PaneID:  paneID,
			Content: content,
			Lines:   lines,
		},
	})
}

// PublishResourceViolation publishes a resource.violation event.
func (b *Bus) PublishResourceViolation(ctx context.Context, agentID, workspaceID, resource string, limit, observed float64) (Event, error) {
	return b.Publish(ctx, Event{
		Kind:        KindResourceViolation,
		Timestamp:   time.Now(),
		AgentID:     agentID,
		WorkspaceID: workspaceID,
		Violation: &ResourceViolationPayload{
			Resource: resource,
			Limit:    limit,
			Observed: observed,
		},
	})
}
