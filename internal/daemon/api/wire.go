// Package api exposes the daemon's control surface over gRPC.
//
// The service is declared with a hand-written grpc.ServiceDesc and a JSON
// codec instead of protoc-generated stubs: the message set is small, the
// daemon and CLI live in the same module, and keeping the wire structs as
// plain Go types avoids a codegen step in the build.
package api

import (
	"time"

	"github.com/tOgg1/forge-sub005/internal/events"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "forge.v1.ControlService"

// Event is the wire shape of a bus event: string-encoded decimal id, integer
// kind, optional scoping ids, and one kind-matched payload variant.
type Event struct {
	ID          string    `json:"id"`
	Kind        int       `json:"kind"`
	Timestamp   time.Time `json:"timestamp"`
	AgentID     string    `json:"agent_id,omitempty"`
	WorkspaceID string    `json:"workspace_id,omitempty"`

	StateChange *StateChangePayload       `json:"state_change,omitempty"`
	Error       *ErrorPayload             `json:"error,omitempty"`
	PaneContent *PaneContentPayload       `json:"pane_content,omitempty"`
	Violation   *ResourceViolationPayload `json:"violation,omitempty"`
}

// StateChangePayload mirrors events.StateChangePayload on the wire.
type StateChangePayload struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}

// ErrorPayload mirrors events.ErrorPayload on the wire.
type ErrorPayload struct {
	Message string `json:"message"`
	Source  string `json:"source,omitempty"`
}

// PaneContentPayload mirrors events.PaneContentPayload on the wire.
type PaneContentPayload struct {
	PaneID  string `json:"pane_id"`
	Content string `json:"content,omitempty"`
	Lines   int    `json:"lines,omitempty"`
}

// ResourceViolationPayload mirrors events.ResourceViolationPayload on the wire.
type ResourceViolationPayload struct {
	Resource string  `json:"resource"`
	Limit    float64 `json:"limit"`
	Observed float64 `json:"observed"`
}

// SubscribeRequest opens an event stream. Cursor is the string-encoded id of
// the first event the client has not seen ("" or "0" means live only).
// Empty filter lists mean no restriction on that dimension.
type SubscribeRequest struct {
	Cursor       string   `json:"cursor,omitempty"`
	Kinds        []int    `json:"kinds,omitempty"`
	AgentIDs     []string `json:"agent_ids,omitempty"`
	WorkspaceIDs []string `json:"workspace_ids,omitempty"`
}

// PublishEventRequest carries an event from a remote producer. The id field
// of the embedded event is ignored; the bus assigns it.
type PublishEventRequest struct {
	Event *Event `json:"event"`
}

// PublishEventResponse returns the id the bus assigned.
type PublishEventResponse struct {
	ID string `json:"id"`
}

// StatusRequest asks for daemon status.
type StatusRequest struct{}

// StatusResponse describes the running daemon.
type StatusResponse struct {
	Running          bool      `json:"running"`
	PID              int       `json:"pid"`
	StartTime        time.Time `json:"start_time"`
	Uptime           string    `json:"uptime"`
	GRPCAddress      string    `json:"grpc_address"`
	AgentCount       int       `json:"agent_count"`
	WorkspaceCount   int       `json:"workspace_count"`
	SubscriberCount  int       `json:"subscriber_count"`
	StoredEventCount int       `json:"stored_event_count"`
}

// ListAgentsRequest asks for the fleet's registered agents.
type ListAgentsRequest struct {
	WorkspaceID string `json:"workspace_id,omitempty"`
}

// AgentInfo describes one registered agent.
type AgentInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	WorkspaceID string    `json:"workspace_id,omitempty"`
	State       string    `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListAgentsResponse lists registered agents.
type ListAgentsResponse struct {
	Agents []AgentInfo `json:"agents"`
}

// ListWorkspacesRequest asks for the registered workspaces.
type ListWorkspacesRequest struct{}

// WorkspaceInfo describes one registered workspace.
type WorkspaceInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	RootPath  string    `json:"root_path"`
	CreatedAt time.Time `json:"created_at"`
}

// ListWorkspacesResponse lists registered workspaces.
type ListWorkspacesResponse struct {
	Workspaces []WorkspaceInfo `json:"workspaces"`
}

// FromBusEvent converts a bus event to its wire shape.
func FromBusEvent(ev events.Event) Event {
	out := Event{
		ID:          ev.ID,
		Kind:        int(ev.Kind),
		Timestamp:   ev.Timestamp,
		AgentID:     ev.AgentID,
		WorkspaceID: ev.WorkspaceID,
	}

	if ev.StateChange != nil {
		out.StateChange = &StateChangePayload{
			From:   ev.StateChange.From,
			To:     ev.StateChange.To,
			Reason: ev.StateChange.Reason,
		}
	}
	if ev.Error != nil {
		out.Error = &ErrorPayload{
			Message: ev.Error.Message,
			Source:  ev.Error.Source,
		}
	}
	if ev.PaneContent != nil {
		out.PaneContent = &PaneContentPayload{
			PaneID:  ev.PaneContent.PaneID,
			Content: ev.PaneContent.Content,
			Lines:   ev.PaneContent.Lines,
		}
	}
	if ev.Violation != nil {
		out.Violation = &ResourceViolationPayload{
			Resource: ev.Violation.Resource,
			Limit:    ev.Violation.Limit,
			Observed: ev.Violation.Observed,
		}
	}

	return out
}

// ToBusEvent converts a wire event to the bus's event type. The id field is
// dropped; the bus assigns ids at publish time.
func ToBusEvent(ev Event) events.Event {
	out := events.Event{
		Kind:        events.Kind(ev.Kind),
		Timestamp:   ev.Timestamp,
		AgentID:     ev.AgentID,
		WorkspaceID: ev.WorkspaceID,
	}

	if ev.StateChange != nil {
		out.StateChange = &events.StateChangePayload{
			From:   ev.StateChange.From,
			To:     ev.StateChange.To,
			Reason: ev.StateChange.Reason,
		}
	}
	if ev.Error != nil {
		out.Error = &events.ErrorPayload{
			Message: ev.Error.Message,
			Source:  ev.Error.Source,
		}
	}
	if ev.PaneContent != nil {
		out.PaneContent = &events.PaneContentPayload{
			PaneID:  ev.PaneContent.PaneID,
			Content: ev.PaneContent.Content,
			Lines:   ev.PaneContent.Lines,
		}
	}
	if ev.Violation != nil {
		out.Violation = &events.ResourceViolationPayload{
			Resource: ev.Violation.Resource,
			Limit:    ev.Violation.Limit,
			Observed: ev.Violation.Observed,
		}
	}

	return out
}
