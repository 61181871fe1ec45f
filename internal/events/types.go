package events

import (
	"time"
)

// Kind identifies the category and nature of an event on the control-plane
// bus. Kinds are integer-backed so they serialize compactly on the wire and
// map directly onto the streaming API's event taxonomy.
type Kind int

const (
	// KindUnspecified is the zero value and never appears on published events.
	KindUnspecified Kind = iota

	// KindAgentStateChanged marks an agent loop lifecycle transition.
	KindAgentStateChanged

	// KindError marks an error raised by an agent loop or daemon subsystem.
	KindError

	// KindPaneContentChanged marks new output captured from an agent's
	// terminal pane.
	KindPaneContentChanged

	// KindResourceViolation marks an agent exceeding a resource budget.
	KindResourceViolation
)

// Valid reports whether k is one of the published event kinds.
// KindUnspecified is not valid.
func (k Kind) Valid() bool {
	return k >= KindAgentStateChanged && k <= KindResourceViolation
}

// String returns a stable name for the kind, used in logs and CLI output.
func (k Kind) String() string {
	switch k {
	case KindAgentStateChanged:
		return "agent.state_changed"
	case KindError:
		return "error"
	case KindPaneContentChanged:
		return "pane.content_changed"
	case KindResourceViolation:
		return "resource.violation"
	default:
		return "unspecified"
	}
}

// Event is an immutable record distributed by the bus.
//
// ID is a string-encoded non-negative integer assigned by the bus at publish
// time; it is strictly increasing per daemon process and never reused.
// AgentID and WorkspaceID are optional scoping fields: an empty value means
// the event is global for that dimension.
//
// Exactly one payload pointer is set, and it must match Kind. Consumers
// receive the Event by value and must treat payloads as read-only.
type Event struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Timestamp   time.Time `json:"timestamp"`
	AgentID     string    `json:"agent_id,omitempty"`
	WorkspaceID string    `json:"workspace_id,omitempty"`

	// Kind-specific payload variants. Exactly one is non-nil.
	StateChange *StateChangePayload       `json:"state_change,omitempty"`
	Error       *ErrorPayload             `json:"error,omitempty"`
	PaneContent *PaneContentPayload       `json:"pane_content,omitempty"`
	Violation   *ResourceViolationPayload `json:"violation,omitempty"`
}

// StateChangePayload contains data for agent.state_changed events.
type StateChangePayload struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}

// ErrorPayload contains data for error events.
type ErrorPayload struct {
	Message string `json:"message"`
	Source  string `json:"source,omitempty"`
}

// PaneContentPayload contains data for pane.content_changed events.
type PaneContentPayload struct {
	PaneID  string `json:"pane_id"`
	Content string `json:"content,omitempty"`
	Lines   int    `json:"lines,omitempty"`
}

// ResourceViolationPayload contains data for resource.violation events.
type ResourceViolationPayload struct {
	Resource string  `json:"resource"`
	Limit    float64 `json:"limit"`
	Observed float64 `json:"observed"`
}

// Filter defines per-subscriber criteria for event delivery. The three
// dimensions are independent inclusion sets combined with AND logic; a nil
// set means no restriction on that dimension.
//
// Agent and workspace sets deliberately do not reject unscoped events: an
// event with an empty AgentID or WorkspaceID is global for that dimension
// and passes any inclusion set. A filter therefore means "at least these
// scopes, plus anything unscoped", not "only these scopes".
type Filter struct {
	Kinds        []Kind   `json:"kinds,omitempty"`
	AgentIDs     []string `json:"agent_ids,omitempty"`
	WorkspaceIDs []string `json:"workspace_ids,omitempty"`
}

// NewFilter builds a Filter from raw request lists. Empty input lists become
// nil sets, i.e. unrestricted dimensions, so a Filter's sets are non-empty
// whenever present.
func NewFilter(kinds []Kind, agentIDs, workspaceIDs []string) Filter {
	var f Filter
	if len(kinds) > 0 {
		f.Kinds = kinds
	}
	if len(agentIDs) > 0 {
		f.AgentIDs = agentIDs
	}
	if len(workspaceIDs) > 0 {
		f.WorkspaceIDs = workspaceIDs
	}
	return f
}

// Matches determines if the given event satisfies this filter.
func (f *Filter) Matches(event Event) bool {
	if len(f.Kinds) > 0 {
		matched := false
		for _, k := range f.Kinds {
			if event.Kind == k {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(f.AgentIDs) > 0 && event.AgentID != "" {
		matched := false
		for _, id := range f.AgentIDs {
			if event.AgentID == id {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(f.WorkspaceIDs) > 0 && event.WorkspaceID != "" {
		matched := false
		for _, id := range f.WorkspaceIDs {
			if event.WorkspaceID == id {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}
