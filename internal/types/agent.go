package types

import (
	"fmt"
	"time"
)

// AgentState represents the lifecycle state of an agent loop.
type AgentState string

const (
	AgentStateStarting AgentState = "starting"
	AgentStateRunning  AgentState = "running"
	AgentStatePaused   AgentState = "paused"
	AgentStateStopped  AgentState = "stopped"
	AgentStateFailed   AgentState = "failed"
)

// String returns the string representation of the agent state.
func (s AgentState) String() string {
	return string(s)
}

// Validate checks that the state is one of the known lifecycle states.
func (s AgentState) Validate() error {
	switch s {
	case AgentStateStarting, AgentStateRunning, AgentStatePaused, AgentStateStopped, AgentStateFailed:
		return nil
	default:
		return fmt.Errorf("invalid agent state: %q", string(s))
	}
}

// Agent is a registered agent loop in the fleet registry.
type Agent struct {
	ID          ID         `json:"id"`
	Name        string     `json:"name"`
	WorkspaceID ID         `json:"workspace_id,omitempty"`
	State       AgentState `json:"state"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Validate checks the agent's required fields.
func (a *Agent) Validate() error {
	if err := a.ID.Validate(); err != nil {
		return fmt.Errorf("agent id: %w", err)
	}
	if a.Name == "" {
		return fmt.Errorf("agent name cannot be empty")
	}
	if err := a.State.Validate(); err != nil {
		return err
	}
	return nil
}

// Workspace is a directory tree one or more agent loops operate in.
type Workspace struct {
	ID        ID        `json:"id"`
	Name      string    `json:"name"`
	RootPath  string    `json:"root_path"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the workspace's required fields.
func (w *Workspace) Validate() error {
	if err := w.ID.Validate(); err != nil {
		return fmt.Errorf("workspace id: %w", err)
	}
	if w.Name == "" {
		return fmt.Errorf("workspace name cannot be empty")
	}
	if w.RootPath == "" {
		return fmt.Errorf("workspace root path cannot be empty")
	}
	return nil
}

// ResourceViolation records an agent exceeding one of its resource budgets.
type ResourceViolation struct {
	ID         ID        `json:"id"`
	AgentID    ID        `json:"agent_id"`
	Resource   string    `json:"resource"`
	Limit      float64   `json:"limit"`
	Observed   float64   `json:"observed"`
	OccurredAt time.Time `json:"occurred_at"`
}
