package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewID(t *testing.T) {
	id := NewID()

	if id.IsZero() {
		t.Error("NewID() returned zero value")
	}
	if err := id.Validate(); err != nil {
		t.Errorf("NewID() generated invalid ID: %v", err)
	}
	if id == NewID() {
		t.Error("NewID() generated duplicate IDs")
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid UUID", input: "550e8400-e29b-41d4-a716-446655440000", wantErr: false},
		{name: "empty string", input: "", wantErr: true},
		{name: "not a UUID", input: "not-a-uuid", wantErr: true},
		{name: "partial UUID", input: "550e8400-e29b-41d4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseID(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseID(%q) expected error, got %q", tt.input, id)
				}
				return
			}
			if err != nil {
				t.Errorf("ParseID(%q) unexpected error: %v", tt.input, err)
			}
			if id.String() != tt.input {
				t.Errorf("ParseID(%q) = %q", tt.input, id)
			}
		})
	}
}

func TestIDJSONRoundTrip(t *testing.T) {
	id := NewID()

	data, err := json.Marshal(id)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var parsed ID
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if parsed != id {
		t.Errorf("round trip: got %q, want %q", parsed, id)
	}

	var zero ID
	data, err = json.Marshal(zero)
	if err != nil {
		t.Fatalf("Marshal of zero ID failed: %v", err)
	}
	if string(data) != "null" {
		t.Errorf("zero ID marshaled as %s, want null", data)
	}
}

func TestAgentStateValidate(t *testing.T) {
	for _, s := range []AgentState{AgentStateStarting, AgentStateRunning, AgentStatePaused, AgentStateStopped, AgentStateFailed} {
		if err := s.Validate(); err != nil {
			t.Errorf("state %q should be valid: %v", s, err)
		}
	}

	if err := AgentState("exploded").Validate(); err == nil {
		t.Error("expected error for unknown state")
	}
}

func TestAgentValidate(t *testing.T) {
	agent := &Agent{
		ID:        NewID(),
		Name:      "loop-1",
		State:     AgentStateRunning,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := agent.Validate(); err != nil {
		t.Errorf("valid agent rejected: %v", err)
	}

	agent.Name = ""
	if err := agent.Validate(); err == nil {
		t.Error("expected error for empty agent name")
	}
}

func TestWorkspaceValidate(t *testing.T) {
	ws := &Workspace{
		ID:        NewID(),
		Name:      "main",
		RootPath:  "/srv/workspaces/main",
		CreatedAt: time.Now(),
	}
	if err := ws.Validate(); err != nil {
		t.Errorf("valid workspace rejected: %v", err)
	}

	ws.RootPath = ""
	if err := ws.Validate(); err == nil {
		t.Error("expected error for empty root path")
	}
}
