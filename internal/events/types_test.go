package events

import (
	"testing"
)

func TestNewFilter_EmptyListsMeanUnrestricted(t *testing.T) {
	f := NewFilter(nil, []string{}, nil)
	if f.Kinds != nil || f.AgentIDs != nil || f.WorkspaceIDs != nil {
		t.Errorf("expected all-nil filter, got %+v", f)
	}

	f = NewFilter([]Kind{KindError}, nil, nil)
	if len(f.Kinds) != 1 {
		t.Errorf("expected kinds set, got %+v", f)
	}
}

func TestFilter_Matches(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		event  Event
		want   bool
	}{
		{
			name:   "empty filter matches anything",
			filter: Filter{},
			event:  Event{Kind: KindError, AgentID: "a1", WorkspaceID: "ws1"},
			want:   true,
		},
		{
			name:   "kind member",
			filter: Filter{Kinds: []Kind{KindError, KindResourceViolation}},
			event:  Event{Kind: KindError},
			want:   true,
		},
		{
			name:   "kind not member",
			filter: Filter{Kinds: []Kind{KindAgentStateChanged}},
			event:  Event{Kind: KindError},
			want:   false,
		},
		{
			name:   "agent member",
			filter: Filter{AgentIDs: []string{"a1", "a2"}},
			event:  Event{Kind: KindError, AgentID: "a2"},
			want:   true,
		},
		{
			name:   "agent not member",
			filter: Filter{AgentIDs: []string{"a1"}},
			event:  Event{Kind: KindError, AgentID: "a9"},
			want:   false,
		},
		{
			name:   "unscoped agent passes agent set",
			filter: Filter{AgentIDs: []string{"a1"}},
			event:  Event{Kind: KindError},
			want:   true,
		},
		{
			name:   "workspace member",
			filter: Filter{WorkspaceIDs: []string{"ws1"}},
			event:  Event{Kind: KindError, WorkspaceID: "ws1"},
			want:   true,
		},
		{
			name:   "workspace not member",
			filter: Filter{WorkspaceIDs: []string{"ws1"}},
			event:  Event{Kind: KindError, WorkspaceID: "ws2"},
			want:   false,
		},
		{
			name:   "unscoped workspace passes workspace set",
			filter: Filter{WorkspaceIDs: []string{"ws1"}},
			event:  Event{Kind: KindError, AgentID: "a1"},
			want:   true,
		},
		{
			name: "dimensions combine with AND",
			filter: Filter{
				Kinds:    []Kind{KindError},
				AgentIDs: []string{"a1"},
			},
			event: Event{Kind: KindAgentStateChanged, AgentID: "a1"},
			want:  false,
		},
		{
			name: "all dimensions satisfied",
			filter: Filter{
				Kinds:        []Kind{KindResourceViolation},
				AgentIDs:     []string{"a1"},
				WorkspaceIDs: []string{"ws1"},
			},
			event: Event{Kind: KindResourceViolation, AgentID: "a1", WorkspaceID: "ws1"},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tt.event); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	if KindAgentStateChanged.String() != "agent.state_changed" {
		t.Errorf("unexpected name: %s", KindAgentStateChanged)
	}
	if Kind(99).String() != "unspecified" {
		t.Errorf("unexpected name for unknown kind: %s", Kind(99))
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{KindAgentStateChanged, KindError, KindPaneContentChanged, KindResourceViolation} {
		if !k.Valid() {
			t.Errorf("expected %s to be valid", k)
		}
	}
	if KindUnspecified.Valid() {
		t.Error("expected unspecified kind to be invalid")
	}
	if Kind(99).Valid() {
		t.Error("expected unknown kind to be invalid")
	}
}
