package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	status_grpc "google.golang.org/grpc/status"

	"github.com/tOgg1/forge-sub005/internal/database"
	"github.com/tOgg1/forge-sub005/internal/events"
)

// Server implements ControlServer on top of the daemon.
//
// It translates wire messages to bus and registry calls and maps internal
// errors to gRPC status codes. It acts as a facade that delegates to the
// daemon's internal services.
type Server struct {
	daemon DaemonInterface
	logger *slog.Logger
}

// DaemonInterface defines the interface that the daemon must implement
// for the gRPC server to delegate operations.
//
// This abstraction allows the server to work with the daemon without
// creating circular dependencies.
type DaemonInterface interface {
	// Status returns the current daemon status.
	Status() (DaemonStatus, error)

	// ListAgents returns registered agents, optionally scoped to one workspace.
	ListAgents(ctx context.Context, workspaceID string) ([]AgentInfoInternal, error)

	// ListWorkspaces returns all registered workspaces.
	ListWorkspaces(ctx context.Context) ([]WorkspaceInfoInternal, error)

	// PublishEvent publishes an event on the bus and returns it with its
	// assigned id and timestamp.
	PublishEvent(ctx context.Context, event events.Event) (events.Event, error)

	// Subscribe registers an event subscription. The returned subscription
	// carries the replay batch and the live channel.
	Subscribe(ctx context.Context, req events.SubscribeRequest) (*events.Subscription, error)
}

// DaemonStatus represents daemon status information.
type DaemonStatus struct {
	Running         bool
	PID             int
	StartTime       time.Time
	Uptime          string
	GRPCAddress     string
	AgentCount      int
	WorkspaceCount  int
	SubscriberCount int
	StoredEvents    int
}

// AgentInfoInternal represents agent information for internal daemon
// operations, separate from the wire AgentInfo.
type AgentInfoInternal struct {
	ID          string
	Name        string
	WorkspaceID string
	State       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WorkspaceInfoInternal represents workspace information for internal daemon
// operations, separate from the wire WorkspaceInfo.
type WorkspaceInfoInternal struct {
	ID        string
	Name      string
	RootPath  string
	CreatedAt time.Time
}

// NewServer creates a gRPC control server that exposes daemon functionality.
func NewServer(daemon DaemonInterface, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		daemon: daemon,
		logger: logger.With("component", "control-grpc"),
	}
}

// Status returns the current daemon status.
func (s *Server) Status(ctx context.Context, req *StatusRequest) (*StatusResponse, error) {
	s.logger.Debug("status request received")

	st, err := s.daemon.Status()
	if err != nil {
		s.logger.Error("failed to get daemon status", "error", err)
		return nil, status_grpc.Errorf(codes.Internal, "failed to get daemon status: %v", err)
	}

	return &StatusResponse{
		Running:          st.Running,
		PID:              st.PID,
		StartTime:        st.StartTime,
		Uptime:           st.Uptime,
		GRPCAddress:      st.GRPCAddress,
		AgentCount:       st.AgentCount,
		WorkspaceCount:   st.WorkspaceCount,
		SubscriberCount:  st.SubscriberCount,
		StoredEventCount: st.StoredEvents,
	}, nil
}

// ListAgents returns the fleet's registered agents.
func (s *Server) ListAgents(ctx context.Context, req *ListAgentsRequest) (*ListAgentsResponse, error) {
	agents, err := s.daemon.ListAgents(ctx, req.WorkspaceID)
	if err != nil {
		s.logger.Error("failed to list agents", "error", err)
		return nil, mapError(err, "failed to list agents")
	}

	resp := &ListAgentsResponse{Agents: make([]AgentInfo, 0, len(agents))}
	for _, a := range agents {
		resp.Agents = append(resp.Agents, AgentInfo{
			ID:          a.ID,
			Name:        a.Name,
			WorkspaceID: a.WorkspaceID,
			State:       a.State,
			CreatedAt:   a.CreatedAt,
			UpdatedAt:   a.UpdatedAt,
		})
	}
	return resp, nil
}

// ListWorkspaces returns the registered workspaces.
func (s *Server) ListWorkspaces(ctx context.Context, req *ListWorkspacesRequest) (*ListWorkspacesResponse, error) {
	workspaces, err := s.daemon.ListWorkspaces(ctx)
	if err != nil {
		s.logger.Error("failed to list workspaces", "error", err)
		return nil, mapError(err, "failed to list workspaces")
	}

	resp := &ListWorkspacesResponse{Workspaces: make([]WorkspaceInfo, 0, len(workspaces))}
	for _, w := range workspaces {
		resp.Workspaces = append(resp.Workspaces, WorkspaceInfo{
			ID:        w.ID,
			Name:      w.Name,
			RootPath:  w.RootPath,
			CreatedAt: w.CreatedAt,
		})
	}
	return resp, nil
}

// PublishEvent publishes an event from a remote producer onto the bus.
func (s *Server) PublishEvent(ctx context.Context, req *PublishEventRequest) (*PublishEventResponse, error) {
	if req.Event == nil {
		return nil, status_grpc.Error(codes.InvalidArgument, "event is required")
	}
	if err := validateEvent(req.Event); err != nil {
		return nil, err
	}

	published, err := s.daemon.PublishEvent(ctx, ToBusEvent(*req.Event))
	if err != nil {
		s.logger.Error("failed to publish event", "error", err)
		return nil, mapError(err, "failed to publish event")
	}

	return &PublishEventResponse{ID: published.ID}, nil
}

// Subscribe streams replayed events first, then live events until the client
// disconnects or the daemon shuts down.
func (s *Server) Subscribe(req *SubscribeRequest, stream ControlSubscribeServer) error {
	ctx := stream.Context()

	s.logger.Info("subscribe request received",
		"cursor", req.Cursor,
		"kinds", req.Kinds,
		"agent_ids", req.AgentIDs,
		"workspace_ids", req.WorkspaceIDs,
	)

	sub, err := s.daemon.Subscribe(ctx, events.SubscribeRequest{
		Cursor:       req.Cursor,
		Kinds:        toKinds(req.Kinds),
		AgentIDs:     req.AgentIDs,
		WorkspaceIDs: req.WorkspaceIDs,
	})
	if err != nil {
		s.logger.Error("failed to subscribe", "error", err)
		return mapError(err, "failed to subscribe")
	}
	defer sub.Cancel()

	for _, ev := range sub.Replay {
		wireEvent := FromBusEvent(ev)
		if err := stream.Send(&wireEvent); err != nil {
			s.logger.Error("failed to send replayed event", "error", err)
			return status_grpc.Errorf(codes.Internal, "failed to send event: %v", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("event stream cancelled", "subscriber_id", sub.ID)
			return ctx.Err()

		case ev, ok := <-sub.Events:
			if !ok {
				s.logger.Info("event stream closed", "subscriber_id", sub.ID)
				return nil
			}

			wireEvent := FromBusEvent(ev)
			if err := stream.Send(&wireEvent); err != nil {
				s.logger.Error("failed to send event", "error", err)
				return status_grpc.Errorf(codes.Internal, "failed to send event: %v", err)
			}
		}
	}
}

// validateEvent rejects wire events whose kind is unknown or whose payload
// variant does not match the kind. The typed publish helpers enforce this for
// in-process producers; remote producers get the same check here.
func validateEvent(ev *Event) error {
	kind := events.Kind(ev.Kind)
	if !kind.Valid() {
		return status_grpc.Errorf(codes.InvalidArgument, "unknown event kind %d", ev.Kind)
	}

	variants := []struct {
		name string
		set  bool
		kind events.Kind
	}{
		{"state_change", ev.StateChange != nil, events.KindAgentStateChanged},
		{"error", ev.Error != nil, events.KindError},
		{"pane_content", ev.PaneContent != nil, events.KindPaneContentChanged},
		{"violation", ev.Violation != nil, events.KindResourceViolation},
	}
	for _, v := range variants {
		if v.kind == kind && !v.set {
			return status_grpc.Errorf(codes.InvalidArgument, "kind %q requires a %s payload", kind, v.name)
		}
		if v.kind != kind && v.set {
			return status_grpc.Errorf(codes.InvalidArgument, "%s payload does not match kind %q", v.name, kind)
		}
	}
	return nil
}

func toKinds(raw []int) []events.Kind {
	if len(raw) == 0 {
		return nil
	}
	kinds := make([]events.Kind, 0, len(raw))
	for _, k := range raw {
		kinds = append(kinds, events.Kind(k))
	}
	return kinds
}

// mapError converts internal errors to gRPC status errors.
func mapError(err error, msg string) error {
	switch {
	case errors.Is(err, events.ErrInvalidCursor):
		return status_grpc.Errorf(codes.InvalidArgument, "%s: %v", msg, err)
	case errors.Is(err, events.ErrBusClosed):
		return status_grpc.Errorf(codes.Unavailable, "%s: %v", msg, err)
	case errors.Is(err, database.ErrNotFound):
		return status_grpc.Errorf(codes.NotFound, "%s: %v", msg, err)
	default:
		return status_grpc.Errorf(codes.Internal, "%s: %v", msg, err)
	}
}
