package api_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/tOgg1/forge-sub005/internal/daemon/api"
	"github.com/tOgg1/forge-sub005/internal/daemon/client"
	"github.com/tOgg1/forge-sub005/internal/events"
)

const bufSize = 1024 * 1024

// fakeDaemon backs the control server with a real bus and fixed fleet data.
type fakeDaemon struct {
	bus        *events.Bus
	agents     []api.AgentInfoInternal
	workspaces []api.WorkspaceInfoInternal
}

func (d *fakeDaemon) Status() (api.DaemonStatus, error) {
	return api.DaemonStatus{
		Running:         true,
		PID:             1234,
		StartTime:       time.Now().Add(-time.Minute),
		Uptime:          "1m0s",
		GRPCAddress:     "bufnet",
		AgentCount:      len(d.agents),
		WorkspaceCount:  len(d.workspaces),
		SubscriberCount: d.bus.SubscriberCount(),
		StoredEvents:    d.bus.StoredEventCount(),
	}, nil
}

func (d *fakeDaemon) ListAgents(ctx context.Context, workspaceID string) ([]api.AgentInfoInternal, error) {
	if workspaceID == "" {
		return d.agents, nil
	}
	var out []api.AgentInfoInternal
	for _, a := range d.agents {
		if a.WorkspaceID == workspaceID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (d *fakeDaemon) ListWorkspaces(ctx context.Context) ([]api.WorkspaceInfoInternal, error) {
	return d.workspaces, nil
}

func (d *fakeDaemon) PublishEvent(ctx context.Context, event events.Event) (events.Event, error) {
	return d.bus.Publish(ctx, event)
}

func (d *fakeDaemon) Subscribe(ctx context.Context, req events.SubscribeRequest) (*events.Subscription, error) {
	return d.bus.Subscribe(ctx, req)
}

func setupControlServer(t *testing.T) (*client.Client, *grpc.ClientConn, *fakeDaemon) {
	t.Helper()

	daemon := &fakeDaemon{
		bus: events.NewBus(),
		agents: []api.AgentInfoInternal{
			{ID: "agent-1", Name: "builder", WorkspaceID: "ws-1", State: "running"},
			{ID: "agent-2", Name: "reviewer", WorkspaceID: "ws-2", State: "paused"},
		},
		workspaces: []api.WorkspaceInfoInternal{
			{ID: "ws-1", Name: "backend", RootPath: "/srv/backend"},
			{ID: "ws-2", Name: "frontend", RootPath: "/srv/frontend"},
		},
	}

	lis := bufconn.Listen(bufSize)
	s := grpc.NewServer()
	api.RegisterControlServer(s, api.NewServer(daemon, nil))

	go func() {
		if err := s.Serve(lis); err != nil {
			t.Logf("server exited with error: %v", err)
		}
	}()

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
			return lis.Dial()
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(api.DefaultCallOptions()...),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		s.Stop()
		lis.Close()
		daemon.bus.Close()
	})

	return client.NewFromConn(conn), conn, daemon
}

func TestControlServer_Status(t *testing.T) {
	c, _, _ := setupControlServer(t)

	resp, err := c.Status(context.Background())
	require.NoError(t, err)

	assert.True(t, resp.Running)
	assert.Equal(t, 1234, resp.PID)
	assert.Equal(t, 2, resp.AgentCount)
	assert.Equal(t, 2, resp.WorkspaceCount)
}

func TestControlServer_ListAgents(t *testing.T) {
	c, _, _ := setupControlServer(t)

	agents, err := c.ListAgents(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "builder", agents[0].Name)
	assert.Equal(t, "running", agents[0].State)

	scoped, err := c.ListAgents(context.Background(), "ws-2")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "reviewer", scoped[0].Name)
}

func TestControlServer_ListWorkspaces(t *testing.T) {
	c, _, _ := setupControlServer(t)

	workspaces, err := c.ListWorkspaces(context.Background())
	require.NoError(t, err)
	require.Len(t, workspaces, 2)
	assert.Equal(t, "backend", workspaces[0].Name)
	assert.Equal(t, "/srv/backend", workspaces[0].RootPath)
}

func TestControlServer_PublishEvent(t *testing.T) {
	c, _, daemon := setupControlServer(t)
	ctx := context.Background()

	id, err := c.PublishEvent(ctx, events.Event{
		Kind:    events.KindAgentStateChanged,
		AgentID: "agent-1",
		StateChange: &events.StateChangePayload{
			From: "starting",
			To:   "running",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "0", id)

	id, err = c.PublishEvent(ctx, events.Event{
		Kind:    events.KindError,
		AgentID: "agent-1",
		Error:   &events.ErrorPayload{Source: "loop", Message: "boom"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1", id)

	assert.Equal(t, 2, daemon.bus.StoredEventCount())
}

func TestControlServer_PublishEvent_MissingEvent(t *testing.T) {
	_, conn, _ := setupControlServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var resp api.PublishEventResponse
	err := conn.Invoke(ctx, "/"+api.ServiceName+"/PublishEvent", &api.PublishEventRequest{}, &resp)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestControlServer_PublishEvent_RejectsMalformed(t *testing.T) {
	c, _, daemon := setupControlServer(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		event events.Event
	}{
		{
			name:  "unspecified kind",
			event: events.Event{Kind: events.KindUnspecified},
		},
		{
			name:  "unknown kind",
			event: events.Event{Kind: events.Kind(99)},
		},
		{
			name:  "missing payload",
			event: events.Event{Kind: events.KindError, AgentID: "agent-1"},
		},
		{
			name: "payload does not match kind",
			event: events.Event{
				Kind:  events.KindAgentStateChanged,
				Error: &events.ErrorPayload{Source: "loop", Message: "boom"},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.PublishEvent(ctx, tc.event)
			require.Error(t, err)
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}

	// Rejected events never reach the bus.
	assert.Equal(t, 0, daemon.bus.StoredEventCount())
}

func TestControlServer_Subscribe_ReplayThenLive(t *testing.T) {
	c, _, daemon := setupControlServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Seed two stored events (ids 0 and 1) before subscribing.
	_, err := daemon.bus.PublishError(ctx, "agent-1", "ws-1", "loop", "first")
	require.NoError(t, err)
	_, err = daemon.bus.PublishError(ctx, "agent-1", "ws-1", "loop", "second")
	require.NoError(t, err)

	stream, err := c.Subscribe(ctx, client.SubscribeOptions{Cursor: "1"})
	require.NoError(t, err)

	// Replayed event first.
	ev, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "1", ev.ID)
	require.NotNil(t, ev.Error)
	assert.Equal(t, "second", ev.Error.Message)

	// Wait for the server-side registration to land before publishing live.
	require.Eventually(t, func() bool {
		return daemon.bus.SubscriberCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err = daemon.bus.PublishError(ctx, "agent-2", "ws-2", "loop", "third")
	require.NoError(t, err)

	ev, err = stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "2", ev.ID)
	assert.Equal(t, "agent-2", ev.AgentID)
}

func TestControlServer_Subscribe_InvalidCursor(t *testing.T) {
	c, _, daemon := setupControlServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := c.Subscribe(ctx, client.SubscribeOptions{Cursor: "not-a-number"})
	require.NoError(t, err)

	_, err = stream.Recv()
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, 0, daemon.bus.SubscriberCount())
}

func TestControlServer_Subscribe_KindFilter(t *testing.T) {
	c, _, daemon := setupControlServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := c.Subscribe(ctx, client.SubscribeOptions{
		Kinds: []int{int(events.KindResourceViolation)},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return daemon.bus.SubscriberCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err = daemon.bus.PublishError(ctx, "agent-1", "ws-1", "loop", "ignored")
	require.NoError(t, err)
	_, err = daemon.bus.PublishResourceViolation(ctx, "agent-1", "ws-1", "memory", 512, 640)
	require.NoError(t, err)

	ev, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, int(events.KindResourceViolation), ev.Kind)
	require.NotNil(t, ev.Violation)
	assert.Equal(t, "memory", ev.Violation.Resource)
}
