// Package client provides a client library for connecting to the forge daemon.
//
// CLI commands use it to invoke control operations and to follow the event
// stream over gRPC. It handles connection setup, the JSON call codec, and
// streaming RPCs.
package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/tOgg1/forge-sub005/internal/daemon/api"
	"github.com/tOgg1/forge-sub005/internal/events"
)

// Client represents a connection to the forge daemon.
//
// Example usage:
//
//	client, err := Connect(ctx, "localhost:50551")
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	status, err := client.Status(ctx)
type Client struct {
	conn *grpc.ClientConn
}

// Connect establishes a connection to the forge daemon at the given address.
//
// The address can be a TCP host:port ("localhost:50551") or a Unix socket
// path ("/path/to/forge.sock" or "unix:///path/to/forge.sock").
func Connect(ctx context.Context, address string) (*Client, error) {
	if address == "" {
		return nil, fmt.Errorf("daemon address cannot be empty")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	target := address
	if strings.HasPrefix(address, "/") {
		target = "unix://" + address
	}

	conn, err := grpc.NewClient(
		target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(api.DefaultCallOptions()...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon at %s: %w", address, err)
	}

	return &Client{conn: conn}, nil
}

// NewFromConn wraps an existing gRPC connection. Used by tests that dial over
// an in-memory listener.
func NewFromConn(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Status returns the daemon's status.
func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	resp := new(api.StatusResponse)
	if err := c.invoke(ctx, "Status", &api.StatusRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ListAgents returns registered agents, optionally scoped to a workspace.
func (c *Client) ListAgents(ctx context.Context, workspaceID string) ([]api.AgentInfo, error) {
	resp := new(api.ListAgentsResponse)
	req := &api.ListAgentsRequest{WorkspaceID: workspaceID}
	if err := c.invoke(ctx, "ListAgents", req, resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// ListWorkspaces returns the registered workspaces.
func (c *Client) ListWorkspaces(ctx context.Context) ([]api.WorkspaceInfo, error) {
	resp := new(api.ListWorkspacesResponse)
	if err := c.invoke(ctx, "ListWorkspaces", &api.ListWorkspacesRequest{}, resp); err != nil {
		return nil, err
	}
	return resp.Workspaces, nil
}

// PublishEvent publishes an event onto the daemon's bus and returns the
// assigned event id.
func (c *Client) PublishEvent(ctx context.Context, event events.Event) (string, error) {
	wireEvent := api.FromBusEvent(event)
	resp := new(api.PublishEventResponse)
	req := &api.PublishEventRequest{Event: &wireEvent}
	if err := c.invoke(ctx, "PublishEvent", req, resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// SubscribeOptions selects which events a subscription receives.
type SubscribeOptions struct {
	// Cursor is the string-encoded id of the first stored event to replay.
	// "" or "0" skips replay.
	Cursor string

	// Kinds, AgentIDs and WorkspaceIDs are inclusion filters; empty means
	// no restriction on that dimension.
	Kinds        []int
	AgentIDs     []string
	WorkspaceIDs []string
}

// Subscribe opens the event stream. The returned stream delivers replayed
// events first, then live events, until ctx is cancelled or the daemon shuts
// down.
func (c *Client) Subscribe(ctx context.Context, opts SubscribeOptions) (*EventStream, error) {
	desc := &grpc.StreamDesc{
		StreamName:    "Subscribe",
		ServerStreams: true,
	}

	stream, err := c.conn.NewStream(ctx, desc, "/"+api.ServiceName+"/Subscribe")
	if err != nil {
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}

	req := &api.SubscribeRequest{
		Cursor:       opts.Cursor,
		Kinds:        opts.Kinds,
		AgentIDs:     opts.AgentIDs,
		WorkspaceIDs: opts.WorkspaceIDs,
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, fmt.Errorf("failed to send subscribe request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, fmt.Errorf("failed to close send side: %w", err)
	}

	return &EventStream{stream: stream}, nil
}

// EventStream is the client side of an event subscription.
type EventStream struct {
	stream grpc.ClientStream
}

// Recv blocks for the next event. It returns io.EOF when the daemon closes
// the stream.
func (s *EventStream) Recv() (*api.Event, error) {
	ev := new(api.Event)
	if err := s.stream.RecvMsg(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	return c.conn.Invoke(ctx, "/"+api.ServiceName+"/"+method, req, resp)
}
