package api

import (
	"context"

	"google.golang.org/grpc"
)

// ControlServer is the server-side interface of the control service. The
// daemon's Server type implements it; RegisterControlServer wires it into a
// grpc.Server via the hand-written service descriptor below.
type ControlServer interface {
	// Status returns daemon liveness and bus statistics.
	Status(ctx context.Context, req *StatusRequest) (*StatusResponse, error)

	// ListAgents returns the fleet's registered agents.
	ListAgents(ctx context.Context, req *ListAgentsRequest) (*ListAgentsResponse, error)

	// ListWorkspaces returns the registered workspaces.
	ListWorkspaces(ctx context.Context, req *ListWorkspacesRequest) (*ListWorkspacesResponse, error)

	// PublishEvent publishes an event from a remote producer onto the bus.
	PublishEvent(ctx context.Context, req *PublishEventRequest) (*PublishEventResponse, error)

	// Subscribe opens a server stream: replayed events first, then live
	// events until the client disconnects.
	Subscribe(req *SubscribeRequest, stream ControlSubscribeServer) error
}

// ControlSubscribeServer is the server side of the Subscribe stream.
type ControlSubscribeServer interface {
	Send(*Event) error
	grpc.ServerStream
}

type controlSubscribeServer struct {
	grpc.ServerStream
}

func (s *controlSubscribeServer) Send(ev *Event) error {
	return s.ServerStream.SendMsg(ev)
}

// RegisterControlServer registers the control service implementation with a
// gRPC server.
func RegisterControlServer(s *grpc.Server, srv ControlServer) {
	s.RegisterService(&controlServiceDesc, srv)
}

func statusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).Status(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Status"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).Status(ctx, req.(*StatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listAgentsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListAgentsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).ListAgents(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/ListAgents"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).ListAgents(ctx, req.(*ListAgentsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listWorkspacesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListWorkspacesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).ListWorkspaces(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/ListWorkspaces"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).ListWorkspaces(ctx, req.(*ListWorkspacesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func publishEventHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PublishEventRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).PublishEvent(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/PublishEvent"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).PublishEvent(ctx, req.(*PublishEventRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(SubscribeRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ControlServer).Subscribe(in, &controlSubscribeServer{stream})
}

var controlServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Status", Handler: statusHandler},
		{MethodName: "ListAgents", Handler: listAgentsHandler},
		{MethodName: "ListWorkspaces", Handler: listWorkspacesHandler},
		{MethodName: "PublishEvent", Handler: publishEventHandler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "forge/v1/control",
}
