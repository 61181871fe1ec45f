package daemon

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"

	"github.com/tOgg1/forge-sub005/internal/daemon/api"
)

// startGRPCServer creates the control server, registers it, and starts
// serving on the configured address in a goroutine.
func (d *daemonImpl) startGRPCServer(ctx context.Context) error {
	listener, err := net.Listen("tcp", d.grpcAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", d.grpcAddr, err)
	}

	srv := grpc.NewServer()
	d.grpcServer = srv

	api.RegisterControlServer(srv, api.NewServer(d, d.logger))

	go func() {
		d.logger.Info("gRPC server listening", "address", listener.Addr().String())
		if err := srv.Serve(listener); err != nil {
			d.logger.Error("gRPC server error", "error", err)
		}
	}()

	return nil
}
