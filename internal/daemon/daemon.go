// Package daemon implements the long-running forge daemon: the event bus,
// the fleet registry database, and the gRPC control API that CLI clients
// connect to.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tOgg1/forge-sub005/internal/config"
	"github.com/tOgg1/forge-sub005/internal/daemon/api"
	"github.com/tOgg1/forge-sub005/internal/database"
	"github.com/tOgg1/forge-sub005/internal/events"
	"github.com/tOgg1/forge-sub005/internal/types"
)

// Daemon is the forge daemon's lifecycle interface.
type Daemon interface {
	// Start runs the daemon until ctx is cancelled, then shuts down.
	Start(ctx context.Context) error

	// Stop gracefully shuts down all services. Safe to call more than once.
	Stop(ctx context.Context) error
}

// daemonImpl is the concrete daemon. It owns:
//   - the event bus (fan-out and retention buffer)
//   - the fleet registry database and its DAOs
//   - the state recorder bridging bus events into the registry
//   - the gRPC control server
//   - the PID file for client discovery
type daemonImpl struct {
	config *config.Config
	logger *slog.Logger

	db           *database.DB
	agentDAO     *database.AgentDAO
	workspaceDAO *database.WorkspaceDAO
	violationDAO *database.ViolationDAO

	bus      *events.Bus
	recorder *StateRecorder

	grpcServer grpcStopper
	grpcAddr   string

	pidFile   string
	startTime time.Time
}

// grpcStopper is the slice of *grpc.Server the daemon needs for shutdown.
type grpcStopper interface {
	GracefulStop()
}

// New creates a daemon from the loaded configuration. It opens the fleet
// registry database and runs migrations, but starts no services; call Start.
func New(cfg *config.Config) (Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	logger := slog.Default().With("component", "daemon")

	db, err := database.OpenWithConfig(database.Config{
		Path:         cfg.Database.Path,
		MaxOpenConns: cfg.Database.MaxConnections,
		BusyTimeout:  cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open fleet registry database: %w", err)
	}

	if err := database.NewMigrator(db).Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate fleet registry database: %w", err)
	}

	bus := events.NewBus(
		events.WithMaxStoredEvents(cfg.Daemon.MaxStoredEvents),
		events.WithBufferSize(cfg.Daemon.EventBufferSize),
		events.WithLogger(logger),
	)

	pidFile := cfg.Daemon.PIDFile
	if pidFile == "" {
		pidFile = filepath.Join(cfg.Core.HomeDir, "forged.pid")
	}

	grpcAddr := cfg.Daemon.GRPCAddress
	if envAddr := os.Getenv("FORGE_DAEMON_GRPC_ADDR"); envAddr != "" {
		grpcAddr = envAddr
	}

	agentDAO := database.NewAgentDAO(db)
	violationDAO := database.NewViolationDAO(db)

	return &daemonImpl{
		config:       cfg,
		logger:       logger,
		db:           db,
		agentDAO:     agentDAO,
		workspaceDAO: database.NewWorkspaceDAO(db),
		violationDAO: violationDAO,
		bus:          bus,
		recorder:     NewStateRecorder(bus, agentDAO, violationDAO, logger),
		grpcAddr:     grpcAddr,
		pidFile:      pidFile,
	}, nil
}

// Start begins daemon operation and blocks until ctx is cancelled.
//
// Startup order: PID file check, state recorder, gRPC server, PID file
// write. Shutdown runs in reverse.
func (d *daemonImpl) Start(ctx context.Context) error {
	d.logger.Info("starting forge daemon",
		"grpc_address", d.grpcAddr,
		"database", d.config.Database.Path,
	)

	running, pid, err := CheckPIDFile(d.pidFile)
	if err != nil {
		return fmt.Errorf("failed to check for existing daemon: %w", err)
	}
	if running {
		return fmt.Errorf("daemon already running (PID %d)", pid)
	}
	if pid > 0 {
		d.logger.Warn("removing stale PID file", "stale_pid", pid)
		if err := RemovePIDFile(d.pidFile); err != nil {
			return fmt.Errorf("failed to remove stale PID file: %w", err)
		}
	}

	d.startTime = time.Now()

	if err := d.recorder.Start(ctx); err != nil {
		d.stopServices(ctx)
		return fmt.Errorf("failed to start state recorder: %w", err)
	}

	d.logger.Info("starting gRPC server", "address", d.grpcAddr)
	if err := d.startGRPCServer(ctx); err != nil {
		d.stopServices(ctx)
		return fmt.Errorf("failed to start gRPC server: %w", err)
	}

	pid = os.Getpid()
	d.logger.Info("writing PID file", "pid", pid, "path", d.pidFile)
	if err := WritePIDFile(d.pidFile, pid); err != nil {
		d.stopServices(ctx)
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	d.logger.Info("daemon started successfully", "pid", pid)

	<-ctx.Done()
	d.logger.Info("shutdown signal received, stopping daemon")
	return d.Stop(context.Background())
}

// Stop gracefully shuts down the daemon. Idempotent.
func (d *daemonImpl) Stop(ctx context.Context) error {
	d.logger.Info("stopping forge daemon")

	shutdownCtx := ctx
	if ctx.Err() == nil {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
	}

	d.stopServices(shutdownCtx)

	if err := RemovePIDFile(d.pidFile); err != nil {
		d.logger.Warn("failed to remove PID file", "error", err)
	}

	d.logger.Info("daemon stopped successfully")
	return nil
}

// stopServices stops services in reverse order of startup.
func (d *daemonImpl) stopServices(ctx context.Context) {
	if d.grpcServer != nil {
		d.logger.Info("stopping gRPC server")
		d.grpcServer.GracefulStop()
		d.grpcServer = nil
	}

	if d.recorder != nil {
		d.logger.Info("stopping state recorder")
		d.recorder.Stop()
	}

	if d.bus != nil {
		d.logger.Info("closing event bus")
		if err := d.bus.Close(); err != nil {
			d.logger.Warn("error closing event bus", "error", err)
		}
	}

	if d.db != nil {
		d.logger.Info("closing database connection")
		if err := d.db.Close(); err != nil {
			d.logger.Warn("error closing database", "error", err)
		}
		d.db = nil
	}
}

// Implementation of api.DaemonInterface for delegation from the gRPC server.

// Status implements api.DaemonInterface.
func (d *daemonImpl) Status() (api.DaemonStatus, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var agentCount, workspaceCount int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		agents, err := d.agentDAO.List(gctx)
		if err != nil {
			return fmt.Errorf("failed to count agents: %w", err)
		}
		agentCount = len(agents)
		return nil
	})
	g.Go(func() error {
		workspaces, err := d.workspaceDAO.List(gctx)
		if err != nil {
			return fmt.Errorf("failed to count workspaces: %w", err)
		}
		workspaceCount = len(workspaces)
		return nil
	})
	if err := g.Wait(); err != nil {
		return api.DaemonStatus{}, err
	}

	return api.DaemonStatus{
		Running:         true,
		PID:             os.Getpid(),
		StartTime:       d.startTime,
		Uptime:          time.Since(d.startTime).Round(time.Second).String(),
		GRPCAddress:     d.grpcAddr,
		AgentCount:      agentCount,
		WorkspaceCount:  workspaceCount,
		SubscriberCount: d.bus.SubscriberCount(),
		StoredEvents:    d.bus.StoredEventCount(),
	}, nil
}

// ListAgents implements api.DaemonInterface.
func (d *daemonImpl) ListAgents(ctx context.Context, workspaceID string) ([]api.AgentInfoInternal, error) {
	var (
		agents []*types.Agent
		err    error
	)

	if workspaceID == "" {
		agents, err = d.agentDAO.List(ctx)
	} else {
		var wsID types.ID
		wsID, err = types.ParseID(workspaceID)
		if err != nil {
			return nil, fmt.Errorf("invalid workspace id %q: %w", workspaceID, err)
		}
		agents, err = d.agentDAO.ListByWorkspace(ctx, wsID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}

	result := make([]api.AgentInfoInternal, 0, len(agents))
	for _, a := range agents {
		info := api.AgentInfoInternal{
			ID:        a.ID.String(),
			Name:      a.Name,
			State:     string(a.State),
			CreatedAt: a.CreatedAt,
			UpdatedAt: a.UpdatedAt,
		}
		if !a.WorkspaceID.IsZero() {
			info.WorkspaceID = a.WorkspaceID.String()
		}
		result = append(result, info)
	}
	return result, nil
}

// ListWorkspaces implements api.DaemonInterface.
func (d *daemonImpl) ListWorkspaces(ctx context.Context) ([]api.WorkspaceInfoInternal, error) {
	workspaces, err := d.workspaceDAO.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}

	result := make([]api.WorkspaceInfoInternal, 0, len(workspaces))
	for _, w := range workspaces {
		result = append(result, api.WorkspaceInfoInternal{
			ID:        w.ID.String(),
			Name:      w.Name,
			RootPath:  w.RootPath,
			CreatedAt: w.CreatedAt,
		})
	}
	return result, nil
}

// PublishEvent implements api.DaemonInterface.
func (d *daemonImpl) PublishEvent(ctx context.Context, event events.Event) (events.Event, error) {
	return d.bus.Publish(ctx, event)
}

// Subscribe implements api.DaemonInterface.
func (d *daemonImpl) Subscribe(ctx context.Context, req events.SubscribeRequest) (*events.Subscription, error) {
	return d.bus.Subscribe(ctx, req)
}
