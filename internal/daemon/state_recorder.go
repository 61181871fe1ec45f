package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/tOgg1/forge-sub005/internal/database"
	"github.com/tOgg1/forge-sub005/internal/events"
	"github.com/tOgg1/forge-sub005/internal/types"
)

// StateRecorder subscribes to the event bus and persists fleet state changes
// to the registry database.
//
// It records agent state transitions and resource violations. Other event
// kinds are transient and never touch the database.
type StateRecorder struct {
	bus        *events.Bus
	agents     *database.AgentDAO
	violations *database.ViolationDAO
	logger     *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewStateRecorder creates a recorder wired to the given bus and DAOs.
func NewStateRecorder(bus *events.Bus, agents *database.AgentDAO, violations *database.ViolationDAO, logger *slog.Logger) *StateRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateRecorder{
		bus:        bus,
		agents:     agents,
		violations: violations,
		logger:     logger.With("component", "state-recorder"),
	}
}

// Start subscribes to the bus and begins consuming events until Stop is
// called or the bus closes.
func (r *StateRecorder) Start(ctx context.Context) error {
	subCtx, cancel := context.WithCancel(ctx)

	sub, err := r.bus.Subscribe(subCtx, events.SubscribeRequest{
		Kinds: []events.Kind{events.KindAgentStateChanged, events.KindResourceViolation},
	})
	if err != nil {
		cancel()
		return err
	}

	r.cancel = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		for {
			select {
			case <-subCtx.Done():
				return
			case ev, ok := <-sub.Events:
				if !ok {
					return
				}
				r.record(subCtx, ev)
			}
		}
	}()

	r.logger.Info("state recorder started", "subscriber_id", sub.ID)
	return nil
}

// Stop cancels the subscription and waits for the consumer loop to exit.
func (r *StateRecorder) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.logger.Info("state recorder stopped")
}

func (r *StateRecorder) record(ctx context.Context, ev events.Event) {
	switch ev.Kind {
	case events.KindAgentStateChanged:
		r.recordStateChange(ctx, ev)
	case events.KindResourceViolation:
		r.recordViolation(ctx, ev)
	}
}

func (r *StateRecorder) recordStateChange(ctx context.Context, ev events.Event) {
	if ev.StateChange == nil || ev.AgentID == "" {
		return
	}

	agentID, err := types.ParseID(ev.AgentID)
	if err != nil {
		r.logger.Warn("event carries malformed agent id", "event_id", ev.ID, "agent_id", ev.AgentID)
		return
	}

	state := types.AgentState(ev.StateChange.To)
	if err := state.Validate(); err != nil {
		r.logger.Warn("event carries unknown agent state", "event_id", ev.ID, "state", ev.StateChange.To)
		return
	}

	if err := r.agents.UpdateState(ctx, agentID, state); err != nil {
		// Events may reference agents registered elsewhere; skip quietly.
		r.logger.Debug("failed to persist agent state", "event_id", ev.ID, "agent_id", ev.AgentID, "error", err)
		return
	}

	r.logger.Debug("persisted agent state change",
		"agent_id", ev.AgentID,
		"from", ev.StateChange.From,
		"to", ev.StateChange.To,
	)
}

func (r *StateRecorder) recordViolation(ctx context.Context, ev events.Event) {
	if ev.Violation == nil || ev.AgentID == "" {
		return
	}

	agentID, err := types.ParseID(ev.AgentID)
	if err != nil {
		r.logger.Warn("event carries malformed agent id", "event_id", ev.ID, "agent_id", ev.AgentID)
		return
	}

	occurredAt := ev.Timestamp
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	violation := &types.ResourceViolation{
		ID:         types.NewID(),
		AgentID:    agentID,
		Resource:   ev.Violation.Resource,
		Limit:      ev.Violation.Limit,
		Observed:   ev.Violation.Observed,
		OccurredAt: occurredAt,
	}

	if err := r.violations.Create(ctx, violation); err != nil {
		r.logger.Debug("failed to persist resource violation", "event_id", ev.ID, "agent_id", ev.AgentID, "error", err)
		return
	}

	r.logger.Debug("persisted resource violation",
		"agent_id", ev.AgentID,
		"resource", ev.Violation.Resource,
	)
}
