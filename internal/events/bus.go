package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultMaxStoredEvents is the retention buffer capacity used when no
	// override is configured.
	DefaultMaxStoredEvents = 1000

	// DefaultBufferSize is the per-subscriber channel capacity used when
	// Subscribe is called with BufferSize 0.
	DefaultBufferSize = 100
)

var (
	// ErrBusClosed is returned by Publish and Subscribe after Close.
	ErrBusClosed = errors.New("event bus is closed")

	// ErrInvalidCursor is returned by Subscribe when the request carries a
	// non-empty cursor that does not parse as a non-negative integer. No
	// subscriber is registered and no replay is computed on this path.
	ErrInvalidCursor = errors.New("invalid cursor")
)

// SubscribeRequest describes a subscription: a resumption cursor plus three
// optional filter dimensions. Empty filter lists mean "no restriction".
//
// Cursor is the string-encoded id of the first event the subscriber has not
// seen. An empty cursor and "0" both mean "live events only, no replay".
type SubscribeRequest struct {
	Cursor       string
	Kinds        []Kind
	AgentIDs     []string
	WorkspaceIDs []string

	// BufferSize overrides the subscriber channel capacity. 0 uses the
	// bus default.
	BufferSize int
}

// Subscription is the result of a successful Subscribe call. The caller must
// drain Replay before reading Events, and must call Cancel (or Unsubscribe
// with ID) when done to release the registry entry.
type Subscription struct {
	ID     string
	Events <-chan Event
	Replay []Event
	Cancel func()
}

// subscription is the registry's internal entry for one subscriber.
type subscription struct {
	id       string
	ch       chan Event
	filter   Filter
	ctx      context.Context
	cancel   context.CancelFunc
	created  time.Time
	received atomic.Int64
	dropped  atomic.Int64
}

// Bus coordinates the retention buffer and the subscription registry. It is
// the single event distribution point for a daemon process.
//
// Thread safety: all methods are safe for concurrent use. One mutex guards
// both the store and the registry, so a Subscribe call's replay snapshot and
// registration form one atomic step: an event published concurrently is
// observed either in the replay list or on the live channel, never neither.
//
// Slow consumers: Publish never blocks on a subscriber. A full subscriber
// channel drops the event for that subscriber only; other subscribers and
// the publisher are unaffected.
type Bus struct {
	mu          sync.Mutex
	store       *store
	subscribers map[string]*subscription
	nextSubID   uint64
	closed      bool

	bufferSize int
	logger     *slog.Logger
}

// Option is a functional option for configuring a Bus.
type Option func(*Bus)

// WithMaxStoredEvents sets the retention buffer capacity.
// Default: DefaultMaxStoredEvents.
func WithMaxStoredEvents(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.store = newStore(n)
		}
	}
}

// WithBufferSize sets the default subscriber channel capacity, used when a
// SubscribeRequest does not override it. Default: DefaultBufferSize.
func WithBufferSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

// WithLogger sets the structured logger for bus operations.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger.With("component", "eventbus")
		}
	}
}

// NewBus creates a Bus ready to accept publishes and subscriptions.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		store:       newStore(DefaultMaxStoredEvents),
		subscribers: make(map[string]*subscription),
		bufferSize:  DefaultBufferSize,
		logger:      slog.Default().With("component", "eventbus"),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Publish stamps the event with the next sequential id, retains it in the
// bounded buffer (evicting the oldest entry if full), and fans it out to all
// matching subscribers with non-blocking sends.
//
// Returns the stored event (with ID assigned) so callers can correlate.
// The only error conditions are a closed bus and a cancelled publish
// context; a full subscriber channel is not an error.
func (b *Bus) Publish(ctx context.Context, event Event) (Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return Event{}, ErrBusClosed
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	event = b.store.append(event)

	sent := 0
	dropped := 0

	for _, sub := range b.subscribers {
		// Skip subscribers whose context ended; the reaper goroutine
		// removes them shortly.
		select {
		case <-sub.ctx.Done():
			continue
		default:
		}

		if !sub.filter.Matches(event) {
			continue
		}

		select {
		case sub.ch <- event:
			sent++
			sub.received.Add(1)
		case <-ctx.Done():
			return event, ctx.Err()
		default:
			// Channel full: drop for this slow subscriber only.
			dropped++
			sub.dropped.Add(1)
			b.logger.Warn("dropped event for slow subscriber",
				"subscriber_id", sub.id,
				"event_id", event.ID,
				"event_kind", event.Kind.String(),
			)
		}
	}

	if sent > 0 || dropped > 0 {
		b.logger.Debug("published event",
			"event_id", event.ID,
			"event_kind", event.Kind.String(),
			"sent", sent,
			"dropped", dropped,
		)
	}

	return event, nil
}

// Subscribe validates the request's cursor, snapshots matching retained
// events at ids >= cursor, and registers a new subscriber with a fresh
// bounded channel — all in one critical section.
//
// The returned Subscription's Replay list holds the snapshot in ascending id
// order; the caller drains it first, then reads the live channel. An
// unparsable cursor fails with ErrInvalidCursor before any mutation.
//
// The subscription is removed either by an explicit Unsubscribe/Cancel or
// automatically when ctx ends, whichever comes first.
func (b *Bus) Subscribe(ctx context.Context, req SubscribeRequest) (*Subscription, error) {
	cursor, err := parseCursor(req.Cursor)
	if err != nil {
		return nil, err
	}

	filter := NewFilter(req.Kinds, req.AgentIDs, req.WorkspaceIDs)

	bufferSize := req.BufferSize
	if bufferSize <= 0 {
		bufferSize = b.bufferSize
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	replay := b.store.replay(cursor, filter)

	b.nextSubID++
	subscriberID := "sub-" + strconv.FormatUint(b.nextSubID, 10)

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		id:      subscriberID,
		ch:      make(chan Event, bufferSize),
		filter:  filter,
		ctx:     subCtx,
		cancel:  cancel,
		created: time.Now(),
	}
	b.subscribers[subscriberID] = sub

	// Reap the registry entry when the subscriber's context ends, so a
	// disconnected consumer that never calls Unsubscribe doesn't leak.
	go func() {
		<-subCtx.Done()
		b.Unsubscribe(subscriberID)
	}()

	b.logger.Info("subscription created",
		"subscriber_id", subscriberID,
		"cursor", cursor,
		"replay", len(replay),
		"kinds", kindNames(filter.Kinds),
		"agent_ids", filter.AgentIDs,
		"workspace_ids", filter.WorkspaceIDs,
	)

	return &Subscription{
		ID:     subscriberID,
		Events: sub.ch,
		Replay: replay,
		Cancel: func() { b.Unsubscribe(subscriberID) },
	}, nil
}

// Unsubscribe removes a subscription and closes its channel. It is
// idempotent: unknown ids are a no-op. After Unsubscribe returns, the
// subscriber receives no further events.
func (b *Bus) Unsubscribe(subscriberID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, exists := b.subscribers[subscriberID]
	if !exists {
		return
	}

	sub.cancel()
	close(sub.ch)
	delete(b.subscribers, subscriberID)

	b.logger.Info("subscription removed",
		"subscriber_id", subscriberID,
		"received", sub.received.Load(),
		"dropped", sub.dropped.Load(),
		"age", time.Since(sub.created).Round(time.Millisecond).String(),
	)
}

// Close shuts down the bus: all subscriber channels are closed and further
// publishes fail with ErrBusClosed. Close is idempotent.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for id, sub := range b.subscribers {
		sub.cancel()
		close(sub.ch)
		delete(b.subscribers, id)
	}

	b.logger.Info("event bus closed")
	return nil
}

// SubscriberCount returns the current number of active subscribers.
// Useful for monitoring and testing.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// StoredEventCount returns the number of events currently retained for
// replay.
func (b *Bus) StoredEventCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.len()
}

// parseCursor converts a request cursor string to a numeric event id
// threshold. Empty means 0 (no replay). Non-empty input must be a base-10
// integer; non-positive values clamp to 0, so negative cursors behave
// like "0" rather than failing.
func parseCursor(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCursor, s)
	}
	if n <= 0 {
		return 0, nil
	}
	return uint64(n), nil
}

func kindNames(kinds []Kind) string {
	if len(kinds) == 0 {
		return "all"
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ",")
}
