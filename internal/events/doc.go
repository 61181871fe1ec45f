// Package events implements the control-plane daemon's event distribution
// subsystem: a bounded in-memory bus that fans out fleet events to many
// independent subscribers with per-subscriber filters and cursor-based
// replay of recently retained events.
//
// # Overview
//
// The Bus provides:
//   - Thread-safe concurrent publishing and subscribing
//   - A bounded retention buffer (FIFO eviction) for replay on reconnect
//   - Filtering by event kind, agent id, and workspace id
//   - Non-blocking fan-out so a slow subscriber never stalls a producer
//   - Automatic deregistration when a subscriber's context ends
//
// # Cursor and replay protocol
//
// Every published event receives a sequential string-encoded id (0, 1, 2,
// ...). A subscriber reconnecting after a gap passes the id it wants to
// resume from as the request cursor; Subscribe returns the retained events
// with id >= cursor (filtered) as a replay list, then live events flow on
// the subscription channel. The replay snapshot and the registration happen
// in one critical section, so no event falls between them. A cursor of ""
// or "0" requests live events only; a non-numeric cursor is rejected with
// ErrInvalidCursor before anything is registered.
//
// # Slow consumer handling
//
// Subscribers receive events through buffered channels. If a subscriber's
// buffer is full the event is dropped for that subscriber only and logged;
// other subscribers and the publisher are unaffected. Delivery to live
// subscribers is therefore best-effort; the cursor protocol exists so a
// consumer that noticed a gap can resync from the retention buffer.
//
// # Usage
//
//	bus := events.NewBus(events.WithBufferSize(200))
//	defer bus.Close()
//
//	sub, err := bus.Subscribe(ctx, events.SubscribeRequest{
//		Cursor: "42",
//		Kinds:  []events.Kind{events.KindAgentStateChanged},
//	})
//	if err != nil {
//		return err
//	}
//	defer sub.Cancel()
//
//	for _, ev := range sub.Replay {
//		handle(ev)
//	}
//	for ev := range sub.Events {
//		handle(ev)
//	}
//
// Producers publish through the typed helpers (PublishStateChange,
// PublishError, PublishPaneContent, PublishResourceViolation), which keep
// the payload-variant-matches-kind invariant in one place.
package events
