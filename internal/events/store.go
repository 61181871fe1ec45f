package events

import (
	"strconv"
)

// storedEvent pairs an event with its numeric identifier so replay range
// comparisons don't re-parse the string-encoded ID.
type storedEvent struct {
	id    uint64
	event Event
}

// store is the bounded, append-only-with-eviction retention buffer behind
// the bus. Entries are kept in ascending id order by construction: ids are
// assigned strictly increasing and eviction only removes from the front.
//
// store is not safe for concurrent use on its own; the bus serializes all
// access under its mutex so that a replay snapshot and the subsequent
// subscriber registration form a single atomic step.
type store struct {
	entries  []storedEvent
	capacity int
	nextID   uint64
}

func newStore(capacity int) *store {
	return &store{
		entries:  make([]storedEvent, 0, capacity),
		capacity: capacity,
	}
}

// append assigns the next sequential id, stamps it onto the event, and
// retains the event, evicting the oldest entry if the buffer is full.
// Ids start at 0 and are never reused.
func (s *store) append(event Event) Event {
	id := s.nextID
	s.nextID++

	event.ID = strconv.FormatUint(id, 10)

	if len(s.entries) >= s.capacity {
		// FIFO eviction: drop the lowest-id entry.
		s.entries = s.entries[1:]
	}
	s.entries = append(s.entries, storedEvent{id: id, event: event})

	return event
}

// replay returns all retained events with id >= cursor that match the
// filter, in ascending id order. A cursor of 0 means "no replay" and always
// yields nil, regardless of buffer contents.
func (s *store) replay(cursor uint64, filter Filter) []Event {
	if cursor == 0 {
		return nil
	}

	var out []Event
	for _, se := range s.entries {
		if se.id < cursor {
			continue
		}
		if filter.Matches(se.event) {
			out = append(out, se.event)
		}
	}
	return out
}

// len reports the number of retained events.
func (s *store) len() int {
	return len(s.entries)
}
