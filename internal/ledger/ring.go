package ledger

import "encoding/json"

// DefaultCapacity is the number of raw events kept per day.
const DefaultCapacity = 20000

// EventRing is a bounded, time-ordered event list. Once full, each push
// overwrites the oldest event. The backing slice grows on demand so quiet
// days do not pay for the full capacity.
//
// EventRing is not safe for concurrent use.
type EventRing struct {
	buf   []Event
	head  int // oldest event once the ring is full, 0 otherwise
	limit int
}

// NewEventRing creates a ring that holds at most capacity events.
func NewEventRing(capacity int) *EventRing {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &EventRing{limit: capacity}
}

// Push appends e and reports whether the oldest event was evicted.
func (r *EventRing) Push(e Event) bool {
	if r.limit <= 0 {
		r.limit = DefaultCapacity
	}
	if len(r.buf) < r.limit {
		r.buf = append(r.buf, e)
		return false
	}
	r.buf[r.head] = e
	r.head = (r.head + 1) % r.limit
	return true
}

// Snapshot returns a copy of the events, oldest first.
func (r *EventRing) Snapshot() []Event {
	if r == nil || len(r.buf) == 0 {
		return nil
	}
	out := make([]Event, len(r.buf))
	n := copy(out, r.buf[r.head:])
	copy(out[n:], r.buf[:r.head])
	return out
}

// Len returns the number of stored events.
func (r *EventRing) Len() int {
	if r == nil {
		return 0
	}
	return len(r.buf)
}

// Cap returns the ring capacity.
func (r *EventRing) Cap() int {
	return r.limit
}

// SetCap changes the capacity, dropping the oldest events that no longer fit.
func (r *EventRing) SetCap(capacity int) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if capacity == r.limit {
		return
	}
	events := r.Snapshot()
	if len(events) > capacity {
		events = events[len(events)-capacity:]
	}
	r.buf = events
	r.head = 0
	r.limit = capacity
}

// MarshalJSON encodes the ring as a chronological JSON array.
func (r *EventRing) MarshalJSON() ([]byte, error) {
	events := r.Snapshot()
	if events == nil {
		events = []Event{}
	}
	return json.Marshal(events)
}

// UnmarshalJSON decodes a JSON array into a ring holding every stored
// event, with at least DefaultCapacity room. The owning Ledger applies its
// configured capacity afterwards.
func (r *EventRing) UnmarshalJSON(data []byte) error {
	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return err
	}
	r.buf = events
	r.head = 0
	r.limit = max(DefaultCapacity, len(events))
	return nil
}
