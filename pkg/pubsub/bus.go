// Package pubsub is a named-event fan-out bus.
//
// One Bus is created per host and injected into every component that should
// share events; there is no package-level instance.
package pubsub

import "sync/atomic"

// Sweep events published after every data mutation. Subscribers re-evaluate
// their class, attribute and visibility bindings regardless of the path that
// changed.
const (
	EventUpdateClass = "#updateClass"
	EventUpdateAttr  = "#updateProp"
	EventUpdateShow  = "#updateShow"
)

// Handler receives the arguments passed to Publish.
type Handler func(args ...any) error

type entry struct {
	id uint64
	fn Handler
}

// Bus maps event names to ordered handler lists. It is not safe for
// concurrent use; hosts serialize access.
type Bus struct {
	events map[string][]entry
	nextID atomic.Uint64
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{events: make(map[string][]entry)}
}

// Subscription identifies one handler registration.
type Subscription struct {
	bus   *Bus
	event string
	id    uint64
}

// Remove unregisters the handler. Removing twice is a no-op.
func (s Subscription) Remove() {
	if s.bus == nil {
		return
	}
	s.bus.remove(s.event, s.id)
}

// Subscribe appends fn to the handlers of event.
func (b *Bus) Subscribe(event string, fn Handler) Subscription {
	id := b.nextID.Add(1)
	b.events[event] = append(b.events[event], entry{id: id, fn: fn})
	return Subscription{bus: b, event: event, id: id}
}

// Publish calls every handler of event in subscription order. Handlers added
// while publishing are not called by this publish. The first handler error
// stops the dispatch and is returned. Publishing an event nobody listens to
// does nothing.
func (b *Bus) Publish(event string, args ...any) error {
	fns := b.events[event]
	if event == "" || len(fns) == 0 {
		return nil
	}
	for i, n := 0, len(fns); i < n; i++ {
		if err := fns[i].fn(args...); err != nil {
			return err
		}
	}
	return nil
}

// RemoveAll drops every handler of event.
func (b *Bus) RemoveAll(event string) {
	delete(b.events, event)
}

// Len returns the number of handlers subscribed to event.
func (b *Bus) Len(event string) int {
	return len(b.events[event])
}

func (b *Bus) remove(event string, id uint64) {
	fns := b.events[event]
	for i, e := range fns {
		if e.id == id {
			// Copy so an in-flight Publish keeps iterating its own snapshot.
			next := make([]entry, 0, len(fns)-1)
			next = append(next, fns[:i]...)
			next = append(next, fns[i+1:]...)
			b.events[event] = next
			return
		}
	}
}
