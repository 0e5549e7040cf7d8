package reactive

// Observer is a callback run when the value at a path changes.
type Observer func(value any) error

type subscriber struct {
	id uint64
	fn Observer
}

// Subject is an ordered list of observers.
type Subject struct {
	subs   []subscriber
	nextID uint64
}

// Add appends an observer and returns a function that removes it again.
func (s *Subject) Add(o Observer) (remove func()) {
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: o})
	return func() { s.remove(id) }
}

func (s *Subject) remove(id uint64) {
	for i, sub := range s.subs {
		if sub.id != id {
			continue
		}
		next := make([]subscriber, 0, len(s.subs)-1)
		next = append(next, s.subs[:i]...)
		s.subs = append(next, s.subs[i+1:]...)
		return
	}
}

// Len returns the number of observers.
func (s *Subject) Len() int {
	return len(s.subs)
}

// Notify runs every observer registered before the call, in order. Observers
// added during the dispatch run from the next Notify on. The first error stops
// the dispatch.
func (s *Subject) Notify(value any) error {
	for _, sub := range s.subs[:len(s.subs):len(s.subs)] {
		if err := sub.fn(value); err != nil {
			return err
		}
	}
	return nil
}
