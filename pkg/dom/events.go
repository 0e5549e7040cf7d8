package dom

import (
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Event is a DOM event delivered to listeners. Exported fields are visible
// to handler expressions as the event local.
type Event struct {
	Type        string
	Value       string
	Data        string
	Key         string
	Checked     bool
	IsComposing bool

	target  *html.Node
	current *html.Node
	stopped bool
}

// NewEvent creates an event of the given type.
func NewEvent(typ string) *Event {
	return &Event{Type: typ}
}

// Target returns the element the event was dispatched to.
func (e *Event) Target() *html.Node { return e.target }

// CurrentTarget returns the element whose listener is running; for delegated
// listeners it is the element matching the selector.
func (e *Event) CurrentTarget() *html.Node { return e.current }

// StopPropagation prevents ancestors from seeing the event.
func (e *Event) StopPropagation() { e.stopped = true }

// Listener handles an event.
type Listener func(e *Event) error

type listener struct {
	typ      string
	selector cascadia.Sel
	fn       Listener
}

// On registers fn for events of typ reaching n. The returned function
// unregisters it.
func (d *Document) On(n *html.Node, typ string, fn Listener) (remove func()) {
	return d.add(n, &listener{typ: typ, fn: fn})
}

// OnDelegate registers fn on n for events of typ whose target is, or is
// inside, a descendant of n matching selector.
func (d *Document) OnDelegate(n *html.Node, typ, selector string, fn Listener) (remove func(), err error) {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return func() {}, err
	}
	return d.add(n, &listener{typ: typ, selector: sel, fn: fn}), nil
}

func (d *Document) add(n *html.Node, l *listener) func() {
	d.listeners[n] = append(d.listeners[n], l)
	return func() {
		ls := d.listeners[n]
		for i, x := range ls {
			if x == l {
				d.listeners[n] = append(ls[:i:i], ls[i+1:]...)
				return
			}
		}
	}
}

// Listeners returns how many listeners are registered on n.
func (d *Document) Listeners(n *html.Node) int {
	return len(d.listeners[n])
}

// Dispatch delivers e to target and bubbles it to the document root. The
// first listener error stops the dispatch and is returned.
func (d *Document) Dispatch(target *html.Node, e *Event) error {
	e.target = target
	if e.Value == "" && IsElement(target) {
		e.Value = Value(target)
	}
	for n := target; n != nil && !e.stopped; n = n.Parent {
		ls := d.listeners[n]
		for _, l := range ls[:len(ls):len(ls)] {
			if l.typ != e.Type {
				continue
			}
			current := n
			if l.selector != nil {
				current = delegateMatch(n, target, l.selector)
				if current == nil {
					continue
				}
			}
			e.current = current
			if err := l.fn(e); err != nil {
				return err
			}
		}
	}
	return nil
}

// DispatchHID dispatches e to the element with hydration id id. Unknown ids
// are ignored and reported as false.
func (d *Document) DispatchHID(id string, e *Event) (bool, error) {
	n, ok := d.ByHID(id)
	if !ok {
		return false, nil
	}
	return true, d.Dispatch(n, e)
}

// delegateMatch finds the closest element from target up to, excluding,
// host that matches sel.
func delegateMatch(host, target *html.Node, sel cascadia.Sel) *html.Node {
	for n := target; n != nil && n != host; n = n.Parent {
		if IsElement(n) && sel.Match(n) {
			return n
		}
	}
	return nil
}
