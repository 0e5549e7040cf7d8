package live

import (
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/vango-dev/vbind/internal/errors"
	"github.com/vango-dev/vbind/pkg/component"
	"github.com/vango-dev/vbind/pkg/dom"
	"github.com/vango-dev/vbind/pkg/reactive"
	"github.com/vango-dev/vbind/pkg/state"
)

// Page is one live document with the queue and globals of its components.
// Every access goes through the page mutex.
type Page struct {
	name    string
	doc     *dom.Document
	queue   *reactive.Queue
	globals *component.Globals

	mu sync.Mutex
}

// NewPage creates a page. queue and globals must be the ones the page's
// components were built with.
func NewPage(name string, doc *dom.Document, queue *reactive.Queue, globals *component.Globals) *Page {
	if queue == nil {
		queue = reactive.NewQueue()
	}
	if globals == nil {
		globals = component.NewGlobals()
	}
	return &Page{name: name, doc: doc, queue: queue, globals: globals}
}

// Swap replaces the document, queue and globals of the page, for example
// after its template changed on disk.
func (p *Page) Swap(doc *dom.Document, queue *reactive.Queue, globals *component.Globals) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc = doc
	p.queue = queue
	p.globals = globals
}

// Name returns the page name.
func (p *Page) Name() string { return p.name }

// Document returns the page document.
func (p *Page) Document() *dom.Document {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc
}

// Do runs fn under the page lock and drains the queue afterwards. The queue
// is drained even when fn fails.
func (p *Page) Do(fn func() error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.do(fn)
}

func (p *Page) do(fn func() error) error {
	var err error
	if fn != nil {
		err = fn()
	}
	if derr := p.queue.Drain(); err == nil {
		err = derr
	}
	return err
}

// Dispatch applies a client event to the element with hydration id hid.
// A value carried by the event is written into form fields first.
func (p *Page) Dispatch(hid string, e *dom.Event, hasValue bool) error {
	return p.Do(func() error {
		n, ok := p.doc.ByHID(hid)
		if !ok {
			return errors.New(errors.CodeUnknownComponent).WithDetailf("no element %q on page %q", hid, p.name)
		}
		if hasValue && isField(n) {
			dom.SetValue(n, e.Value)
		}
		return p.doc.Dispatch(n, e)
	})
}

// Call invokes an exposed global. Container results are deep-copied under
// the page lock.
func (p *Page) Call(name string, args ...any) (any, error) {
	var out any
	err := p.Do(func() error {
		if _, ok := p.globals.Lookup(name); !ok {
			return errors.New(errors.CodeUnknownComponent).WithDetailf("no global %q on page %q", name, p.name)
		}
		v, err := p.globals.Call(name, args...)
		if err != nil {
			return err
		}
		out = state.Clone(reactive.Unwrap(v))
		return nil
	})
	return out, err
}

// HTML renders the full document with the client script injected before
// the closing body tag. route is the URL path the page is served at.
func (p *Page) HTML(socketPath, route string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stamp()
	out := p.doc.Render()
	script := clientScript(socketPath, route)
	if i := strings.LastIndex(out, "</body>"); i >= 0 {
		return out[:i] + script + out[i:]
	}
	return out + script
}

// Body renders the body content sent to clients after each change.
func (p *Page) Body() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stamp()
	return p.doc.RenderBody()
}

// stamp gives every body element a hydration id so clients can address it.
func (p *Page) stamp() {
	dom.Walk(p.doc.Body(), func(n *html.Node) bool {
		if dom.IsElement(n) {
			p.doc.HID(n)
		}
		return true
	})
}

func isField(n *html.Node) bool {
	switch n.Data {
	case "input", "textarea", "select":
		return true
	}
	return false
}
