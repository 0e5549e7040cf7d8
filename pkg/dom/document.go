package dom

import (
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed page plus its listener registry and hydration ids.
type Document struct {
	root      *html.Node
	hids      *HIDGenerator
	byHID     map[string]*html.Node
	listeners map[*html.Node][]*listener
}

// Parse reads a full HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return newDocument(root), nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

func newDocument(root *html.Node) *Document {
	d := &Document{
		root:      root,
		hids:      NewHIDGenerator(),
		byHID:     make(map[string]*html.Node),
		listeners: make(map[*html.Node][]*listener),
	}
	d.adoptHIDs(root)
	return d
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Body returns the body element, or the document node when there is none.
func (d *Document) Body() *html.Node {
	var body *html.Node
	walk(d.root, func(n *html.Node) bool {
		if body != nil {
			return false
		}
		if n.DataAtom == atom.Body {
			body = n
			return false
		}
		return true
	})
	if body == nil {
		return d.root
	}
	return body
}

// ParseFragment parses markup in the context of the body element. The
// returned nodes are detached.
func (d *Document) ParseFragment(markup string) ([]*html.Node, error) {
	return html.ParseFragment(strings.NewReader(markup), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
}

// Query returns the first element under root matching a CSS selector.
func Query(root *html.Node, selector string) (*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, err
	}
	return sel.MatchFirst(root), nil
}

// QueryAll returns every element under root matching a CSS selector.
func QueryAll(root *html.Node, selector string) ([]*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, err
	}
	return sel.MatchAll(root), nil
}

// Query runs Query from the document root.
func (d *Document) Query(selector string) (*html.Node, error) {
	return Query(d.root, selector)
}

// QueryAll runs QueryAll from the document root.
func (d *Document) QueryAll(selector string) ([]*html.Node, error) {
	return QueryAll(d.root, selector)
}

// adoptHIDs registers ids already present in the markup so that generated
// ids never collide with them.
func (d *Document) adoptHIDs(root *html.Node) {
	Walk(root, func(n *html.Node) bool {
		if id, ok := Attr(n, HIDAttr); ok {
			d.byHID[id] = n
		}
		return true
	})
}

// HID returns the hydration id of n, assigning one when missing.
func (d *Document) HID(n *html.Node) string {
	if id, ok := Attr(n, HIDAttr); ok {
		d.byHID[id] = n
		return id
	}
	id := d.hids.Next()
	for d.byHID[id] != nil {
		id = d.hids.Next()
	}
	SetAttr(n, HIDAttr, id)
	d.byHID[id] = n
	return id
}

// ByHID returns the attached element with hydration id id.
func (d *Document) ByHID(id string) (*html.Node, bool) {
	n, ok := d.byHID[id]
	if !ok || !Contains(d.root, n) {
		return nil, false
	}
	return n, true
}

// Release forgets the listeners and ids of n and its descendants. Call it
// when a subtree is discarded.
func (d *Document) Release(n *html.Node) {
	walk(n, func(c *html.Node) bool {
		delete(d.listeners, c)
		if id, ok := Attr(c, HIDAttr); ok && d.byHID[id] == c {
			delete(d.byHID, id)
		}
		return true
	})
}

// Render returns the HTML of the whole document.
func (d *Document) Render() string {
	return Render(d.root)
}

// RenderBody returns the inner HTML of the body element.
func (d *Document) RenderBody() string {
	return InnerHTML(d.Body())
}
