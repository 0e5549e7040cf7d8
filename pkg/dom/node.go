package dom

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// Attr returns the value of attribute key.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether n carries attribute key.
func HasAttr(n *html.Node, key string) bool {
	_, ok := Attr(n, key)
	return ok
}

// SetAttr sets attribute key, appending it when absent.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes attribute key.
func RemoveAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr = append(n.Attr[:i:i], n.Attr[i+1:]...)
			return
		}
	}
}

// Classes returns the class list of n.
func Classes(n *html.Node) []string {
	v, _ := Attr(n, "class")
	return strings.Fields(v)
}

// HasClass reports whether n has class name.
func HasClass(n *html.Node, name string) bool {
	for _, c := range Classes(n) {
		if c == name {
			return true
		}
	}
	return false
}

// AddClass adds class name if missing.
func AddClass(n *html.Node, name string) {
	if HasClass(n, name) {
		return
	}
	SetAttr(n, "class", strings.Join(append(Classes(n), name), " "))
}

// RemoveClass removes class name. The attribute is dropped when it becomes
// empty.
func RemoveClass(n *html.Node, name string) {
	classes := Classes(n)
	kept := classes[:0]
	for _, c := range classes {
		if c != name {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		RemoveAttr(n, "class")
		return
	}
	SetAttr(n, "class", strings.Join(kept, " "))
}

// ToggleClass adds or removes class name.
func ToggleClass(n *html.Node, name string, on bool) {
	if on {
		AddClass(n, name)
	} else {
		RemoveClass(n, name)
	}
}

type declaration struct{ prop, val string }

func styleOf(n *html.Node) []declaration {
	v, _ := Attr(n, "style")
	var decls []declaration
	for _, part := range strings.Split(v, ";") {
		prop, val, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		decls = append(decls, declaration{strings.ToLower(strings.TrimSpace(prop)), strings.TrimSpace(val)})
	}
	return decls
}

func setStyle(n *html.Node, decls []declaration) {
	if len(decls) == 0 {
		RemoveAttr(n, "style")
		return
	}
	parts := make([]string, len(decls))
	for i, d := range decls {
		parts[i] = d.prop + ": " + d.val
	}
	SetAttr(n, "style", strings.Join(parts, "; "))
}

// Hidden reports whether n is hidden by an inline display: none.
func Hidden(n *html.Node) bool {
	for _, d := range styleOf(n) {
		if d.prop == "display" && d.val == "none" {
			return true
		}
	}
	return false
}

// Hide sets an inline display: none, keeping other declarations.
func Hide(n *html.Node) {
	decls := styleOf(n)
	for i, d := range decls {
		if d.prop == "display" {
			decls[i].val = "none"
			setStyle(n, decls)
			return
		}
	}
	setStyle(n, append(decls, declaration{"display", "none"}))
}

// Show removes an inline display: none.
func Show(n *html.Node) {
	decls := styleOf(n)
	kept := decls[:0]
	for _, d := range decls {
		if d.prop != "display" || d.val != "none" {
			kept = append(kept, d)
		}
	}
	setStyle(n, kept)
}

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode || c.Type == html.ElementNode {
			b.WriteString(Text(c))
		}
	}
	return b.String()
}

// SetText replaces the children of n with a single text node.
func SetText(n *html.Node, s string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
}

// Value returns the form value of an input, textarea or select element.
func Value(n *html.Node) string {
	switch n.DataAtom {
	case atom.Textarea:
		return Text(n)
	case atom.Select:
		var first *html.Node
		var found string
		var ok bool
		walk(n, func(c *html.Node) bool {
			if c.DataAtom != atom.Option {
				return true
			}
			if first == nil {
				first = c
			}
			if HasAttr(c, "selected") && !ok {
				found, ok = optionValue(c), true
			}
			return true
		})
		if ok {
			return found
		}
		if first != nil {
			return optionValue(first)
		}
		return ""
	}
	v, _ := Attr(n, "value")
	return v
}

func optionValue(n *html.Node) string {
	if v, ok := Attr(n, "value"); ok {
		return v
	}
	return strings.TrimSpace(Text(n))
}

// SetValue sets the form value of an input, textarea or select element.
func SetValue(n *html.Node, v string) {
	switch n.DataAtom {
	case atom.Textarea:
		SetText(n, v)
	case atom.Select:
		walk(n, func(c *html.Node) bool {
			if c.DataAtom == atom.Option {
				if optionValue(c) == v {
					SetAttr(c, "selected", "")
				} else {
					RemoveAttr(c, "selected")
				}
			}
			return true
		})
	default:
		SetAttr(n, "value", v)
	}
}

// NewComment creates a detached comment node.
func NewComment(text string) *html.Node {
	return &html.Node{Type: html.CommentNode, Data: text}
}

// Clone deep-copies n. The copy is detached and carries no hydration id.
func Clone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == HIDAttr {
			continue
		}
		c.Attr = append(c.Attr, a)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(Clone(child))
	}
	return c
}

// InsertBefore inserts n as the previous sibling of ref.
func InsertBefore(ref, n *html.Node) {
	detach(n)
	ref.Parent.InsertBefore(n, ref)
}

// InsertAfter inserts n as the next sibling of ref.
func InsertAfter(ref, n *html.Node) {
	detach(n)
	ref.Parent.InsertBefore(n, ref.NextSibling)
}

// Remove detaches n from its parent.
func Remove(n *html.Node) {
	detach(n)
}

// ReplaceWith puts nodes in place of old and detaches old.
func ReplaceWith(old *html.Node, nodes ...*html.Node) {
	for _, n := range nodes {
		InsertBefore(old, n)
	}
	detach(old)
}

// Attached reports whether n is connected to a document node.
func Attached(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.DocumentNode {
			return true
		}
	}
	return false
}

// Contains reports whether n is root or one of its descendants.
func Contains(root, n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// walk visits n and its descendants in document order. Returning false from
// fn skips the children of the visited node.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		walk(c, fn)
		c = next
	}
}

// Walk is the exported form of walk for elements only.
func Walk(n *html.Node, fn func(*html.Node) bool) {
	walk(n, func(c *html.Node) bool {
		if c.Type != html.ElementNode && c.Type != html.DocumentNode {
			return false
		}
		return fn(c)
	})
}

// FindByAttr returns n and its descendant elements carrying attribute key,
// in document order.
func FindByAttr(n *html.Node, key string) []*html.Node {
	var out []*html.Node
	Walk(n, func(c *html.Node) bool {
		if IsElement(c) && HasAttr(c, key) {
			out = append(out, c)
		}
		return true
	})
	return out
}

// Render writes the HTML of n.
func Render(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

// InnerHTML renders the children of n.
func InnerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return buf.String()
}
