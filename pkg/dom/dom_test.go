package dom

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

const page = `<html><body>
<div id="app" class="a b">
  <p v-text="title">x</p>
  <ul><li class="item"><span>one</span></li><li class="item"><span>two</span></li></ul>
  <input id="name" value="ann">
  <textarea id="bio">hi</textarea>
  <select id="pick"><option>a</option><option value="bee" selected>b</option></select>
</div>
</body></html>`

func mustParse(t *testing.T) *Document {
	t.Helper()
	d, err := ParseString(page)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	return d
}

func mustQuery(t *testing.T, d *Document, sel string) *html.Node {
	t.Helper()
	n, err := d.Query(sel)
	if err != nil || n == nil {
		t.Fatalf("Query(%q) = %v, %v", sel, n, err)
	}
	return n
}

func TestAttributes(t *testing.T) {
	d := mustParse(t)
	app := mustQuery(t, d, "#app")

	SetAttr(app, "title", "t")
	if v, _ := Attr(app, "title"); v != "t" {
		t.Errorf("title = %q", v)
	}
	RemoveAttr(app, "title")
	if HasAttr(app, "title") {
		t.Error("title not removed")
	}

	AddClass(app, "c")
	AddClass(app, "c")
	RemoveClass(app, "a")
	if got := strings.Join(Classes(app), " "); got != "b c" {
		t.Errorf("classes = %q, want %q", got, "b c")
	}
	ToggleClass(app, "b", false)
	ToggleClass(app, "c", false)
	if HasAttr(app, "class") {
		t.Error("empty class attribute kept")
	}
}

func TestVisibility(t *testing.T) {
	d := mustParse(t)
	p := mustQuery(t, d, "p")
	SetAttr(p, "style", "color: red")
	Hide(p)
	if !Hidden(p) {
		t.Fatal("Hide did not hide")
	}
	Show(p)
	if Hidden(p) {
		t.Fatal("Show did not show")
	}
	if v, _ := Attr(p, "style"); v != "color: red" {
		t.Errorf("style = %q, want color: red", v)
	}
}

func TestTextAndValues(t *testing.T) {
	d := mustParse(t)
	p := mustQuery(t, d, "p")
	SetText(p, "<hello>")
	if Text(p) != "<hello>" {
		t.Errorf("Text = %q", Text(p))
	}
	if !strings.Contains(Render(p), "&lt;hello&gt;") {
		t.Errorf("text not escaped: %s", Render(p))
	}

	tests := []struct {
		sel, want, set string
	}{
		{"#name", "ann", "bob"},
		{"#bio", "hi", "there"},
		{"#pick", "bee", "a"},
	}
	for _, tt := range tests {
		n := mustQuery(t, d, tt.sel)
		if got := Value(n); got != tt.want {
			t.Errorf("Value(%s) = %q, want %q", tt.sel, got, tt.want)
		}
		SetValue(n, tt.set)
		if got := Value(n); got != tt.set {
			t.Errorf("after SetValue(%s) = %q, want %q", tt.sel, got, tt.set)
		}
	}
}

func TestTreeOps(t *testing.T) {
	d := mustParse(t)
	ul := mustQuery(t, d, "ul")
	first := ul.FirstChild
	SetAttr(first, HIDAttr, "h99")

	marker := NewComment("v-for")
	InsertBefore(first, marker)
	c := Clone(first)
	if HasAttr(c, HIDAttr) {
		t.Error("clone kept hydration id")
	}
	InsertAfter(first, c)
	if first.NextSibling != c || marker.NextSibling != first {
		t.Fatal("siblings out of order")
	}
	Remove(c)
	if c.Parent != nil {
		t.Error("Remove left a parent")
	}
	ReplaceWith(first, c)
	if marker.NextSibling != c || Attached(first) {
		t.Error("ReplaceWith did not swap nodes")
	}
	if !Attached(c) || !Contains(ul, c) {
		t.Error("replacement not attached")
	}
}

func TestFindByAttrIncludesRoot(t *testing.T) {
	d := mustParse(t)
	p := mustQuery(t, d, "p")
	if got := FindByAttr(p, "v-text"); len(got) != 1 || got[0] != p {
		t.Errorf("FindByAttr = %v", got)
	}
	if got := FindByAttr(d.Body(), "v-text"); len(got) != 1 {
		t.Errorf("FindByAttr(body) = %d nodes", len(got))
	}
}

func TestHIDs(t *testing.T) {
	d, err := ParseString(`<body><a data-hid="h1">x</a><b>y</b></body>`)
	if err != nil {
		t.Fatal(err)
	}
	b := mustQuery(t, d, "b")
	id := d.HID(b)
	if id == "h1" {
		t.Fatal("generated id collides with existing one")
	}
	if d.HID(b) != id {
		t.Error("HID not stable")
	}
	if n, ok := d.ByHID(id); !ok || n != b {
		t.Error("ByHID mismatch")
	}
	d.Release(b)
	Remove(b)
	if _, ok := d.ByHID(id); ok {
		t.Error("released id still resolves")
	}
}

func TestDispatchBubblesAndDelegates(t *testing.T) {
	d := mustParse(t)
	ul := mustQuery(t, d, "ul")
	span := mustQuery(t, d, "li:nth-child(2) span")

	var log []string
	d.On(span, "click", func(e *Event) error {
		log = append(log, "span")
		return nil
	})
	if _, err := d.OnDelegate(ul, "click", "li.item", func(e *Event) error {
		log = append(log, "li:"+Text(e.CurrentTarget()))
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	remove := d.On(ul, "click", func(e *Event) error {
		log = append(log, "ul")
		return nil
	})
	d.On(ul, "input", func(e *Event) error {
		log = append(log, "input")
		return nil
	})

	if err := d.Dispatch(span, NewEvent("click")); err != nil {
		t.Fatal(err)
	}
	want := "span,li:two,ul"
	if got := strings.Join(log, ","); got != want {
		t.Errorf("log = %s, want %s", got, want)
	}

	log = nil
	remove()
	ev := NewEvent("click")
	d.On(span, "click", func(e *Event) error {
		e.StopPropagation()
		return nil
	})
	if err := d.Dispatch(span, ev); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(log, ","); got != "span" {
		t.Errorf("after stop = %s, want span", got)
	}
}

func TestDispatchError(t *testing.T) {
	d := mustParse(t)
	p := mustQuery(t, d, "p")
	boom := errors.New("boom")
	d.On(p, "click", func(*Event) error { return boom })
	if err := d.Dispatch(p, NewEvent("click")); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if ok, err := d.DispatchHID("missing", NewEvent("click")); ok || err != nil {
		t.Errorf("DispatchHID(missing) = %v, %v", ok, err)
	}
}

func TestParseFragment(t *testing.T) {
	d := mustParse(t)
	nodes, err := d.ParseFragment(`<li>a</li><li>b</li>`)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 || nodes[0].Parent != nil {
		t.Errorf("fragment = %d nodes", len(nodes))
	}
}
