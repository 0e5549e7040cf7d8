package component

import (
	"context"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/vango-dev/vbind/internal/errors"
	"github.com/vango-dev/vbind/pkg/dom"
	"github.com/vango-dev/vbind/pkg/expr"
	"github.com/vango-dev/vbind/pkg/pubsub"
	"github.com/vango-dev/vbind/pkg/reactive"
	"github.com/vango-dev/vbind/pkg/state"
)

func parse(t *testing.T, body string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString("<html><body>" + body + "</body></html>")
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func query(t *testing.T, doc *dom.Document, sel string) *html.Node {
	t.Helper()
	n, err := doc.Query(sel)
	if err != nil || n == nil {
		t.Fatalf("Query(%q) = %v, %v", sel, n, err)
	}
	return n
}

func texts(t *testing.T, doc *dom.Document, sel string) string {
	t.Helper()
	nodes, err := doc.QueryAll(sel)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = dom.Text(n)
	}
	return strings.Join(out, ",")
}

func drain(t *testing.T, q *reactive.Queue) {
	t.Helper()
	if err := q.Drain(); err != nil {
		t.Fatalf("Drain: %v", err)
	}
}

func TestNewConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code string
	}{
		{
			name: "prop not an object",
			opts: Options{Prop: 3},
			code: errors.CodePropNotObject,
		},
		{
			name: "malformed schema",
			opts: Options{Prop: map[string]any{"n": 1}, PropTypes: map[string]PropType{"n": Type("int |")}},
			code: errors.CodePropTypes,
		},
		{
			name: "type mismatch",
			opts: Options{Prop: map[string]any{"n": "x"}, PropTypes: map[string]PropType{"n": Type("int")}},
			code: errors.CodePropType,
		},
		{
			name: "struct mismatch",
			opts: Options{
				Prop:      map[string]any{"user": map[string]any{"name": 1}},
				PropTypes: map[string]PropType{"user": Type("{name: string}")},
			},
			code: errors.CodePropType,
		},
		{
			name: "required missing",
			opts: Options{PropTypes: map[string]PropType{"n": Type("int").Require()}},
			code: errors.CodeRequiredMissing,
		},
		{
			name: "data duplicates prop",
			opts: Options{Prop: map[string]any{"n": 1}, Data: state.ObjectOf("n", 2)},
			code: errors.CodeDuplicateKey,
		},
		{
			name: "mapped prop duplicates data",
			opts: Options{Prop: map[string]any{"items:n": 1}, Data: state.ObjectOf("n", 2)},
			code: errors.CodeDuplicateKey,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			if !errors.HasCode(err, tt.code) {
				t.Fatalf("New() error = %v, want %s", err, tt.code)
			}
			if !errors.IsConfiguration(err) {
				t.Errorf("error %v is not a configuration error", err)
			}
		})
	}
}

func TestPropTypesAccept(t *testing.T) {
	c, err := New(Options{
		Prop: map[string]any{
			"count": 2,
			"user":  map[string]any{"name": "ann", "age": 3},
			"tags":  []any{"a", "b"},
			"none":  nil,
		},
		PropTypes: map[string]PropType{
			"count": Type("int"),
			"user":  Type("{name: string, age?: int}"),
			"tags":  Type("[...string]"),
			"none":  Type("string").Require(),
			"size":  Type("int").WithDefault(3),
			"open":  Type("bool").WithDefault(false).Require(),
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Get("size"); got != int64(3) {
		t.Errorf("default size = %#v", got)
	}
	if got := c.Get("open"); got != false {
		t.Errorf("default open = %#v", got)
	}
	if !c.Prop().Has("none") {
		t.Error("explicit nil prop dropped")
	}
}

func TestDefaultIsCopiedPerInstance(t *testing.T) {
	types := map[string]PropType{"list": Type("[...int]").WithDefault([]any{1})}
	a, err := New(Options{PropTypes: types})
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(Options{PropTypes: types})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Get("list").(*reactive.Node).Push(2); err != nil {
		t.Fatal(err)
	}
	if n := b.Get("list").(*reactive.Node).Len(); n != 1 {
		t.Errorf("b list length = %d, want 1", n)
	}
}

func TestPropAndDataAreCopies(t *testing.T) {
	user := state.ObjectOf("name", "ann")
	data := state.ObjectOf("items", []any{1})
	c, err := New(Options{Prop: state.ObjectOf("user", user), Data: data})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Get("user").(*reactive.Node).Set("name", "bob"); err != nil {
		t.Fatal(err)
	}
	if v, _ := user.Get("name"); v != "ann" {
		t.Errorf("prop argument mutated: %v", v)
	}
	if err := c.Get("items").(*reactive.Node).Push(2); err != nil {
		t.Fatal(err)
	}
	if v, _ := data.Get("items"); v.(*state.Array).Len() != 1 {
		t.Error("data argument mutated")
	}
}

func TestNameDefaultsToUUID(t *testing.T) {
	a, _ := New(Options{})
	b, _ := New(Options{})
	if len(a.Name()) != 36 || a.Name() == b.Name() {
		t.Errorf("names = %q, %q", a.Name(), b.Name())
	}
}

func TestDeferredInit(t *testing.T) {
	doc := parse(t, `<div id="app"><p v-text="title"></p><button v-on="click=inc()">+</button><span v-text="n"></span></div>`)
	q := reactive.NewQueue()
	var seen string
	c, err := New(Options{
		Document: doc,
		Root:     query(t, doc, "#app"),
		Data:     state.ObjectOf("title", "hi", "n", 0),
		Queue:    q,
		Methods: map[string]Method{
			"inc": func(c *Component, args ...any) (any, error) {
				n, _ := c.Lookup("n")
				return nil, c.Data().Set("n", n.(int64)+1)
			},
		},
		Inited: func(c *Component) error {
			seen = dom.Text(query(t, doc, "p"))
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.Inited() || dom.Text(query(t, doc, "p")) != "" {
		t.Fatal("initialised before the queue drained")
	}
	drain(t, q)
	if !c.Inited() || seen != "hi" {
		t.Fatalf("inited = %v, hook saw %q", c.Inited(), seen)
	}

	if err := doc.Dispatch(query(t, doc, "button"), dom.NewEvent("click")); err != nil {
		t.Fatal(err)
	}
	if got := dom.Text(query(t, doc, "span")); got != "1" {
		t.Errorf("after click span = %q", got)
	}
	if err := c.Exec("n += 1; title = 'yo'"); err != nil {
		t.Fatal(err)
	}
	if got := texts(t, doc, "p, span"); got != "yo,2" {
		t.Errorf("after Exec = %q", got)
	}
	if v, err := c.Eval("n * 10"); err != nil || v != int64(20) {
		t.Errorf("Eval = %v, %v", v, err)
	}
}

func TestInitErrorSurfacesFromDrain(t *testing.T) {
	doc := parse(t, `<div id="app"><p v-text="missing +"></p></div>`)
	q := reactive.NewQueue()
	if _, err := New(Options{Document: doc, Root: query(t, doc, "#app"), Queue: q}); err != nil {
		t.Fatal(err)
	}
	if err := q.Drain(); !errors.IsBinding(err) {
		t.Errorf("Drain() error = %v, want binding error", err)
	}
}

func TestMethodsAsFilters(t *testing.T) {
	doc := parse(t, `<div id="app"><p v-text="price | money('$')"></p></div>`)
	q := reactive.NewQueue()
	c, err := New(Options{
		Document: doc,
		Root:     query(t, doc, "#app"),
		Data:     state.ObjectOf("price", 5),
		Queue:    q,
		Methods: map[string]Method{
			"money": func(c *Component, args ...any) (any, error) {
				return expr.ToString(args[1]) + expr.ToString(args[0]), nil
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	drain(t, q)
	if got := dom.Text(query(t, doc, "p")); got != "$5" {
		t.Errorf("filtered = %q", got)
	}
	if v, err := c.Call("money", 7, "€"); err != nil || v != "€7" {
		t.Errorf("Call = %v, %v", v, err)
	}
	if _, err := c.Call("nope"); !errors.IsBinding(err) {
		t.Errorf("unknown method error = %v", err)
	}
}

func TestExposeGlobals(t *testing.T) {
	globals := NewGlobals()
	hello := map[string]Method{
		"hello": func(c *Component, args ...any) (any, error) {
			return "hello " + c.Name(), nil
		},
	}
	if _, err := New(Options{Name: "a", Methods: hello, Expose: []string{"hello"}, Globals: globals}); err != nil {
		t.Fatal(err)
	}
	if v, err := globals.Call("hello"); err != nil || v != "hello a" {
		t.Errorf("Call = %v, %v", v, err)
	}
	_, err := New(Options{Name: "b", Methods: hello, Expose: []string{"hello"}, Globals: globals})
	if !errors.HasCode(err, errors.CodeDuplicateGlobal) {
		t.Errorf("duplicate expose error = %v", err)
	}
	if _, err := globals.Call("missing"); !errors.HasCode(err, errors.CodeUnknownComponent) {
		t.Errorf("missing global error = %v", err)
	}
	if got := globals.Names(); len(got) != 1 || got[0] != "hello" {
		t.Errorf("Names = %v", got)
	}
}

func TestEventsOption(t *testing.T) {
	doc := parse(t, `<ul id="list"><li><button class="del">x</button></li></ul><a id="link">l</a>`)
	q := reactive.NewQueue()
	var got []string
	c, err := New(Options{
		Document: doc,
		Data:     state.ObjectOf("n", 0),
		Queue:    q,
		Events: []EventSpec{
			{Selector: "#list", Event: "click", ChildSelector: ".del", Handler: func(c *Component, e *dom.Event) error {
				got = append(got, "del:"+e.CurrentTarget().Data)
				return nil
			}},
			{Selector: "#link", Event: "click", Handler: func(c *Component, e *dom.Event) error {
				got = append(got, "link")
				return nil
			}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	drain(t, q)
	for _, sel := range []string{".del", "li", "#link"} {
		if err := doc.Dispatch(query(t, doc, sel), dom.NewEvent("click")); err != nil {
			t.Fatal(err)
		}
	}
	if strings.Join(got, " ") != "del:button link" {
		t.Errorf("handlers = %v", got)
	}

	c.Close()
	got = nil
	if err := doc.Dispatch(query(t, doc, "#link"), dom.NewEvent("click")); err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("listener survived Close: %v", got)
	}
}

func TestOnEmit(t *testing.T) {
	bus := pubsub.New()
	q := reactive.NewQueue()
	var got []any
	a, err := New(Options{Name: "a", Bus: bus, Queue: q, On: map[string]Handler{
		"ping": func(c *Component, args ...any) error {
			got = append(got, c.Name(), args[0])
			return nil
		},
	}})
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(Options{Name: "b", Bus: bus, Queue: q})
	if err != nil {
		t.Fatal(err)
	}
	drain(t, q)
	b.On("pong", func(c *Component, args ...any) error {
		got = append(got, c.Name(), args[0])
		return nil
	})

	if err := b.Emit("ping", 1); err != nil {
		t.Fatal(err)
	}
	if err := a.Emit("pong", nil); err != nil {
		t.Fatal(err)
	}
	if err := a.Emit("nobody", 3); err != nil {
		t.Fatal(err)
	}
	want := []any{"a", int(1), "b", nil}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestAssignMode(t *testing.T) {
	doc := parse(t, `<div id="app"><h1 v-text="title"> Server </h1><input v-model="q" value="go"></div>`)
	q := reactive.NewQueue()
	c, err := New(Options{
		Document: doc,
		Root:     query(t, doc, "#app"),
		Data:     state.ObjectOf("title", "", "q", ""),
		Queue:    q,
		Assign:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	drain(t, q)
	if c.Get("title") != "Server" || c.Get("q") != "go" {
		t.Fatalf("assigned title=%v q=%v", c.Get("title"), c.Get("q"))
	}
	if err := c.Data().Set("title", "Client"); err != nil {
		t.Fatal(err)
	}
	if got := dom.Text(query(t, doc, "h1")); got != "Client" {
		t.Errorf("h1 = %q", got)
	}
}

func TestCompileHTML(t *testing.T) {
	doc := parse(t, `<div id="app"></div>`)
	q := reactive.NewQueue()
	c, err := New(Options{
		Document: doc,
		Root:     query(t, doc, "#app"),
		Data:     state.ObjectOf("items", []any{"a", "b"}),
		Queue:    q,
	})
	if err != nil {
		t.Fatal(err)
	}
	drain(t, q)
	nodes, err := c.CompileHTML(context.Background(), `<li v-for="it in items" v-text="it"></li><p>end</p>`)
	if err != nil {
		t.Fatal(err)
	}
	app := query(t, doc, "#app")
	for _, n := range nodes {
		app.AppendChild(n)
	}
	if got := texts(t, doc, "#app li"); got != "a,b" {
		t.Fatalf("compiled list = %q", got)
	}
	if err := c.Get("items").(*reactive.Node).Push("c"); err != nil {
		t.Fatal(err)
	}
	if got := texts(t, doc, "#app li"); got != "a,b,c" {
		t.Errorf("after push = %q", got)
	}
}
