package live

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/vbind/internal/errors"
	"github.com/vango-dev/vbind/pkg/component"
	"github.com/vango-dev/vbind/pkg/dom"
	"github.com/vango-dev/vbind/pkg/metrics"
	"github.com/vango-dev/vbind/pkg/reactive"
	"github.com/vango-dev/vbind/pkg/state"
)

type harness struct {
	srv  *Server
	http *httptest.Server
	page *Page
	comp *component.Component
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	doc, err := dom.ParseString(`<html><body><button v-on="click=n += 1">+</button>` +
		`<span v-text="n"></span><input v-model="q"><p v-text="q"></p></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	queue := reactive.NewQueue()
	globals := component.NewGlobals()
	comp, err := component.New(component.Options{
		Name:     "counter",
		Document: doc,
		Root:     doc.Body(),
		Data:     state.ObjectOf("n", 0, "q", ""),
		Queue:    queue,
		Globals:  globals,
		Methods: map[string]component.Method{
			"set": func(c *component.Component, args ...any) (any, error) {
				return args[0], c.Assign("n", args[0])
			},
		},
		Expose: []string{"set"},
	})
	if err != nil {
		t.Fatal(err)
	}
	page := NewPage("counter", doc, queue, globals)
	if err := page.Do(nil); err != nil {
		t.Fatal(err)
	}

	srv := New(opts)
	srv.Handle("/", page)
	h := &harness{srv: srv, http: httptest.NewServer(srv.Handler()), page: page, comp: comp}
	t.Cleanup(func() {
		srv.Close()
		h.http.Close()
	})
	return h
}

func (h *harness) hid(t *testing.T, sel string) string {
	t.Helper()
	h.page.Body()
	n, err := h.page.Document().Query(sel)
	if err != nil || n == nil {
		t.Fatalf("Query(%q) = %v, %v", sel, n, err)
	}
	return h.page.Document().HID(n)
}

func (h *harness) dial(t *testing.T, page string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.http.URL, "http") + DefaultSocketPath + "?page=" + page
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg any) {
	t.Helper()
	var data []byte
	switch m := msg.(type) {
	case string:
		data = []byte(m)
	default:
		var err error
		if data, err = json.Marshal(m); err != nil {
			t.Fatal(err)
		}
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatal(err)
	}
}

func read(t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg ServerMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return msg
}

func text(t *testing.T, body, sel string) string {
	t.Helper()
	doc, err := dom.ParseString("<html><body>" + body + "</body></html>")
	if err != nil {
		t.Fatal(err)
	}
	n, err := doc.Query(sel)
	if err != nil || n == nil {
		t.Fatalf("Query(%q) in %q = %v, %v", sel, body, n, err)
	}
	return dom.Text(n)
}

func TestServePage(t *testing.T) {
	h := newHarness(t, Options{})

	tests := []struct {
		path   string
		status int
		want   []string
	}{
		{"/", http.StatusOK, []string{`<span data-hid="`, `">0</span>`, `id="vbind-live"`, `"/_vbind/live?page="`}},
		{"/missing", http.StatusNotFound, nil},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(h.http.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			for _, w := range tt.want {
				if !strings.Contains(string(body), w) {
					t.Errorf("body missing %q:\n%s", w, body)
				}
			}
			if tt.status == http.StatusOK && strings.Contains(string(body), "v-text") {
				t.Error("directive attributes leaked into the page")
			}
		})
	}
}

func TestEventRoundTrip(t *testing.T) {
	h := newHarness(t, Options{})
	button := h.hid(t, "button")
	input := h.hid(t, "input")
	a := h.dial(t, "/")
	b := h.dial(t, "/")

	send(t, a, map[string]any{"type": "event", "hid": button, "event": "click"})
	for _, conn := range []*websocket.Conn{a, b} {
		msg := read(t, conn)
		if msg.Type != TypeRender || text(t, msg.HTML, "span") != "1" {
			t.Fatalf("render = %+v", msg)
		}
	}

	send(t, b, map[string]any{"type": "event", "hid": input, "event": "input", "value": "hey"})
	msg := read(t, b)
	if text(t, msg.HTML, "p") != "hey" {
		t.Errorf("model render = %q", msg.HTML)
	}
	read(t, a)
	if v, _ := h.comp.Lookup("q"); v != "hey" {
		t.Errorf("q = %v", v)
	}
}

func TestCallRoundTrip(t *testing.T) {
	h := newHarness(t, Options{})
	conn := h.dial(t, "/")

	send(t, conn, map[string]any{"type": "call", "name": "set", "args": []any{41}})
	msg := read(t, conn)
	if msg.Type != TypeResult || msg.Name != "set" || msg.Result != float64(41) {
		t.Fatalf("result = %+v", msg)
	}
	msg = read(t, conn)
	if msg.Type != TypeRender || text(t, msg.HTML, "span") != "41" {
		t.Errorf("render = %+v", msg)
	}
}

func TestPageCallCopiesResult(t *testing.T) {
	doc, err := dom.ParseString(`<html><body><ul><li v-for="it in list" v-text="it"></li></ul></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	queue := reactive.NewQueue()
	globals := component.NewGlobals()
	comp, err := component.New(component.Options{
		Document: doc,
		Root:     doc.Body(),
		Data:     state.ObjectOf("list", []any{"a"}),
		Queue:    queue,
		Globals:  globals,
		Methods: map[string]component.Method{
			"items": func(c *component.Component, args ...any) (any, error) {
				return c.Get("list"), nil
			},
		},
		Expose: []string{"items"},
	})
	if err != nil {
		t.Fatal(err)
	}
	page := NewPage("list", doc, queue, globals)

	out, err := page.Call("items")
	if err != nil {
		t.Fatal(err)
	}
	items, ok := out.(*state.Array)
	if !ok {
		t.Fatalf("result = %T", out)
	}
	if state.Tagged(items) {
		t.Errorf("result carries path %q", state.PathOf(items))
	}
	if err := page.Do(func() error {
		return comp.Get("list").(*reactive.Node).Push("b")
	}); err != nil {
		t.Fatal(err)
	}
	if items.Len() != 1 {
		t.Errorf("result changed with page data: len = %d", items.Len())
	}
}

func TestMessageErrors(t *testing.T) {
	h := newHarness(t, Options{})
	conn := h.dial(t, "/")

	tests := []struct {
		name string
		msg  any
		code string
	}{
		{"malformed", "{", errors.CodeInvalidInput},
		{"unknown type", map[string]any{"type": "noop"}, errors.CodeInvalidInput},
		{"event without hid", map[string]any{"type": "event", "event": "click"}, errors.CodeInvalidInput},
		{"unknown element", map[string]any{"type": "event", "hid": "h999", "event": "click"}, errors.CodeUnknownComponent},
		{"unknown global", map[string]any{"type": "call", "name": "nope"}, errors.CodeUnknownComponent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(t, conn, tt.msg)
			msg := read(t, conn)
			if msg.Type != TypeError || msg.Code != tt.code {
				t.Fatalf("reply = %+v, want error %s", msg, tt.code)
			}
			if tt.code == errors.CodeUnknownComponent {
				if msg := read(t, conn); msg.Type != TypeRender {
					t.Errorf("after failed message got %+v, want render", msg)
				}
			}
		})
	}
}

func TestUnknownSocketPage(t *testing.T) {
	h := newHarness(t, Options{})
	url := "ws" + strings.TrimPrefix(h.http.URL, "http") + DefaultSocketPath + "?page=/nope"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial succeeded for unknown page")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("response = %v", resp)
	}
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.NewPrometheus(metrics.WithRegistry(reg))
	h := newHarness(t, Options{
		MetricsPath:    "/metrics",
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Metrics:        rec,
	})
	conn := h.dial(t, "/")
	send(t, conn, map[string]any{"type": "event", "hid": h.hid(t, "button"), "event": "click"})
	read(t, conn)

	resp, err := http.Get(h.http.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`vbind_live_events_total{event="event:click",status="success"} 1`,
		`vbind_live_clients 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestPageDrainsQueue(t *testing.T) {
	doc, err := dom.ParseString(`<html><body><ul><li v-for="it in list" v-text="it"></li></ul></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	queue := reactive.NewQueue()
	comp, err := component.New(component.Options{
		Document: doc,
		Root:     doc.Body(),
		Data:     state.ObjectOf("list", []any{"a"}),
		Queue:    queue,
		Mode:     reactive.ModeFallback,
	})
	if err != nil {
		t.Fatal(err)
	}
	page := NewPage("list", doc, queue, nil)
	if err := page.Do(nil); err != nil {
		t.Fatal(err)
	}
	if err := page.Do(func() error {
		return comp.Get("list").(*reactive.Node).Push("b")
	}); err != nil {
		t.Fatal(err)
	}
	if queue.Len() != 0 {
		t.Errorf("queue not drained: %d jobs", queue.Len())
	}
	var items []string
	lis, _ := doc.QueryAll("li")
	for _, n := range lis {
		items = append(items, dom.Text(n))
	}
	if strings.Join(items, ",") != "a,b" {
		t.Errorf("items = %v", items)
	}
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "page.html")
	data := filepath.Join(dir, "data.json")
	if err := os.WriteFile(page, []byte("<p></p>"), 0644); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(time.Millisecond, page, data)
	if got := w.Check(); len(got) != 0 {
		t.Fatalf("unchanged files reported: %v", got)
	}

	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(page, later, later); err != nil {
		t.Fatal(err)
	}
	if got := w.Check(); len(got) != 1 || got[0] != page {
		t.Errorf("after touch = %v", got)
	}
	if got := w.Check(); len(got) != 0 {
		t.Errorf("change reported twice: %v", got)
	}

	if err := os.WriteFile(data, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := w.Check(); len(got) != 1 || got[0] != data {
		t.Errorf("created file = %v", got)
	}
}

func TestWatcherRun(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "page.html")
	if err := os.WriteFile(page, []byte("<p></p>"), 0644); err != nil {
		t.Fatal(err)
	}
	w := NewWatcher(5*time.Millisecond, page)
	got := make(chan []string, 1)
	w.OnChange(func(changed []string) {
		select {
		case got <- changed:
		default:
		}
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(page, later, later); err != nil {
		t.Fatal(err)
	}
	select {
	case changed := <-got:
		if len(changed) != 1 || changed[0] != page {
			t.Errorf("changed = %v", changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run() = %v", err)
	}
}

func TestReloadAndSwap(t *testing.T) {
	h := newHarness(t, Options{})
	conn := h.dial(t, "/")

	doc, err := dom.ParseString(`<html><body><em>new</em></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	h.page.Swap(doc, reactive.NewQueue(), component.NewGlobals())
	h.srv.Reload(h.page)
	if msg := read(t, conn); msg.Type != TypeReload {
		t.Fatalf("got %+v, want reload", msg)
	}
	if body := h.page.Body(); !strings.Contains(body, ">new</em>") {
		t.Errorf("body after swap = %q", body)
	}
}
