package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vango-dev/vbind/internal/errors"
	"github.com/vango-dev/vbind/pkg/dom"
	"github.com/vango-dev/vbind/pkg/metrics"
	"github.com/vango-dev/vbind/pkg/reactive"
)

// DefaultSocketPath is the websocket route.
const DefaultSocketPath = "/_vbind/live"

// Options configures a Server.
type Options struct {
	// SocketPath is the websocket route (default DefaultSocketPath).
	SocketPath string

	// MetricsPath, when set, serves MetricsHandler there.
	MetricsPath string

	// MetricsHandler defaults to promhttp.Handler().
	MetricsHandler http.Handler

	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// Server routes page requests and websocket clients to live pages.
type Server struct {
	opts     Options
	router   chi.Router
	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  metrics.Recorder

	mu      sync.RWMutex
	pages   map[string]*Page
	clients map[*client]bool
}

type client struct {
	conn *websocket.Conn
	page *Page

	// gorilla connections support one concurrent writer.
	mu sync.Mutex
}

func (c *client) send(msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// New creates a Server with no pages.
func New(opts Options) *Server {
	if opts.SocketPath == "" {
		opts.SocketPath = DefaultSocketPath
	}
	if opts.MetricsPath != "" && opts.MetricsHandler == nil {
		opts.MetricsHandler = promhttp.Handler()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		opts:    opts,
		logger:  logger,
		metrics: metrics.Or(opts.Metrics),
		pages:   make(map[string]*Page),
		clients: make(map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(opts.SocketPath, s.handleSocket)
	if opts.MetricsPath != "" {
		r.Handle(opts.MetricsPath, opts.MetricsHandler)
	}
	r.Get("/*", s.handlePage)
	s.router = r
	return s
}

// Handle serves p at the URL path route.
func (s *Server) Handle(route string, p *Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[route] = p
}

// Page returns the page served at route.
func (s *Server) Page(route string) (*Page, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pages[route]
	return p, ok
}

// Routes returns the page routes in sorted order.
func (s *Server) Routes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	routes := make([]string, 0, len(s.pages))
	for r := range s.pages {
		routes = append(routes, r)
	}
	sort.Strings(routes)
	return routes
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	s.logger.Info("live server listening", "addr", addr, "pages", s.Routes())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Close()
		return srv.Shutdown(shutdownCtx)
	}
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Close disconnects every client.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.conn.Close()
		delete(s.clients, c)
		s.metrics.LiveClients(-1)
	}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	p, ok := s.Page(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(p.HTML(s.opts.SocketPath, r.URL.Path)))
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	p, ok := s.Page(r.URL.Query().Get("page"))
	if !ok {
		err := errors.New(errors.CodeUnknownComponent).WithDetailf("no page %q", r.URL.Query().Get("page"))
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, page: p}
	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()
	s.metrics.LiveClients(1)
	s.logger.Debug("client connected", "page", p.Name(), "remote", r.RemoteAddr)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.handleMessage(r.Context(), c, data)
	}

	s.drop(c)
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if ok {
		s.metrics.LiveClients(-1)
		c.conn.Close()
	}
}

func (s *Server) handleMessage(ctx context.Context, c *client, data []byte) {
	msg, err := decodeMessage(data)
	if err != nil {
		s.reply(c, errorMessage(err))
		return
	}

	name := msg.Type + ":" + msg.Event + msg.Name
	_, span := metrics.StartSpan(ctx, "live.message",
		attribute.String("vbind.page", c.page.Name()),
		attribute.String("vbind.message", name),
	)
	switch msg.Type {
	case TypeEvent:
		e := dom.NewEvent(msg.Event)
		if msg.Value != nil {
			e.Value = *msg.Value
		}
		e.Data = msg.Data
		e.Key = msg.Key
		e.Checked = msg.Checked
		e.IsComposing = msg.IsComposing
		err = c.page.Dispatch(msg.HID, e, msg.Value != nil)
	case TypeCall:
		var args []any
		if args, err = msg.args(); err == nil {
			var out any
			if out, err = c.page.Call(msg.Name, args...); err == nil {
				s.reply(c, ServerMessage{Type: TypeResult, Name: msg.Name, Result: reactive.Unwrap(out)})
			}
		}
	}
	metrics.EndSpan(span, err)
	s.metrics.LiveEvent(name, err)

	if err != nil {
		s.logger.Warn("live message failed", "page", c.page.Name(), "message", name, "error", err)
		s.reply(c, errorMessage(err))
	}
	s.broadcast(c.page)
}

func (s *Server) reply(c *client, msg ServerMessage) {
	if err := c.send(msg); err != nil {
		s.logger.Warn("dropping client", "page", c.page.Name(), "error", err)
		s.drop(c)
	}
}

// Reload tells every client of p to load the page again.
func (s *Server) Reload(p *Page) {
	for _, c := range s.clientsOf(p) {
		s.reply(c, ServerMessage{Type: TypeReload})
	}
}

// Broadcast sends the current body of p to all of its clients.
func (s *Server) Broadcast(p *Page) {
	s.broadcast(p)
}

func (s *Server) broadcast(p *Page) {
	msg := ServerMessage{Type: TypeRender, HTML: p.Body()}
	for _, c := range s.clientsOf(p) {
		s.reply(c, msg)
	}
}

func (s *Server) clientsOf(p *Page) []*client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		if c.page == p {
			clients = append(clients, c)
		}
	}
	return clients
}
