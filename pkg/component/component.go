package component

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/net/html"

	"github.com/vango-dev/vbind/internal/errors"
	"github.com/vango-dev/vbind/pkg/directive"
	"github.com/vango-dev/vbind/pkg/dom"
	"github.com/vango-dev/vbind/pkg/expr"
	"github.com/vango-dev/vbind/pkg/metrics"
	"github.com/vango-dev/vbind/pkg/pubsub"
	"github.com/vango-dev/vbind/pkg/reactive"
	"github.com/vango-dev/vbind/pkg/state"
)

// Component binds one element to its own observable data.
type Component struct {
	name    string
	opts    Options
	doc     *dom.Document
	el      *html.Node
	inst    *reactive.Instance
	prop    *reactive.Node
	data    *reactive.Node
	links   []propLink
	funcs   expr.Funcs
	comp    *directive.Compiler
	bus     *pubsub.Bus
	queue   *reactive.Queue
	globals *Globals
	logger  *slog.Logger
	metrics metrics.Recorder

	parent   *Component
	children map[string]*Component
	cleanup  []func()
	inited   bool
}

// New validates the options, builds the observable roots and schedules
// initialisation on the queue. Configuration errors are returned here;
// errors of the deferred initialisation surface from Queue.Drain.
func New(opts Options) (*Component, error) {
	name := opts.Name
	if name == "" {
		name = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", name)
	bus := opts.Bus
	if bus == nil {
		bus = pubsub.New()
	}
	queue := opts.Queue
	if queue == nil {
		queue = reactive.NewQueue()
	}
	globals := opts.Globals
	if globals == nil {
		globals = NewGlobals()
	}
	if opts.Root != nil && opts.Document == nil {
		return nil, errors.Newf(errors.CategoryConfig, "component %q has a root element but no document", name)
	}

	prop, links, err := splitProps(opts.Prop)
	if err != nil {
		return nil, err
	}
	if err := checkProps(prop, opts.PropTypes); err != nil {
		return nil, err
	}

	data := state.NewObject()
	if opts.Data != nil {
		data = state.Clone(opts.Data).(*state.Object)
	}
	for _, key := range data.Keys() {
		if prop.Has(key) {
			return nil, errors.New(errors.CodeDuplicateKey).
				WithDetailf("data key %q of component %q is also a prop", key, name)
		}
	}

	c := &Component{
		name:     name,
		opts:     opts,
		doc:      opts.Document,
		el:       opts.Root,
		links:    links,
		funcs:    expr.Funcs{},
		bus:      bus,
		queue:    queue,
		globals:  globals,
		logger:   logger,
		metrics:  metrics.Or(opts.Metrics),
		children: make(map[string]*Component),
	}

	c.inst = reactive.New(reactive.Options{
		Mode:    opts.Mode,
		Bus:     bus,
		Queue:   queue,
		Logger:  logger,
		Metrics: c.metrics,
	})
	if c.prop, err = c.inst.Observe(prop); err != nil {
		return nil, err
	}
	if c.data, err = c.inst.Observe(data); err != nil {
		return nil, err
	}

	for mname, m := range opts.Methods {
		c.funcs.Add(mname, c.bind(m))
	}
	if err := c.expose(); err != nil {
		return nil, err
	}

	c.comp = directive.New(directive.Options{
		Document:  c.doc,
		Instance:  c.inst,
		Evaluator: opts.Evaluator,
		Funcs:     c.funcs,
		Bus:       bus,
		Logger:    logger,
		Metrics:   c.metrics,
	})

	queue.Enqueue(c.init)
	return c, nil
}

func (c *Component) bind(m Method) expr.Func {
	return func(args ...any) (any, error) {
		return m(c, args...)
	}
}

func (c *Component) expose() error {
	for _, name := range c.opts.Expose {
		m, ok := c.opts.Methods[name]
		if !ok {
			return errors.Newf(errors.CategoryConfig, "exposed name %q is not a method of component %q", name, c.name)
		}
		if err := c.globals.Register(name, Global(c.bind(m))); err != nil {
			return err
		}
	}
	return nil
}

func (c *Component) init() (err error) {
	ctx, span := metrics.StartSpan(context.Background(), "component.init",
		attribute.String("vbind.component", c.name),
		attribute.Bool("vbind.assign", c.opts.Assign),
	)
	defer func() { metrics.EndSpan(span, err) }()

	if c.el != nil {
		if c.opts.Assign {
			if err := c.comp.Assign(ctx, c.el); err != nil {
				return err
			}
			err = c.comp.Bind(ctx, c.el, nil)
		} else {
			err = c.comp.Compile(ctx, c.el, nil)
		}
		if err != nil {
			return err
		}
	}
	if err := c.attachEvents(); err != nil {
		return err
	}

	events := make([]string, 0, len(c.opts.On))
	for event := range c.opts.On {
		events = append(events, event)
	}
	sort.Strings(events)
	for _, event := range events {
		c.On(event, c.opts.On[event])
	}

	if c.opts.Inited != nil {
		if err := c.opts.Inited(c); err != nil {
			return err
		}
	}
	c.inited = true
	c.logger.Debug("component initialised", "keys", c.inst.Keys())
	return nil
}

func (c *Component) attachEvents() error {
	for _, spec := range c.opts.Events {
		if c.doc == nil {
			return errors.Newf(errors.CategoryConfig, "component %q has events but no document", c.name)
		}
		nodes, err := c.doc.QueryAll(spec.Selector)
		if err != nil {
			return errors.Newf(errors.CategoryConfig, "invalid event selector %q", spec.Selector).Wrap(err)
		}
		h := spec.Handler
		l := func(e *dom.Event) error { return h(c, e) }
		for _, n := range nodes {
			if spec.ChildSelector == "" {
				c.cleanup = append(c.cleanup, c.doc.On(n, spec.Event, l))
				continue
			}
			remove, err := c.doc.OnDelegate(n, spec.Event, spec.ChildSelector, l)
			if err != nil {
				return errors.Newf(errors.CategoryConfig, "invalid child selector %q", spec.ChildSelector).Wrap(err)
			}
			c.cleanup = append(c.cleanup, remove)
		}
	}
	return nil
}

// Name returns the component name.
func (c *Component) Name() string { return c.name }

// Root returns the component element.
func (c *Component) Root() *html.Node { return c.el }

// Document returns the document the component is bound to.
func (c *Component) Document() *dom.Document { return c.doc }

// Instance returns the component's reactive instance.
func (c *Component) Instance() *reactive.Instance { return c.inst }

// Compiler returns the component's directive compiler.
func (c *Component) Compiler() *directive.Compiler { return c.comp }

// Bus returns the event bus.
func (c *Component) Bus() *pubsub.Bus { return c.bus }

// Queue returns the task queue.
func (c *Component) Queue() *reactive.Queue { return c.queue }

// Globals returns the registry exposed methods are published to.
func (c *Component) Globals() *Globals { return c.globals }

// Prop returns the $prop root.
func (c *Component) Prop() *reactive.Node { return c.prop }

// Data returns the $data root.
func (c *Component) Data() *reactive.Node { return c.data }

// Parent returns the component this one is mounted under.
func (c *Component) Parent() *Component { return c.parent }

// Child returns the mounted child registered under name.
func (c *Component) Child(name string) (*Component, bool) {
	ch, ok := c.children[name]
	return ch, ok
}

// Inited reports whether deferred initialisation has completed.
func (c *Component) Inited() bool { return c.inited }

// Get returns the top-level value for key; containers come back wrapped.
func (c *Component) Get(key string) any { return c.inst.Get(key) }

// Lookup resolves a dot path to its raw value.
func (c *Component) Lookup(path string) (any, bool) { return c.inst.Lookup(path) }

// Assign replaces a top-level value and notifies every binding below it.
func (c *Component) Assign(key string, v any) error { return c.inst.Assign(key, v) }

// Eval evaluates an expression against the component data and methods.
func (c *Component) Eval(code string) (any, error) {
	return c.comp.Evaluator().Eval(c.comp.Env(nil), code)
}

// Exec runs statements against the component data and methods.
func (c *Component) Exec(code string) error {
	return c.comp.Evaluator().Exec(c.comp.Env(nil), code)
}

// Call invokes a method by name.
func (c *Component) Call(name string, args ...any) (any, error) {
	m, ok := c.opts.Methods[name]
	if !ok {
		return nil, errors.New(errors.CodeBinding).WithDetailf("component %q has no method %q", c.name, name)
	}
	return m(c, args...)
}

// Compile binds and renders a template fragment against the component.
// The fragment is returned for insertion.
func (c *Component) Compile(ctx context.Context, fragment *html.Node) (*html.Node, error) {
	if err := c.comp.Compile(ctx, fragment, nil); err != nil {
		return nil, err
	}
	return fragment, nil
}

// CompileHTML parses markup, compiles it and returns the top-level nodes.
func (c *Component) CompileHTML(ctx context.Context, markup string) ([]*html.Node, error) {
	nodes, err := c.doc.ParseFragment(markup)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidInput).Wrap(err)
	}
	holder := &html.Node{Type: html.ElementNode, Data: "div"}
	for _, n := range nodes {
		holder.AppendChild(n)
	}
	if err := c.comp.Compile(ctx, holder, nil); err != nil {
		return nil, err
	}
	var out []*html.Node
	for n := holder.FirstChild; n != nil; {
		next := n.NextSibling
		holder.RemoveChild(n)
		out = append(out, n)
		n = next
	}
	return out, nil
}

// On subscribes h to a bus event.
func (c *Component) On(event string, h Handler) {
	sub := c.bus.Subscribe(event, func(args ...any) error {
		return h(c, args...)
	})
	c.cleanup = append(c.cleanup, sub.Remove)
}

// Emit publishes an event with one argument on the bus.
func (c *Component) Emit(event string, data any) error {
	return c.bus.Publish(event, data)
}

// Close removes the component's bindings, DOM listeners and subscriptions.
func (c *Component) Close() {
	c.comp.Close()
	for i := len(c.cleanup) - 1; i >= 0; i-- {
		c.cleanup[i]()
	}
	c.cleanup = nil
}
