package directive

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/net/html"

	"github.com/vango-dev/vbind/pkg/dom"
	"github.com/vango-dev/vbind/pkg/expr"
	"github.com/vango-dev/vbind/pkg/metrics"
	"github.com/vango-dev/vbind/pkg/pubsub"
	"github.com/vango-dev/vbind/pkg/reactive"
)

// Binding attribute names.
const (
	AttrText  = "v-text"
	AttrModel = "v-model"
	AttrClass = "v-class"
	AttrAttr  = "v-attr"
	AttrShow  = "v-show"
	AttrOn    = "v-on"
	AttrFor   = "v-for"
	AttrData  = "v-data"
	AttrArray = "v-array"
	AttrNo    = "v-no"
)

// Attributes lists every attribute stripped after compilation.
var Attributes = []string{AttrText, AttrOn, AttrArray, AttrClass, AttrModel, AttrData, AttrShow, AttrFor, AttrAttr, AttrNo}

// Options configures a Compiler.
type Options struct {
	Document  *dom.Document
	Instance  *reactive.Instance
	Evaluator expr.Evaluator
	Funcs     expr.Funcs

	// Bus carries the class, attribute and show sweeps. It must be the bus
	// the instance publishes to.
	Bus *pubsub.Bus

	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// Compiler binds template subtrees of one document to one instance.
type Compiler struct {
	doc     *dom.Document
	inst    *reactive.Instance
	eval    expr.Evaluator
	funcs   expr.Funcs
	bus     *pubsub.Bus
	logger  *slog.Logger
	metrics metrics.Recorder

	root unit
}

// New creates a Compiler.
func New(opts Options) *Compiler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bus := opts.Bus
	if bus == nil {
		bus = opts.Instance.Center().Bus()
	}
	ev := opts.Evaluator
	if ev == nil {
		ev = expr.NewSandbox(expr.WithLogger(logger))
	}
	return &Compiler{
		doc:     opts.Document,
		inst:    opts.Instance,
		eval:    ev,
		funcs:   opts.Funcs,
		bus:     bus,
		logger:  logger,
		metrics: metrics.Or(opts.Metrics),
	}
}

// Document returns the bound document.
func (c *Compiler) Document() *dom.Document { return c.doc }

// Evaluator returns the expression evaluator.
func (c *Compiler) Evaluator() expr.Evaluator { return c.eval }

// Env returns the evaluation environment for a scope.
func (c *Compiler) Env(scope *expr.Locals) *expr.Env {
	return &expr.Env{Instance: c.inst, Funcs: c.funcs, Locals: scope}
}

// unit collects the teardown functions of the bindings of one subtree.
type unit struct {
	disposers []func()
}

func (u *unit) add(f func()) {
	u.disposers = append(u.disposers, f)
}

func (u *unit) dispose() {
	for i := len(u.disposers) - 1; i >= 0; i-- {
		u.disposers[i]()
	}
	u.disposers = nil
}

type pass struct {
	render bool
	unit   *unit
	count  int

	// alive reports whether the subtree's data still exists. Bindings of a
	// list clone stop updating once their element is gone, before the
	// reconciler removes the clone. Nil means always alive.
	alive func() bool
}

func (p *pass) live() bool {
	return p.alive == nil || p.alive()
}

// Compile binds every directive in root and renders the current data into
// it. Lists are materialized. scope may be nil.
func (c *Compiler) Compile(ctx context.Context, root *html.Node, scope *expr.Locals) error {
	return c.run(ctx, "directive.Compile", root, scope, &pass{render: true, unit: &c.root})
}

// Bind binds every directive in root without the initial render of text and
// model bindings, for markup whose content was rendered by the server. v-for
// templates are left as rendered.
func (c *Compiler) Bind(ctx context.Context, root *html.Node, scope *expr.Locals) error {
	return c.run(ctx, "directive.Bind", root, scope, &pass{render: false, unit: &c.root})
}

// Close removes every binding created by the compiler.
func (c *Compiler) Close() {
	c.root.dispose()
}

func (c *Compiler) run(ctx context.Context, name string, root *html.Node, scope *expr.Locals, p *pass) (err error) {
	_, span := metrics.StartSpan(ctx, name, attribute.Bool("vbind.render", p.render))
	defer func() {
		span.SetAttributes(attribute.Int("vbind.bindings", p.count))
		metrics.EndSpan(span, err)
	}()

	if err := c.compileNode(root, scope, p); err != nil {
		return err
	}
	c.logger.Debug("compiled", "pass", name, "bindings", p.count)
	return nil
}

func (c *Compiler) compileNode(n *html.Node, scope *expr.Locals, p *pass) error {
	if n.Type != html.ElementNode {
		if n.Type == html.DocumentNode {
			return c.compileChildren(n, scope, p)
		}
		return nil
	}

	// v-data of a v-for template belongs to each clone, inside the item
	// scope, so the loop is handled first.
	loop, isLoop := dom.Attr(n, AttrFor)
	if isLoop && p.render {
		return c.bindFor(n, loop, scope, p)
	}

	if code, ok := dom.Attr(n, AttrData); ok {
		decls, err := ParseDeclarations(code)
		if err != nil {
			return err
		}
		scope = expr.NewLocals(scope)
		for _, d := range decls {
			scope.Declare(d.Name, d.Expr)
		}
	}

	binders := []struct {
		attr string
		bind func(*html.Node, string, *expr.Locals, *pass) error
	}{
		{AttrText, c.bindText},
		{AttrAttr, c.bindAttr},
		{AttrClass, c.bindClass},
		{AttrModel, c.bindModel},
		{AttrShow, c.bindShow},
		{AttrOn, c.bindOn},
	}
	for _, b := range binders {
		v, ok := dom.Attr(n, b.attr)
		if !ok || v == "" {
			continue
		}
		if err := b.bind(n, v, scope, p); err != nil {
			c.metrics.BindingError(b.attr)
			return err
		}
		c.metrics.Binding(b.attr)
		p.count++
	}
	stripAttributes(n)
	return c.compileChildren(n, scope, p)
}

func (c *Compiler) compileChildren(n *html.Node, scope *expr.Locals, p *pass) error {
	for ch := n.FirstChild; ch != nil; {
		next := ch.NextSibling
		if err := c.compileNode(ch, scope, p); err != nil {
			return err
		}
		ch = next
	}
	return nil
}

func stripAttributes(n *html.Node) {
	for _, a := range Attributes {
		dom.RemoveAttr(n, a)
	}
}
