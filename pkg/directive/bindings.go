package directive

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vango-dev/vbind/internal/errors"
	"github.com/vango-dev/vbind/pkg/dom"
	"github.com/vango-dev/vbind/pkg/expr"
	"github.com/vango-dev/vbind/pkg/pubsub"
	"github.com/vango-dev/vbind/pkg/reactive"
	"github.com/vango-dev/vbind/pkg/state"
)

func (c *Compiler) evalIn(scope *expr.Locals, code string) (any, error) {
	return c.eval.Eval(c.Env(scope), code)
}

func (c *Compiler) execIn(scope *expr.Locals, code string) error {
	return c.eval.Exec(c.Env(scope), code)
}

// observe registers fn for the path key names in scope. Keys that are not
// plain paths into the instance are not observed.
func (c *Compiler) observe(scope *expr.Locals, key string, fn reactive.Observer, p *pass) {
	if !isPath(key) {
		return
	}
	remove, ok := c.inst.Center().AddObserver(scope.Expand(key), func(v any) error {
		if !p.live() {
			return nil
		}
		return fn(v)
	})
	if ok {
		p.unit.add(remove)
	}
}

func (c *Compiler) subscribe(event string, fn func() error, p *pass) {
	if c.bus == nil {
		return
	}
	sub := c.bus.Subscribe(event, func(...any) error {
		if !p.live() {
			return nil
		}
		return fn()
	})
	p.unit.add(sub.Remove)
}

func (c *Compiler) bindText(n *html.Node, raw string, scope *expr.Locals, p *pass) error {
	key, filter := splitFilter(raw)
	code := key
	if filter != "" {
		code = filterCall(key, filter)
	}
	render := func(any) error {
		v, err := c.evalIn(scope, code)
		if err != nil {
			return err
		}
		dom.SetText(n, expr.ToString(v))
		return nil
	}
	if p.render {
		if err := render(nil); err != nil {
			return err
		}
	}
	c.observe(scope, key, render, p)
	return nil
}

// mapping returns the entries of an object-valued binding result.
func mapping(v any, attr, code string) (*state.Object, error) {
	switch m := v.(type) {
	case *state.Object:
		return m, nil
	case *reactive.Node:
		if o, ok := m.Raw().(*state.Object); ok {
			return o, nil
		}
	}
	return nil, errors.New(errors.CodeBinding).WithDetailf("%s=%q must evaluate to a mapping", attr, code)
}

func (c *Compiler) bindAttr(n *html.Node, code string, scope *expr.Locals, p *pass) error {
	update := func() error {
		v, err := c.evalIn(scope, code)
		if err != nil {
			return err
		}
		attrs, err := mapping(v, AttrAttr, code)
		if err != nil {
			return err
		}
		for _, name := range attrs.Keys() {
			val, _ := attrs.Get(name)
			switch val {
			case nil, false:
				dom.RemoveAttr(n, name)
				continue
			case true:
				val = ""
			}
			s := expr.ToString(val)
			if cur, ok := dom.Attr(n, name); !ok || cur != s {
				dom.SetAttr(n, name, s)
			}
		}
		return nil
	}
	if err := update(); err != nil {
		return err
	}
	c.subscribe(pubsub.EventUpdateAttr, update, p)
	return nil
}

func (c *Compiler) bindClass(n *html.Node, code string, scope *expr.Locals, p *pass) error {
	update := func() error {
		v, err := c.evalIn(scope, code)
		if err != nil {
			return err
		}
		classes, err := mapping(v, AttrClass, code)
		if err != nil {
			return err
		}
		for _, name := range classes.Keys() {
			on, _ := classes.Get(name)
			dom.ToggleClass(n, name, expr.Truth(on))
		}
		return nil
	}
	if err := update(); err != nil {
		return err
	}
	c.subscribe(pubsub.EventUpdateClass, update, p)
	return nil
}

func (c *Compiler) bindShow(n *html.Node, code string, scope *expr.Locals, p *pass) error {
	update := func() error {
		v, err := c.evalIn(scope, code)
		if err != nil {
			return err
		}
		if expr.Truth(v) {
			dom.Show(n)
		} else {
			dom.Hide(n)
		}
		return nil
	}
	if err := update(); err != nil {
		return err
	}
	c.subscribe(pubsub.EventUpdateShow, update, p)
	return nil
}

// target returns the assignable form of key: the alias-resolved path when key
// is a path, key itself otherwise.
func target(scope *expr.Locals, key string) string {
	if !isPath(key) {
		return key
	}
	return pathCode(scope.Expand(key))
}

func (c *Compiler) bindModel(n *html.Node, key string, scope *expr.Locals, p *pass) error {
	if n.DataAtom != atom.Input && n.DataAtom != atom.Textarea {
		return nil
	}
	render := func(any) error {
		v, err := c.evalIn(scope, key)
		if err != nil {
			return err
		}
		dom.SetValue(n, expr.ToString(v))
		return nil
	}
	if p.render {
		if err := render(nil); err != nil {
			return err
		}
	}
	c.observe(scope, key, render, p)

	assign := target(scope, key)
	composing := false
	p.unit.add(c.doc.On(n, "input", func(e *dom.Event) error {
		if composing || e.IsComposing {
			return nil
		}
		return c.execIn(scope, assign+" = "+expr.Literal(dom.Value(n)))
	}))
	p.unit.add(c.doc.On(n, "compositionstart", func(*dom.Event) error {
		composing = true
		return nil
	}))
	p.unit.add(c.doc.On(n, "compositionend", func(e *dom.Event) error {
		composing = false
		return c.doc.Dispatch(e.Target(), dom.NewEvent("input"))
	}))
	return nil
}

func (c *Compiler) bindOn(n *html.Node, raw string, scope *expr.Locals, p *pass) error {
	pairs, err := SplitEvents(raw)
	if err != nil {
		return err
	}
	for _, pair := range pairs {
		handler := pair.Handler
		p.unit.add(c.doc.On(n, pair.Event, func(e *dom.Event) error {
			return c.execIn(expr.NewLocals(scope).Let("event", e), handler)
		}))
	}
	return nil
}
