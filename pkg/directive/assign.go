package directive

import (
	"context"
	"strings"

	"golang.org/x/net/html"

	"github.com/vango-dev/vbind/internal/errors"
	"github.com/vango-dev/vbind/pkg/dom"
	"github.com/vango-dev/vbind/pkg/expr"
	"github.com/vango-dev/vbind/pkg/metrics"
	"github.com/vango-dev/vbind/pkg/reactive"
	"github.com/vango-dev/vbind/pkg/state"
)

type scoped struct {
	node  *html.Node
	value string
	scope *expr.Locals
}

// Assign copies server-rendered content under root into the instance. In
// order: each v-array element appends an empty object to its list, v-data
// declarations are evaluated, v-text content (unless v-no is present) and
// v-model values are assigned to their paths as trimmed strings.
func (c *Compiler) Assign(ctx context.Context, root *html.Node) (err error) {
	_, span := metrics.StartSpan(ctx, "directive.Assign")
	defer func() { metrics.EndSpan(span, err) }()

	var arrays, data, texts, models []scoped
	var visit func(n *html.Node, scope *expr.Locals) error
	visit = func(n *html.Node, scope *expr.Locals) error {
		if dom.IsElement(n) {
			if code, ok := dom.Attr(n, AttrData); ok && code != "" {
				decls, err := ParseDeclarations(code)
				if err != nil {
					return err
				}
				scope = expr.NewLocals(scope)
				for _, d := range decls {
					scope.Declare(d.Name, d.Expr)
				}
				data = append(data, scoped{node: n, value: code, scope: scope})
			}
			if v, ok := dom.Attr(n, AttrArray); ok && v != "" {
				arrays = append(arrays, scoped{node: n, value: v, scope: scope})
			}
			if v, ok := dom.Attr(n, AttrText); ok && v != "" {
				texts = append(texts, scoped{node: n, value: v, scope: scope})
			}
			if v, ok := dom.Attr(n, AttrModel); ok && v != "" {
				models = append(models, scoped{node: n, value: v, scope: scope})
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			if err := visit(ch, scope); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(root, nil); err != nil {
		return err
	}

	for _, a := range arrays {
		list, ok := c.inst.Get(a.value).(*reactive.Node)
		if !ok || !list.IsArray() {
			return errors.New(errors.CodeBinding).WithDetailf("%s=%q is not a list", AttrArray, a.value)
		}
		if err := list.Push(state.NewObject()); err != nil {
			return err
		}
	}
	// Evaluating any expression resolves every declaration in scope.
	for _, d := range data {
		if _, err := c.evalIn(d.scope, "None"); err != nil {
			return err
		}
	}
	for _, t := range texts {
		if dom.HasAttr(t.node, AttrNo) {
			continue
		}
		key, _ := splitFilter(t.value)
		if err := c.assignValue(t.scope, key, dom.Text(t.node)); err != nil {
			return err
		}
	}
	for _, m := range models {
		if err := c.assignValue(m.scope, m.value, dom.Value(m.node)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) assignValue(scope *expr.Locals, key, content string) error {
	return c.execIn(scope, target(scope, key)+" = "+expr.Literal(strings.TrimSpace(content)))
}
