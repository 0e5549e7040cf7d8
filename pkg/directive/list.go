package directive

import (
	"strconv"

	"golang.org/x/net/html"

	"github.com/vango-dev/vbind/internal/errors"
	"github.com/vango-dev/vbind/pkg/dom"
	"github.com/vango-dev/vbind/pkg/expr"
	"github.com/vango-dev/vbind/pkg/metrics"
	"github.com/vango-dev/vbind/pkg/reactive"
	"github.com/vango-dev/vbind/pkg/state"
)

type listClone struct {
	node *html.Node
	unit *unit
}

// listBinding is the fragment state of one v-for: the detached template, the
// comment marker placed where the template stood and the rendered clones.
type listBinding struct {
	c        *Compiler
	clause   ForClause
	path     string
	template *html.Node
	marker   *html.Node
	scope    *expr.Locals
	alive    func() bool
	clones   []listClone
}

func (c *Compiler) bindFor(n *html.Node, raw string, scope *expr.Locals, p *pass) error {
	clause, err := ParseFor(raw)
	if err != nil {
		return err
	}
	if n.Parent == nil {
		return errors.New(errors.CodeForSyntax).WithDetailf("%q is on a detached root", raw)
	}
	path := scope.Expand(clause.List)

	dom.RemoveAttr(n, AttrFor)

	l := &listBinding{
		c:        c,
		clause:   clause,
		path:     path,
		template: n,
		marker:   dom.NewComment(AttrFor + ":" + clause.List),
		scope:    scope,
		alive:    p.live,
	}
	dom.InsertBefore(n, l.marker)
	dom.Remove(n)
	c.doc.Release(n)

	p.unit.add(l.dispose)
	p.unit.add(c.inst.Center().AddListObserver(path, l.update))
	p.count++
	c.metrics.Binding(AttrFor)

	return l.grow(l.length())
}

func (l *listBinding) length() int {
	v, _ := l.c.inst.Lookup(l.path)
	if arr, ok := v.(*state.Array); ok {
		return arr.Len()
	}
	return 0
}

// update reconciles the clones with a length change.
func (l *listBinding) update(change reactive.ListChange) error {
	if change.IsReset {
		n := len(l.clones)
		l.shrink(0)
		l.c.metrics.ListChange(metrics.ListReset, n)
	}
	switch {
	case change.Length < len(l.clones):
		n := len(l.clones) - change.Length
		l.shrink(change.Length)
		l.c.metrics.ListChange(metrics.ListShrink, n)
	case change.Length > len(l.clones):
		n := change.Length - len(l.clones)
		if err := l.grow(change.Length); err != nil {
			return err
		}
		l.c.metrics.ListChange(metrics.ListGrow, n)
	}
	l.c.logger.Debug("list reconciled", "path", l.path, "length", len(l.clones), "reset", change.IsReset)
	return nil
}

// grow appends clones until there are length of them.
func (l *listBinding) grow(length int) error {
	for i := len(l.clones); i < length; i++ {
		node := dom.Clone(l.template)
		after := l.marker
		if len(l.clones) > 0 {
			after = l.clones[len(l.clones)-1].node
		}
		dom.InsertAfter(after, node)

		scope := expr.NewLocals(l.scope).Alias(l.clause.Item, state.Join(l.path, strconv.Itoa(i)))
		if l.clause.Index != "" {
			scope.Let(l.clause.Index, int64(i))
		}
		u := &unit{}
		l.clones = append(l.clones, listClone{node: node, unit: u})
		index := i
		alive := func() bool { return l.alive() && index < l.length() }
		if err := l.c.compileNode(node, scope, &pass{render: true, unit: u, alive: alive}); err != nil {
			return err
		}
	}
	return nil
}

// shrink removes trailing clones until length remain.
func (l *listBinding) shrink(length int) {
	for len(l.clones) > length {
		last := l.clones[len(l.clones)-1]
		l.clones = l.clones[:len(l.clones)-1]
		last.unit.dispose()
		l.c.doc.Release(last.node)
		dom.Remove(last.node)
	}
}

func (l *listBinding) dispose() {
	l.shrink(0)
}

// Len returns the number of rendered clones.
func (l *listBinding) Len() int { return len(l.clones) }
