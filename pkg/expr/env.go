package expr

import (
	"github.com/reusee/starlarkutil"
	"go.starlark.net/starlark"

	"github.com/vango-dev/vbind/pkg/reactive"
)

// Env is everything an expression may reference.
type Env struct {
	Instance *reactive.Instance
	Funcs    Funcs
	Locals   *Locals
}

// Func is a Go function callable from expressions. Containers arrive as
// *reactive.Node, lists and dicts as *state.Array and *state.Object.
type Func func(args ...any) (any, error)

// Funcs maps names to callables.
type Funcs map[string]starlark.Value

// Add registers fn under name.
func (f Funcs) Add(name string, fn Func) {
	f[name] = starlark.NewBuiltin(name, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		goArgs := make([]any, len(args))
		for i, a := range args {
			goArgs[i] = ToGo(a)
		}
		res, err := fn(goArgs...)
		if err != nil {
			return nil, err
		}
		return toStarlark(centerOf(thread), res)
	})
}

// AddGo registers an arbitrary typed Go function; arguments and results are
// converted by reflection.
func (f Funcs) AddGo(name string, fn any) {
	f[name] = starlarkutil.MakeFunc(name, fn)
}

type localKind int

const (
	localAlias localKind = iota
	localDecl
	localValue
)

type local struct {
	name  string
	kind  localKind
	path  string
	code  string
	value any
}

// Locals is one lexical scope of a binding. Scopes chain to their parent;
// inner entries shadow outer ones and later entries shadow earlier ones.
type Locals struct {
	parent  *Locals
	entries []local
}

// NewLocals creates a scope nested in parent, which may be nil.
func NewLocals(parent *Locals) *Locals {
	return &Locals{parent: parent}
}

// Parent returns the enclosing scope.
func (l *Locals) Parent() *Locals { return l.parent }

// Alias binds name to the current value at an instance path, resolved on
// every evaluation.
func (l *Locals) Alias(name, path string) *Locals {
	l.entries = append(l.entries, local{name: name, kind: localAlias, path: path})
	return l
}

// Declare binds name to an expression evaluated on every evaluation, after
// the entries before it.
func (l *Locals) Declare(name, code string) *Locals {
	l.entries = append(l.entries, local{name: name, kind: localDecl, code: code})
	return l
}

// Let binds name to a fixed value.
func (l *Locals) Let(name string, v any) *Locals {
	l.entries = append(l.entries, local{name: name, kind: localValue, value: v})
	return l
}

// Names returns every name visible from l.
func (l *Locals) Names() []string {
	var names []string
	for _, s := range l.chain() {
		for _, e := range s.entries {
			names = append(names, e.name)
		}
	}
	return names
}

// Has reports whether name is bound in l or an enclosing scope.
func (l *Locals) Has(name string) bool {
	for s := l; s != nil; s = s.parent {
		for _, e := range s.entries {
			if e.name == name {
				return true
			}
		}
	}
	return false
}

// PathOf returns the instance path name is aliased to. Names shadowed by a
// declaration or value are not aliases.
func (l *Locals) PathOf(name string) (string, bool) {
	for s := l; s != nil; s = s.parent {
		for i := len(s.entries) - 1; i >= 0; i-- {
			e := s.entries[i]
			if e.name != name {
				continue
			}
			if e.kind == localAlias {
				return e.path, true
			}
			return "", false
		}
	}
	return "", false
}

// Expand rewrites a dot path whose first segment is an alias into an
// instance path: with item aliased to list.2, item.name becomes list.2.name.
func (l *Locals) Expand(path string) string {
	path = reactive.NormalizePath(path)
	head := reactive.FirstSegment(path)
	target, ok := l.PathOf(head)
	if !ok {
		return path
	}
	return target + path[len(head):]
}

// chain returns the scopes from outermost to l.
func (l *Locals) chain() []*Locals {
	var out []*Locals
	for s := l; s != nil; s = s.parent {
		out = append(out, s)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
