package expr

import (
	"fmt"
	"log/slog"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/vango-dev/vbind/internal/errors"
	"github.com/vango-dev/vbind/pkg/reactive"
)

// Evaluator evaluates binding expressions and executes handler statements.
type Evaluator interface {
	// Eval evaluates a single expression and returns its value converted with
	// ToGo.
	Eval(env *Env, code string) (any, error)

	// Exec runs handler statements for their effects.
	Exec(env *Env, code string) error
}

// DefaultMaxSteps bounds the work of a single evaluation.
const DefaultMaxSteps = 1 << 20

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

var predeclared = starlark.StringDict{
	"true":  starlark.True,
	"false": starlark.False,
	"null":  starlark.None,
}

// Sandbox is the Starlark Evaluator.
type Sandbox struct {
	maxSteps uint64
	logger   *slog.Logger
}

// Option configures a Sandbox.
type Option func(*Sandbox)

// WithMaxSteps bounds the number of Starlark steps per call. Zero removes the
// bound.
func WithMaxSteps(n uint64) Option {
	return func(s *Sandbox) { s.maxSteps = n }
}

// WithLogger receives print() output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sandbox) { s.logger = l }
}

// NewSandbox creates a Sandbox.
func NewSandbox(opts ...Option) *Sandbox {
	s := &Sandbox{maxSteps: DefaultMaxSteps, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Evaluator = (*Sandbox)(nil)

func (s *Sandbox) thread(env *Env) *starlark.Thread {
	thread := &starlark.Thread{
		Name: "vbind",
		Print: func(_ *starlark.Thread, msg string) {
			s.logger.Info(msg, "source", "expr")
		},
	}
	if s.maxSteps > 0 {
		thread.SetMaxExecutionSteps(s.maxSteps)
	}
	if env != nil && env.Instance != nil {
		thread.SetLocal(centerKey, env.Instance.Center())
	}
	return thread
}

// globals builds the name table: predeclared literals, functions, instance
// keys and locals, each layer shadowing the previous one.
func (s *Sandbox) globals(thread *starlark.Thread, env *Env) (starlark.StringDict, error) {
	g := make(starlark.StringDict, len(predeclared))
	for k, v := range predeclared {
		g[k] = v
	}
	if env == nil {
		return g, nil
	}
	for k, v := range env.Funcs {
		g[k] = v
	}
	if in := env.Instance; in != nil {
		for _, k := range in.Keys() {
			v, err := toStarlark(in.Center(), in.Get(k))
			if err != nil {
				return nil, err
			}
			g[k] = v
		}
	}
	for _, scope := range env.Locals.chain() {
		for _, e := range scope.entries {
			v, err := s.resolveLocal(thread, env, g, e)
			if err != nil {
				return nil, errors.New(errors.CodeBinding).WithDetailf("local %q", e.name).Wrap(err)
			}
			g[e.name] = v
		}
	}
	return g, nil
}

func (s *Sandbox) resolveLocal(thread *starlark.Thread, env *Env, g starlark.StringDict, e local) (starlark.Value, error) {
	center := centerOf(thread)
	switch e.kind {
	case localAlias:
		if env.Instance == nil {
			return starlark.None, nil
		}
		v, _ := env.Instance.Lookup(e.path)
		return toStarlark(center, v)
	case localDecl:
		return starlark.EvalOptions(fileOptions, thread, e.name, e.code, g)
	}
	return toStarlark(center, e.value)
}

// Eval implements Evaluator.
func (s *Sandbox) Eval(env *Env, code string) (any, error) {
	thread := s.thread(env)
	g, err := s.globals(thread, env)
	if err != nil {
		return nil, err
	}
	v, err := starlark.EvalOptions(fileOptions, thread, "expr", code, g)
	if err != nil {
		return nil, bindingError(code, err)
	}
	return ToGo(v), nil
}

// Exec implements Evaluator. Assigning to a name declared by the statements
// or by the binding's locals rebinds the local; assigning to an instance key
// replaces the instance value; any other name becomes a new local.
func (s *Sandbox) Exec(env *Env, code string) error {
	f, err := fileOptions.Parse("handler", code, 0)
	if err != nil {
		return errors.New(errors.CodeStatement).WithDetail(code).Wrap(err)
	}
	thread := s.thread(env)
	g, err := s.globals(thread, env)
	if err != nil {
		return err
	}
	x := &execution{thread: thread, env: env, scope: g, locals: make(map[string]bool)}
	if env != nil {
		for _, name := range env.Locals.Names() {
			x.locals[name] = true
		}
	}
	for _, stmt := range f.Stmts {
		if err := x.stmt(stmt); err != nil {
			if _, ok := errors.As(err); ok {
				return err
			}
			return bindingError(code, err)
		}
	}
	return nil
}

func bindingError(code string, err error) error {
	if _, ok := errors.As(err); ok {
		return err
	}
	return errors.New(errors.CodeBinding).WithDetail(code).Wrap(err)
}

type execution struct {
	thread *starlark.Thread
	env    *Env
	scope  starlark.StringDict
	locals map[string]bool
}

func (x *execution) stmt(stmt syntax.Stmt) error {
	switch s := stmt.(type) {
	case *syntax.ExprStmt:
		_, err := x.eval(s.X)
		return err
	case *syntax.AssignStmt:
		return x.assign(s)
	case *syntax.IfStmt:
		cond, err := x.eval(s.Cond)
		if err != nil {
			return err
		}
		body := s.False
		if cond.Truth() {
			body = s.True
		}
		for _, inner := range body {
			if err := x.stmt(inner); err != nil {
				return err
			}
		}
		return nil
	}
	start, _ := stmt.Span()
	return errors.New(errors.CodeStatement).WithDetailf("%T at %s", stmt, start)
}

func (x *execution) eval(e syntax.Expr) (starlark.Value, error) {
	return starlark.EvalExprOptions(fileOptions, x.thread, e, x.scope)
}

var augmented = map[syntax.Token]syntax.Token{
	syntax.PLUS_EQ:       syntax.PLUS,
	syntax.MINUS_EQ:      syntax.MINUS,
	syntax.STAR_EQ:       syntax.STAR,
	syntax.SLASH_EQ:      syntax.SLASH,
	syntax.SLASHSLASH_EQ: syntax.SLASHSLASH,
	syntax.PERCENT_EQ:    syntax.PERCENT,
	syntax.AMP_EQ:        syntax.AMP,
	syntax.PIPE_EQ:       syntax.PIPE,
	syntax.CIRCUMFLEX_EQ: syntax.CIRCUMFLEX,
	syntax.LTLT_EQ:       syntax.LTLT,
	syntax.GTGT_EQ:       syntax.GTGT,
}

func (x *execution) assign(s *syntax.AssignStmt) error {
	rhs, err := x.eval(s.RHS)
	if err != nil {
		return err
	}
	lhs := unparen(s.LHS)

	if s.Op == syntax.EQ {
		return x.store(lhs, func(starlark.Value) (starlark.Value, error) { return rhs, nil })
	}
	op, ok := augmented[s.Op]
	if !ok {
		return errors.New(errors.CodeStatement).WithDetailf("operator %s", s.Op)
	}
	return x.store(lhs, func(cur starlark.Value) (starlark.Value, error) {
		return starlark.Binary(op, cur, rhs)
	})
}

// store computes the new value from the current one and writes it to lhs.
// Each operand of lhs is evaluated once.
func (x *execution) store(lhs syntax.Expr, update func(cur starlark.Value) (starlark.Value, error)) error {
	switch t := lhs.(type) {
	case *syntax.Ident:
		cur, ok := x.scope[t.Name]
		if !ok {
			cur = starlark.None
		}
		v, err := update(cur)
		if err != nil {
			return err
		}
		return x.storeName(t.Name, v)

	case *syntax.DotExpr:
		recv, err := x.eval(t.X)
		if err != nil {
			return err
		}
		cur := starlark.Value(starlark.None)
		if attrs, ok := recv.(starlark.HasAttrs); ok {
			if got, err := attrs.Attr(t.Name.Name); err == nil && got != nil {
				cur = got
			}
		}
		v, err := update(cur)
		if err != nil {
			return err
		}
		setter, ok := recv.(starlark.HasSetField)
		if !ok {
			return fmt.Errorf("can't assign to .%s field of %s", t.Name.Name, recv.Type())
		}
		return setter.SetField(t.Name.Name, v)

	case *syntax.IndexExpr:
		recv, err := x.eval(t.X)
		if err != nil {
			return err
		}
		key, err := x.eval(t.Y)
		if err != nil {
			return err
		}
		cur, err := index(recv, key)
		if err != nil {
			cur = starlark.None
		}
		v, err := update(cur)
		if err != nil {
			return err
		}
		return setIndex(recv, key, v)
	}
	start, _ := lhs.Span()
	return errors.New(errors.CodeStatement).WithDetailf("cannot assign to %T at %s", lhs, start)
}

func (x *execution) storeName(name string, v starlark.Value) error {
	if x.locals[name] {
		x.scope[name] = v
		return nil
	}
	if in := x.env.instance(); in != nil && in.Has(name) {
		if err := in.Assign(name, ToGo(v)); err != nil {
			return err
		}
		nv, err := toStarlark(in.Center(), in.Get(name))
		if err != nil {
			return err
		}
		x.scope[name] = nv
		return nil
	}
	x.locals[name] = true
	x.scope[name] = v
	return nil
}

func (env *Env) instance() *reactive.Instance {
	if env == nil {
		return nil
	}
	return env.Instance
}

func unparen(e syntax.Expr) syntax.Expr {
	for {
		p, ok := e.(*syntax.ParenExpr)
		if !ok {
			return e
		}
		e = p.X
	}
}

func index(recv, key starlark.Value) (starlark.Value, error) {
	switch r := recv.(type) {
	case starlark.Mapping:
		v, found, err := r.Get(key)
		if err != nil {
			return nil, err
		}
		if !found {
			return starlark.None, nil
		}
		return v, nil
	case starlark.Indexable:
		i, err := starlark.AsInt32(key)
		if err != nil {
			return nil, err
		}
		if i < 0 {
			i += r.Len()
		}
		if i < 0 || i >= r.Len() {
			return nil, fmt.Errorf("index %d out of range [0:%d]", i, r.Len())
		}
		return r.Index(i), nil
	}
	return nil, fmt.Errorf("%s is not indexable", recv.Type())
}

func setIndex(recv, key, v starlark.Value) error {
	switch r := recv.(type) {
	case starlark.HasSetKey:
		return r.SetKey(key, v)
	case starlark.HasSetIndex:
		i, err := starlark.AsInt32(key)
		if err != nil {
			return err
		}
		if i < 0 {
			i += r.Len()
		}
		if i < 0 {
			return fmt.Errorf("index %d out of range", i)
		}
		return r.SetIndex(i, v)
	}
	return fmt.Errorf("%s does not support item assignment", recv.Type())
}
