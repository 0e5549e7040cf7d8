package component

import (
	"sort"
	"sync"

	"github.com/vango-dev/vbind/internal/errors"
)

// Global is a function published by a component.
type Global func(args ...any) (any, error)

// Globals is the registry exposed methods are published to. One registry is
// shared by the components of a page.
type Globals struct {
	mu    sync.RWMutex
	funcs map[string]Global
}

// NewGlobals creates an empty registry.
func NewGlobals() *Globals {
	return &Globals{funcs: make(map[string]Global)}
}

// Register publishes fn under name. Names are unique.
func (g *Globals) Register(name string, fn Global) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.funcs[name]; exists {
		return errors.New(errors.CodeDuplicateGlobal).WithDetailf("%q", name)
	}
	g.funcs[name] = fn
	return nil
}

// Lookup returns the global registered under name.
func (g *Globals) Lookup(name string) (Global, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	fn, ok := g.funcs[name]
	return fn, ok
}

// Call invokes the global registered under name.
func (g *Globals) Call(name string, args ...any) (any, error) {
	fn, ok := g.Lookup(name)
	if !ok {
		return nil, errors.New(errors.CodeUnknownComponent).WithDetailf("no global %q", name)
	}
	return fn(args...)
}

// Names returns the registered names in sorted order.
func (g *Globals) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.funcs))
	for name := range g.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
