package reactive

import (
	"github.com/vango-dev/vbind/internal/errors"
	"github.com/vango-dev/vbind/pkg/state"
)

// Instance owns the observable roots of one component and exposes their
// top-level keys.
type Instance struct {
	center *Center
	roots  []*state.Object
}

// New creates an Instance with its own Center.
func New(opts Options) *Instance {
	in := &Instance{}
	in.center = newCenter(opts, in)
	return in
}

// Center returns the instance's dependency graph.
func (in *Instance) Center() *Center { return in.center }

// Observe stamps root with paths and adds it to the instance. Top-level keys
// must be unique across roots.
func (in *Instance) Observe(root *state.Object) (*Node, error) {
	for _, key := range root.Keys() {
		if in.Has(key) {
			return nil, errors.New(errors.CodeDuplicateKey).WithDetailf("key %q", key)
		}
	}
	state.Stamp(root, "")
	in.roots = append(in.roots, root)
	return in.center.Wrap(root).(*Node), nil
}

// Roots returns the observed roots in registration order.
func (in *Instance) Roots() []*state.Object {
	return append([]*state.Object(nil), in.roots...)
}

func (in *Instance) owner(key string) *state.Object {
	for _, r := range in.roots {
		if r.Has(key) {
			return r
		}
	}
	return nil
}

// Has reports whether key is a top-level key of any root.
func (in *Instance) Has(key string) bool {
	return in.owner(key) != nil
}

// Keys returns the top-level keys of all roots.
func (in *Instance) Keys() []string {
	var keys []string
	for _, r := range in.roots {
		keys = append(keys, r.Keys()...)
	}
	return keys
}

// Get returns the top-level value for key, wrapped when it is a container.
func (in *Instance) Get(key string) any {
	r := in.owner(key)
	if r == nil {
		return nil
	}
	v, _ := r.Get(key)
	return in.center.Wrap(v)
}

// Lookup resolves a dot path from the root owning its first segment. The
// result is not wrapped.
func (in *Instance) Lookup(path string) (any, bool) {
	path = NormalizePath(path)
	r := in.owner(FirstSegment(path))
	if r == nil {
		return nil, false
	}
	return state.Lookup(r, path)
}

// Assign replaces a top-level value and notifies with isReset set, which
// also rebuilds lists bound to the key.
func (in *Instance) Assign(key string, v any) error {
	r := in.owner(key)
	if r == nil {
		return errors.New(errors.CodeBinding).WithDetailf("%q is not an instance key", key)
	}
	v = state.Normalize(Unwrap(v))
	state.Stamp(v, key)
	r.Set(key, v)
	return in.center.NotifyAll(v, key, v, true)
}
