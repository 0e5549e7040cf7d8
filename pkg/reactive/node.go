package reactive

import (
	"strconv"

	"github.com/vango-dev/vbind/internal/errors"
	"github.com/vango-dev/vbind/pkg/state"
)

// Node is the observable view of an *state.Object or *state.Array. Reads
// wrap nested containers; writes commit to the container and notify.
type Node struct {
	center *Center
	target state.Container
}

// Raw returns the underlying container.
func (n *Node) Raw() state.Container { return n.target }

// Path returns the path of the container in its root.
func (n *Node) Path() string { return n.target.Path() }

// Center returns the dependency graph the node notifies.
func (n *Node) Center() *Center { return n.center }

// Len returns the number of entries.
func (n *Node) Len() int { return n.target.Len() }

// IsArray reports whether the node wraps an array.
func (n *Node) IsArray() bool {
	_, ok := n.target.(*state.Array)
	return ok
}

// Keys returns object keys in insertion order, or array indices.
func (n *Node) Keys() []string {
	switch t := n.target.(type) {
	case *state.Object:
		return t.Keys()
	case *state.Array:
		keys := make([]string, t.Len())
		for i := range keys {
			keys[i] = strconv.Itoa(i)
		}
		return keys
	}
	return nil
}

// Has reports whether key addresses an existing child.
func (n *Node) Has(key string) bool {
	_, ok := state.Child(n.target, key)
	return ok
}

// Get returns the child at key, wrapped when it is a container. Missing keys
// yield nil.
func (n *Node) Get(key string) any {
	v, _ := state.Child(n.target, key)
	return n.center.Wrap(v)
}

// At returns the array item at i, wrapped when it is a container.
func (n *Node) At(i int) any {
	return n.Get(strconv.Itoa(i))
}

// Set writes v at key and runs the notification protocol. For arrays, key is
// a decimal index or "length".
func (n *Node) Set(key string, v any) error {
	switch t := n.target.(type) {
	case *state.Object:
		v = n.prepare(key, v)
		t.Set(key, v)
		return n.center.NotifyAll(t, state.Join(t.Path(), key), v, false)
	case *state.Array:
		if key == "length" {
			l, ok := state.Normalize(Unwrap(v)).(int64)
			if !ok || l < 0 {
				return errors.New(errors.CodeBinding).WithDetailf("invalid array length %v", v)
			}
			return n.SetLength(int(l))
		}
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 {
			return errors.New(errors.CodeBinding).WithDetailf("invalid array index %q", key)
		}
		return n.SetAt(i, v)
	}
	return nil
}

// SetAt writes v at index i. Writing past the end grows the array and
// notifies the length after the element.
func (n *Node) SetAt(i int, v any) error {
	arr, ok := n.target.(*state.Array)
	if !ok {
		return n.Set(strconv.Itoa(i), v)
	}
	grew := i >= arr.Len()
	key := strconv.Itoa(i)
	v = n.prepare(key, v)
	arr.SetAt(i, v)
	if err := n.center.NotifyAll(arr, state.Join(arr.Path(), key), v, false); err != nil {
		return err
	}
	if grew {
		return n.notifyLength(arr)
	}
	return nil
}

// Push appends items the way a native append does: each index is written,
// then the length.
func (n *Node) Push(items ...any) error {
	arr, ok := n.target.(*state.Array)
	if !ok {
		return errors.New(errors.CodeBinding).WithDetailf("push on non-array %q", n.Path())
	}
	for _, it := range items {
		key := strconv.Itoa(arr.Len())
		it = n.prepare(key, it)
		arr.Append(it)
		if err := n.center.NotifyAll(arr, state.Join(arr.Path(), key), it, false); err != nil {
			return err
		}
	}
	return n.notifyLength(arr)
}

// Pop removes and returns the last item. Popping an empty array returns nil
// and still writes the length.
func (n *Node) Pop() (any, error) {
	arr, ok := n.target.(*state.Array)
	if !ok {
		return nil, errors.New(errors.CodeBinding).WithDetailf("pop on non-array %q", n.Path())
	}
	var last any
	if l := arr.Len(); l > 0 {
		last = arr.At(l - 1)
		arr.SetLen(l - 1)
	}
	return n.center.Wrap(last), n.notifyLength(arr)
}

// SetLength truncates or grows the array and notifies its length path.
func (n *Node) SetLength(l int) error {
	arr, ok := n.target.(*state.Array)
	if !ok {
		return errors.New(errors.CodeBinding).WithDetailf("length on non-array %q", n.Path())
	}
	arr.SetLen(l)
	return n.notifyLength(arr)
}

func (n *Node) notifyLength(arr *state.Array) error {
	return n.center.NotifyAll(arr, state.Join(arr.Path(), "length"), int64(arr.Len()), false)
}

// prepare normalizes v and stamps containers whose path disagrees with the
// position they are written to.
func (n *Node) prepare(key string, v any) any {
	v = state.Normalize(Unwrap(v))
	if c, ok := v.(state.Container); ok {
		path := state.Join(n.target.Path(), key)
		if !c.Tagged() || c.Path() != path {
			state.Stamp(c, path)
		}
	}
	return v
}
