package component

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/vango-dev/vbind/pkg/dom"
	"github.com/vango-dev/vbind/pkg/reactive"
	"github.com/vango-dev/vbind/pkg/state"
)

// Mount attaches c under parent. From then on every change of the parent's
// data reaches c's props through their key mapping. The element is appended
// to slot or replaces it.
func (c *Component) Mount(parent *Component, slot *html.Node, opts MountOptions) {
	c.parent = parent
	if opts.Name != "" {
		parent.children[opts.Name] = c
	}

	remove := parent.inst.Center().AddChildObserver(c.propagate)
	c.cleanup = append(c.cleanup, remove)

	if c.el == nil || slot == nil {
		return
	}
	if c.el.Parent != nil {
		dom.Remove(c.el)
	}
	switch opts.Type {
	case MountReplace:
		dom.ReplaceWith(slot, c.el)
	default:
		slot.AppendChild(c.el)
	}
}

func (c *Component) propagate(ch reactive.ChildChange) error {
	first := reactive.FirstSegment(ch.Key)
	for _, link := range c.links {
		if link.parent != first {
			continue
		}
		key := link.child + strings.TrimPrefix(ch.Key, first)
		if err := c.updateProp(key, link.child, ch.Value, ch.Target); err != nil {
			return err
		}
	}
	return nil
}

// updateProp writes a parent change into the prop tree. A whole array
// arrives as target and is copied element by element so that bound lists
// reconcile instead of rebuilding.
func (c *Component) updateProp(key, first string, value, target any) error {
	if !c.prop.Has(first) {
		return nil
	}
	if arr, ok := reactive.Unwrap(target).(*state.Array); ok {
		dest := strings.TrimSuffix(key, ".length")
		if node, ok := c.nodeAt(dest); ok && node.IsArray() {
			return c.copyArray(node, state.Clone(arr).(*state.Array))
		}
		return c.setDeep(dest, arr)
	}
	return c.setDeep(key, value)
}

func (c *Component) copyArray(node *reactive.Node, src *state.Array) error {
	native := c.inst.Center().Mode() == reactive.ModeNative
	if !native {
		if err := node.SetLength(src.Len()); err != nil {
			return err
		}
	}
	for i := 0; i < src.Len(); i++ {
		if err := node.SetAt(i, src.At(i)); err != nil {
			return err
		}
	}
	if native {
		return node.SetLength(src.Len())
	}
	return nil
}

func (c *Component) setDeep(key string, value any) error {
	value = state.Clone(reactive.Unwrap(value))
	segs := state.Split(key)
	if len(segs) == 1 {
		return c.inst.Assign(key, value)
	}
	parent, ok := c.nodeAt(strings.Join(segs[:len(segs)-1], "."))
	if !ok {
		return nil
	}
	return parent.Set(segs[len(segs)-1], value)
}

// nodeAt walks a dot path through wrapped containers.
func (c *Component) nodeAt(path string) (*reactive.Node, bool) {
	segs := state.Split(path)
	if len(segs) == 0 {
		return nil, false
	}
	node, ok := c.inst.Get(segs[0]).(*reactive.Node)
	for _, seg := range segs[1:] {
		if !ok {
			return nil, false
		}
		node, ok = node.Get(seg).(*reactive.Node)
	}
	return node, ok
}
