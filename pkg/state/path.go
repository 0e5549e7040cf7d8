package state

import (
	"strconv"
	"strings"
)

// Join appends key to a parent path.
func Join(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

// Split breaks a dot path into its segments.
func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// Tag stamps every container reachable from node with its path relative to
// parentPath. The node itself is left untouched.
func Tag(node any, parentPath string) {
	c, ok := node.(Container)
	if !ok {
		return
	}
	c.children(func(key string, v any) {
		child, ok := v.(Container)
		if !ok {
			return
		}
		childPath := Join(parentPath, key)
		child.setPath(childPath)
		Tag(child, childPath)
	})
}

// Stamp sets node's own path and tags its subtree beneath it. Stamping a
// root with an empty path marks it as a root.
func Stamp(node any, path string) {
	c, ok := node.(Container)
	if !ok {
		return
	}
	c.setPath(path)
	Tag(c, path)
}

// PathOf returns the path stamped on v, or "" for scalars and untagged values.
func PathOf(v any) string {
	if c, ok := v.(Container); ok {
		return c.Path()
	}
	return ""
}

// Tagged reports whether v is a container carrying a path.
func Tagged(v any) bool {
	c, ok := v.(Container)
	return ok && c.Tagged()
}

// Child returns the direct child of a container addressed by key. Array
// children are addressed by decimal index and expose "length".
func Child(v any, key string) (any, bool) {
	switch c := v.(type) {
	case *Object:
		return c.Get(key)
	case *Array:
		if key == "length" {
			return int64(c.Len()), true
		}
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= c.Len() {
			return nil, false
		}
		return c.At(i), true
	}
	return nil, false
}

// Lookup resolves a dot path from root.
func Lookup(root any, path string) (any, bool) {
	cur := root
	for _, seg := range Split(path) {
		next, ok := Child(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Clone returns an untagged deep copy of v.
func Clone(v any) any {
	switch c := v.(type) {
	case *Object:
		out := NewObject()
		for _, k := range c.keys {
			out.Set(k, Clone(c.vals[k]))
		}
		return out
	case *Array:
		out := &Array{items: make([]any, len(c.items))}
		for i, it := range c.items {
			out.items[i] = Clone(it)
		}
		return out
	}
	return v
}
