// Package state holds the plain data tree observed by the reactive layer.
//
// A tree is built from *Object (insertion-ordered, string keyed), *Array and
// scalars normalized to nil, bool, int64, float64 or string. Containers are
// pointers so their identity is stable, and each carries its dot-addressed
// path inline:
//
//	root := state.ObjectOf("list", state.NewArray(state.ObjectOf("name", "x")))
//	state.Stamp(root, "")
//	item, _ := state.Lookup(root, "list.0")
//	state.PathOf(item) // "list.0"
//
// Tag and Stamp are idempotent and always overwrite a stale path, so a subtree
// moved to a new position is re-addressed by tagging it again.
package state
