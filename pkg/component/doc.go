// Package component ties data, template and bindings into a component.
//
// A Component owns two observable roots: $prop, a deep copy of what its
// parent passed in (checked against CUE prop types), and $data, a deep copy
// of its own initial data. Construction validates everything synchronously
// and enqueues initialisation on the shared reactive.Queue; the first drain
// compiles the template (or, in assign mode, reads server-rendered content
// back into the data and binds without re-rendering), exposes globals,
// attaches DOM events and bus handlers, then runs the Inited hook.
//
// Mount attaches a child under a parent. The child then follows every
// mutation of the parent's data: a prop passed as "parentKey:childKey"
// receives the parent's parentKey subtree under childKey.
package component
