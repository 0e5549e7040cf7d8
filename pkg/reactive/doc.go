// Package reactive is the observation layer of vbind.
//
// An Instance owns one or more data roots ($prop and $data). Reads go through
// *Node wrappers that lazily wrap nested containers; writes through Node.Set
// or Instance.Assign commit to the underlying state tree and then run the
// notification protocol of the instance's Center:
//
//  1. observers registered for the exact path run synchronously,
//  2. observers under the written path run when a whole subtree was replaced,
//  3. the class, attribute and visibility sweep events are published,
//  4. list observers of an array whose length changed are notified
//     (deferred to the Queue in fallback mode),
//  5. the children subject is notified for parent to child propagation.
//
// Observers are plain callbacks keyed by path strings such as "list.0.name".
// The package is single-threaded: hosts serialize access to an Instance.
package reactive
