// Package dom is the server-held document vbind binds to.
//
// A Document wraps a golang.org/x/net/html tree and adds what the binding
// engine needs from a browser: attribute and class helpers, visibility,
// text and form values, cloning and insertion, comment markers, an event
// listener registry with bubbling and delegated selectors, and stable
// hydration ids (data-hid) so that a remote client can address elements.
//
// Node helpers are package functions over *html.Node; everything that needs
// per-document state (listeners, ids) is a Document method.
package dom
