// Package live serves bound documents to browsers and keeps them in sync.
//
// The server holds the document. Browsers render the HTML it sends and
// forward user events over a websocket as {type:"event"} messages addressed
// by hydration id, or call exposed globals with {type:"call"}. Each message
// is applied to the page under its mutex, the task queue is drained, and the
// re-rendered body is broadcast to every client of the page.
package live
