// Package node ties a middleware runtime, a definition registry and an
// event loop together and exposes typed endpoints on top of them:
// Subscriber, Publisher, ServiceClient and Service.
//
// Endpoints speak ir.Values; the node converts to and from wire bytes
// with the registry's definitions. Handlers and client callbacks run on
// the node's loop goroutine.
package node
