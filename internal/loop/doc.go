// Package loop multiplexes every active subscriber and service client of a
// node onto one goroutine.
//
// Each iteration drains whatever is already queued, builds a wait set of
// the live endpoints plus a wake guard condition, blocks in the middleware
// wait, and then tears down entities whose finalization was requested while
// the wait was in flight. Registration changes trigger the guard so the
// next wait set reflects them immediately.
package loop
