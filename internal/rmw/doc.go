// Package rmw defines the boundary between rtmsg and a middleware
// implementation: the entities (subscriptions, publishers, clients,
// services, guard conditions) and the wait set used to block until any of
// them is ready.
//
// Implementations must make Trigger safe to call from any goroutine while
// another goroutine is blocked in WaitSet.Wait, and must refuse to finalize
// an entity that an in-flight wait still references (ErrInUse).
//
// memrmw provides an in-process implementation.
package rmw
