// Package memrmw is an in-process rmw.Runtime.
//
// Topics fan each published payload out to every live subscription on the
// topic. Services answer requests on a goroutine per request, posting the
// response back to the calling client. All state sits behind one runtime
// mutex; waiters block on a broadcast channel that is replaced whenever
// anything becomes ready.
package memrmw
