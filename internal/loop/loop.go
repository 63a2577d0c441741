package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/roach88/rtmsg/internal/rmw"
)

// Subscriber is an endpoint that consumes messages from a subscription.
type Subscriber interface {
	// Subscription returns the middleware entity to wait on. A nil or
	// invalid subscription is skipped.
	Subscription() rmw.Subscription
	// TryHandleMessage handles every queued message without blocking.
	TryHandleMessage()
}

// Client is an endpoint that consumes service responses.
type Client interface {
	Client() rmw.Client
	// TryHandleAnswer handles every queued response without blocking.
	TryHandleAnswer()
}

// ErrAlreadyRunning is returned by Run when the loop is already running or
// has already stopped.
var ErrAlreadyRunning = errors.New("loop already started")

// Stats counts loop activity.
type Stats struct {
	Iterations             int64
	FinalizedSubscriptions int64
	FinalizedClients       int64
	FinalizeErrors         int64
}

// Loop is the endpoint registry and event loop of one node.
//
// Thread-safety model:
//   - Register*/Unregister*/Finalize*/Wake/Stop: safe from any goroutine
//   - Run: called from exactly one goroutine, once
//
// Handlers run on the Run goroutine while the registry lock is held, so once
// Unregister* returns the endpoint's handler will not be called again. A
// handler must therefore not call Register* or Unregister* itself;
// Finalize* and Wake are fine.
type Loop struct {
	rt     rmw.Runtime
	logger *slog.Logger
	fatal  func(error)

	mu      sync.Mutex // guards subs and clients, held while handlers run
	subs    []Subscriber
	clients []Client

	finalizeMu     sync.Mutex // guards the pending teardown queues and closed
	pendingSubs    []rmw.Subscription
	pendingClients []rmw.Client
	closed         bool // no wait will run again; finalize inline

	guard    rmw.GuardCondition
	started  atomic.Bool
	stopping atomic.Bool
	done     chan struct{}

	iterations, finalizedSubs, finalizedClients, finalizeErrors atomic.Int64
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the loop's logger.
func WithLogger(l *slog.Logger) Option {
	return func(lp *Loop) { lp.logger = l }
}

// WithFatalHandler replaces the handler for unrecoverable middleware
// failures. The default logs the error and exits the process. If the
// handler returns, Run returns the error.
func WithFatalHandler(fn func(error)) Option {
	return func(lp *Loop) { lp.fatal = fn }
}

// New creates a loop on rt and its wake guard condition.
func New(rt rmw.Runtime, opts ...Option) (*Loop, error) {
	l := &Loop{
		rt:     rt,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.fatal == nil {
		logger := l.logger
		l.fatal = func(err error) {
			logger.Error("event loop failed", "error", err)
			os.Exit(1)
		}
	}

	guard, err := rt.CreateGuardCondition()
	if err != nil {
		return nil, fmt.Errorf("create wake guard condition: %w", err)
	}
	l.guard = guard
	return l, nil
}

// RegisterSubscriber adds s to the active set and wakes the loop.
func (l *Loop) RegisterSubscriber(s Subscriber) {
	l.mu.Lock()
	l.subs = append(l.subs, s)
	l.mu.Unlock()
	l.Wake()
}

// UnregisterSubscriber removes s from the active set and wakes the loop.
// Removing an endpoint that is not registered is a no-op.
func (l *Loop) UnregisterSubscriber(s Subscriber) {
	l.mu.Lock()
	l.subs = slices.DeleteFunc(l.subs, func(x Subscriber) bool { return x == s })
	l.mu.Unlock()
	l.Wake()
}

// RegisterClient adds c to the active set and wakes the loop.
func (l *Loop) RegisterClient(c Client) {
	l.mu.Lock()
	l.clients = append(l.clients, c)
	l.mu.Unlock()
	l.Wake()
}

// UnregisterClient removes c from the active set and wakes the loop.
func (l *Loop) UnregisterClient(c Client) {
	l.mu.Lock()
	l.clients = slices.DeleteFunc(l.clients, func(x Client) bool { return x == c })
	l.mu.Unlock()
	l.Wake()
}

// FinalizeSubscription schedules s for teardown on the loop goroutine after
// the current wait returns. The caller must have unregistered the owning
// subscriber first.
//
// After the loop has shut down there is no wait to race, and s is
// finalized before FinalizeSubscription returns.
func (l *Loop) FinalizeSubscription(s rmw.Subscription) {
	l.finalizeMu.Lock()
	if l.closed {
		l.finalizeMu.Unlock()
		l.finalize([]rmw.Subscription{s}, nil)
		return
	}
	l.pendingSubs = append(l.pendingSubs, s)
	l.finalizeMu.Unlock()
	l.Wake()
}

// FinalizeClient schedules c for teardown like FinalizeSubscription.
func (l *Loop) FinalizeClient(c rmw.Client) {
	l.finalizeMu.Lock()
	if l.closed {
		l.finalizeMu.Unlock()
		l.finalize(nil, []rmw.Client{c})
		return
	}
	l.pendingClients = append(l.pendingClients, c)
	l.finalizeMu.Unlock()
	l.Wake()
}

// Wake makes the current or next wait return.
func (l *Loop) Wake() {
	if err := l.guard.Trigger(); err != nil && !l.stopping.Load() {
		l.logger.Warn("wake trigger failed", "error", err)
	}
}

// Stop asks Run to return after the in-flight wait completes and pending
// teardown has been drained. Stop does not wait; use Done for that.
func (l *Loop) Stop() {
	if l.stopping.CompareAndSwap(false, true) {
		l.Wake()
	}
}

// Close stops the loop and waits for Run to return. A loop that was never
// run is shut down in place, and Run will then return ErrAlreadyRunning.
func (l *Loop) Close() {
	if l.started.CompareAndSwap(false, true) {
		l.shutdown()
		close(l.done)
		return
	}
	l.Stop()
	<-l.done
}

// Done is closed when Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Stats returns a snapshot of the loop counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Iterations:             l.iterations.Load(),
		FinalizedSubscriptions: l.finalizedSubs.Load(),
		FinalizedClients:       l.finalizedClients.Load(),
		FinalizeErrors:         l.finalizeErrors.Load(),
	}
}

// Run executes the loop until ctx is cancelled or Stop is called.
//
// Returns ctx.Err() after cancellation, nil after Stop, or the error given
// to the fatal handler if that handler returns.
func (l *Loop) Run(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(l.done)

	stopOnCancel := context.AfterFunc(ctx, l.Stop)
	defer stopOnCancel()

	l.logger.Info("event loop starting")
	for {
		l.drainActive()
		if l.stopping.Load() {
			break
		}
		if err := l.waitOnce(); err != nil {
			l.fatal(err)
			l.shutdown()
			return err
		}
		l.drainFinalize()
		l.iterations.Add(1)
	}

	l.shutdown()
	if err := ctx.Err(); err != nil {
		l.logger.Info("event loop stopping: context cancelled")
		return err
	}
	l.logger.Info("event loop stopping")
	return nil
}

// drainActive gives every registered endpoint a chance to handle what is
// already queued.
func (l *Loop) drainActive() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.subs {
		s.TryHandleMessage()
	}
	for _, c := range l.clients {
		c.TryHandleAnswer()
	}
}

// waitOnce builds a wait set over the current endpoints and blocks in it.
// Any error is fatal.
func (l *Loop) waitOnce() error {
	ws, err := l.buildWaitSet()
	if err != nil {
		return err
	}
	if err := ws.Wait(rmw.Forever); err != nil && !rmw.IsTimeout(err) {
		_ = ws.Fini()
		return fmt.Errorf("wait: %w", err)
	}
	if err := ws.Fini(); err != nil {
		return fmt.Errorf("fini wait set: %w", err)
	}
	return nil
}

func (l *Loop) buildWaitSet() (rmw.WaitSet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ws, err := l.rt.CreateWaitSet(len(l.subs), 1, len(l.clients))
	if err != nil {
		return nil, fmt.Errorf("create wait set: %w", err)
	}
	fail := func(err error) (rmw.WaitSet, error) {
		_ = ws.Fini()
		return nil, err
	}

	if err := ws.AddGuardCondition(l.guard); err != nil {
		return fail(fmt.Errorf("add wake guard condition: %w", err))
	}
	for _, s := range l.subs {
		sub := s.Subscription()
		if sub == nil || !sub.IsValid() {
			continue
		}
		if err := ws.AddSubscription(sub); err != nil {
			return fail(fmt.Errorf("add subscription %s: %w", sub.Topic(), err))
		}
	}
	for _, c := range l.clients {
		cl := c.Client()
		if cl == nil || !cl.IsValid() {
			continue
		}
		if err := ws.AddClient(cl); err != nil {
			return fail(fmt.Errorf("add client %s: %w", cl.Service(), err))
		}
	}
	return ws, nil
}

// drainFinalize tears down entities queued by Finalize*.
func (l *Loop) drainFinalize() {
	l.finalizeMu.Lock()
	subs, clients := l.pendingSubs, l.pendingClients
	l.pendingSubs, l.pendingClients = nil, nil
	l.finalizeMu.Unlock()
	l.finalize(subs, clients)
}

// finalize destroys entities. Failures are logged and counted; the loop
// keeps going.
func (l *Loop) finalize(subs []rmw.Subscription, clients []rmw.Client) {
	for _, s := range subs {
		if err := l.rt.FinalizeSubscription(s); err != nil {
			l.finalizeErrors.Add(1)
			l.logger.Error("finalize subscription failed", "topic", s.Topic(), "gid", s.GID(), "error", err)
			continue
		}
		l.finalizedSubs.Add(1)
	}
	for _, c := range clients {
		if err := l.rt.FinalizeClient(c); err != nil {
			l.finalizeErrors.Add(1)
			l.logger.Error("finalize client failed", "service", c.Service(), "gid", c.GID(), "error", err)
			continue
		}
		l.finalizedClients.Add(1)
	}
}

// shutdown drains teardown still pending, switches later Finalize* calls
// to inline teardown, and releases the guard condition.
func (l *Loop) shutdown() {
	l.stopping.Store(true)

	l.finalizeMu.Lock()
	l.closed = true
	subs, clients := l.pendingSubs, l.pendingClients
	l.pendingSubs, l.pendingClients = nil, nil
	l.finalizeMu.Unlock()
	l.finalize(subs, clients)

	if err := l.rt.FinalizeGuardCondition(l.guard); err != nil {
		l.logger.Warn("finalize wake guard condition failed", "error", err)
	}
}
