package testutil

import (
	"fmt"
	"sync"
	"time"

	"github.com/roach88/rtmsg/internal/rmw"
)

// Event is one recorded runtime call.
type Event struct {
	Seq int64
	Op  string
	GID rmw.GID
	Err error
}

func (e Event) String() string {
	if e.GID.IsZero() {
		return fmt.Sprintf("%d %s", e.Seq, e.Op)
	}
	return fmt.Sprintf("%d %s %s", e.Seq, e.Op, e.GID)
}

// RecordingRuntime wraps a runtime and records wait-set and finalize calls
// in the order they happen, stamped by an EventCounter.
//
// When Gate is enabled every Wait, after the inner wait returns, blocks
// until Release is called, so a test can act while a wait is known to be
// in flight.
//
// Thread-safety: all methods are safe for concurrent use.
type RecordingRuntime struct {
	rmw.Runtime

	seq EventCounter

	mu     sync.Mutex
	events []Event
	gated  bool

	// WaitEntered receives a value each time a Wait call begins.
	WaitEntered chan struct{}
	release     chan struct{}

	// FailWaitSet makes CreateWaitSet fail with this error.
	FailWaitSet error
}

// NewRecordingRuntime wraps inner.
func NewRecordingRuntime(inner rmw.Runtime) *RecordingRuntime {
	return &RecordingRuntime{
		Runtime:     inner,
		WaitEntered: make(chan struct{}, 64),
		release:     make(chan struct{}),
	}
}

// Gate makes subsequent waits hold after returning until Release.
func (r *RecordingRuntime) Gate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gated = true
}

// Release lets every held wait return and stops gating.
func (r *RecordingRuntime) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gated {
		r.gated = false
		close(r.release)
		r.release = make(chan struct{})
	}
}

func (r *RecordingRuntime) record(op string, gid rmw.GID, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Seq: r.seq.Next(), Op: op, GID: gid, Err: err})
}

// Events returns a copy of the recorded events.
func (r *RecordingRuntime) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Find returns the first event with op and gid (zero gid matches any).
func (r *RecordingRuntime) Find(op string, gid rmw.GID) (Event, bool) {
	for _, e := range r.Events() {
		if e.Op == op && (gid.IsZero() || e.GID == gid) {
			return e, true
		}
	}
	return Event{}, false
}

// Last returns the last event with op.
func (r *RecordingRuntime) Last(op string) (Event, bool) {
	events := r.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Op == op {
			return events[i], true
		}
	}
	return Event{}, false
}

func (r *RecordingRuntime) CreateWaitSet(subs, guards, clients int) (rmw.WaitSet, error) {
	if r.FailWaitSet != nil {
		r.record("create_wait_set", rmw.GID{}, r.FailWaitSet)
		return nil, r.FailWaitSet
	}
	ws, err := r.Runtime.CreateWaitSet(subs, guards, clients)
	if err != nil {
		return nil, err
	}
	return &recordingWaitSet{WaitSet: ws, rt: r}, nil
}

func (r *RecordingRuntime) FinalizeSubscription(s rmw.Subscription) error {
	err := r.Runtime.FinalizeSubscription(s)
	r.record("finalize_subscription", s.GID(), err)
	return err
}

func (r *RecordingRuntime) FinalizeClient(c rmw.Client) error {
	err := r.Runtime.FinalizeClient(c)
	r.record("finalize_client", c.GID(), err)
	return err
}

func (r *RecordingRuntime) FinalizeGuardCondition(g rmw.GuardCondition) error {
	err := r.Runtime.FinalizeGuardCondition(g)
	r.record("finalize_guard_condition", g.GID(), err)
	return err
}

type recordingWaitSet struct {
	rmw.WaitSet
	rt *RecordingRuntime
}

func (w *recordingWaitSet) AddSubscription(s rmw.Subscription) error {
	err := w.WaitSet.AddSubscription(s)
	w.rt.record("wait_set_add_subscription", s.GID(), err)
	return err
}

func (w *recordingWaitSet) AddClient(c rmw.Client) error {
	err := w.WaitSet.AddClient(c)
	w.rt.record("wait_set_add_client", c.GID(), err)
	return err
}

func (w *recordingWaitSet) Wait(timeout time.Duration) error {
	w.rt.record("wait_begin", rmw.GID{}, nil)
	select {
	case w.rt.WaitEntered <- struct{}{}:
	default:
	}
	err := w.WaitSet.Wait(timeout)

	w.rt.mu.Lock()
	gated, release := w.rt.gated, w.rt.release
	w.rt.mu.Unlock()
	if gated {
		<-release
	}
	w.rt.record("wait_end", rmw.GID{}, err)
	return err
}

func (w *recordingWaitSet) Fini() error {
	err := w.WaitSet.Fini()
	w.rt.record("wait_set_fini", rmw.GID{}, err)
	return err
}
