package memrmw

import (
	"time"

	"github.com/roach88/rtmsg/internal/rmw"
)

type guardCondition struct {
	entity
	triggered bool
}

// Trigger marks the guard pending and wakes every wait.
func (g *guardCondition) Trigger() error {
	r := g.rt
	r.mu.Lock()
	defer r.mu.Unlock()
	if !g.valid {
		return &rmw.Error{Op: "trigger", GID: g.gid, Err: rmw.ErrInvalidEntity}
	}
	g.triggered = true
	r.notify()
	return nil
}

func (r *Runtime) CreateGuardCondition() (rmw.GuardCondition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &guardCondition{entity: r.newEntity()}, nil
}

func (r *Runtime) FinalizeGuardCondition(gc rmw.GuardCondition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, _ := gc.(*guardCondition)
	var e *entity
	if g != nil {
		e = &g.entity
	}
	if err := r.checkFinalize("finalize_guard_condition", e); err != nil {
		return err
	}
	g.valid = false
	return nil
}

type waitSet struct {
	rt      *Runtime
	subs    []*subscription
	guards  []*guardCondition
	clients []*client

	maxSubs, maxGuards, maxClients int
	done                           bool
}

func (r *Runtime) CreateWaitSet(subs, guards, clients int) (rmw.WaitSet, error) {
	return &waitSet{rt: r, maxSubs: subs, maxGuards: guards, maxClients: clients}, nil
}

// hold validates e for ws and pins it until Fini. Caller holds rt.mu.
func (ws *waitSet) hold(op string, e *entity, n, limit int) error {
	if ws.done {
		return &rmw.Error{Op: op, Err: rmw.ErrInvalidEntity}
	}
	if e == nil || e.rt != ws.rt || !e.valid {
		return &rmw.Error{Op: op, GID: gidOf(e), Err: rmw.ErrInvalidEntity}
	}
	if n >= limit {
		return &rmw.Error{Op: op, GID: e.gid, Err: rmw.ErrWaitSetFull}
	}
	e.refs++
	return nil
}

func (ws *waitSet) AddSubscription(sub rmw.Subscription) error {
	ws.rt.mu.Lock()
	defer ws.rt.mu.Unlock()
	s, _ := sub.(*subscription)
	var e *entity
	if s != nil {
		e = &s.entity
	}
	if err := ws.hold("wait_set_add_subscription", e, len(ws.subs), ws.maxSubs); err != nil {
		return err
	}
	ws.subs = append(ws.subs, s)
	return nil
}

func (ws *waitSet) AddGuardCondition(gc rmw.GuardCondition) error {
	ws.rt.mu.Lock()
	defer ws.rt.mu.Unlock()
	g, _ := gc.(*guardCondition)
	var e *entity
	if g != nil {
		e = &g.entity
	}
	if err := ws.hold("wait_set_add_guard_condition", e, len(ws.guards), ws.maxGuards); err != nil {
		return err
	}
	ws.guards = append(ws.guards, g)
	return nil
}

func (ws *waitSet) AddClient(cl rmw.Client) error {
	ws.rt.mu.Lock()
	defer ws.rt.mu.Unlock()
	c, _ := cl.(*client)
	var e *entity
	if c != nil {
		e = &c.entity
	}
	if err := ws.hold("wait_set_add_client", e, len(ws.clients), ws.maxClients); err != nil {
		return err
	}
	ws.clients = append(ws.clients, c)
	return nil
}

// ready reports whether anything in the set is ready, consuming triggered
// guards. Caller holds rt.mu.
func (ws *waitSet) ready() bool {
	ok := false
	for _, g := range ws.guards {
		if g.triggered {
			g.triggered = false
			ok = true
		}
	}
	for _, s := range ws.subs {
		if len(s.queue) > 0 {
			ok = true
		}
	}
	for _, c := range ws.clients {
		if len(c.queue) > 0 {
			ok = true
		}
	}
	return ok
}

func (ws *waitSet) Wait(timeout time.Duration) error {
	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}
	for {
		ws.rt.mu.Lock()
		if ws.done {
			ws.rt.mu.Unlock()
			return &rmw.Error{Op: "wait", Err: rmw.ErrInvalidEntity}
		}
		if ws.ready() {
			ws.rt.mu.Unlock()
			return nil
		}
		changed := ws.rt.changed
		ws.rt.mu.Unlock()

		if timeout == 0 {
			return &rmw.Error{Op: "wait", Err: rmw.ErrTimeout}
		}
		select {
		case <-changed:
		case <-deadline:
			return &rmw.Error{Op: "wait", Err: rmw.ErrTimeout}
		}
	}
}

// Fini releases every entity the set holds.
func (ws *waitSet) Fini() error {
	ws.rt.mu.Lock()
	defer ws.rt.mu.Unlock()
	if ws.done {
		return &rmw.Error{Op: "wait_set_fini", Err: rmw.ErrInvalidEntity}
	}
	ws.done = true
	for _, s := range ws.subs {
		s.refs--
	}
	for _, g := range ws.guards {
		g.refs--
	}
	for _, c := range ws.clients {
		c.refs--
	}
	ws.subs, ws.guards, ws.clients = nil, nil, nil
	return nil
}
