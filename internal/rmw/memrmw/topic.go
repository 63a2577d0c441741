package memrmw

import (
	"slices"

	"github.com/roach88/rtmsg/internal/rmw"
)

type subscription struct {
	entity
	topic    string
	typeName string
	queue    [][]byte
	dropped  int
}

func (s *subscription) Topic() string    { return s.topic }
func (s *subscription) TypeName() string { return s.typeName }

func (s *subscription) Take() ([]byte, bool, error) {
	r := s.rt
	r.mu.Lock()
	defer r.mu.Unlock()
	if !s.valid {
		return nil, false, &rmw.Error{Op: "take", GID: s.gid, Err: rmw.ErrInvalidEntity}
	}
	if len(s.queue) == 0 {
		return nil, false, nil
	}
	msg := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return msg, true, nil
}

type publisher struct {
	entity
	topic    string
	typeName string
}

func (p *publisher) Topic() string    { return p.topic }
func (p *publisher) TypeName() string { return p.typeName }

// Publish copies payload into every live subscription queue on the topic.
func (p *publisher) Publish(payload []byte) error {
	r := p.rt
	r.mu.Lock()
	defer r.mu.Unlock()
	if !p.valid {
		return &rmw.Error{Op: "publish", GID: p.gid, Err: rmw.ErrInvalidEntity}
	}
	t := r.topics[p.topic]
	for _, s := range t.subs {
		if len(s.queue) >= r.depth {
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.dropped++
			r.logger.Debug("subscription queue full, dropped oldest", "topic", s.topic, "gid", s.gid)
		}
		s.queue = append(s.queue, slices.Clone(payload))
	}
	if len(t.subs) > 0 {
		r.notify()
	}
	return nil
}

func (r *Runtime) CreateSubscription(name string, ts rmw.TypeSupport) (rmw.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.join(name, ts.TypeName())
	if err != nil {
		return nil, &rmw.Error{Op: "create_subscription", Err: err}
	}
	s := &subscription{entity: r.newEntity(), topic: name, typeName: ts.TypeName()}
	t.subs = append(t.subs, s)
	return s, nil
}

func (r *Runtime) CreatePublisher(name string, ts rmw.TypeSupport) (rmw.Publisher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.join(name, ts.TypeName())
	if err != nil {
		return nil, &rmw.Error{Op: "create_publisher", Err: err}
	}
	t.pubs++
	return &publisher{entity: r.newEntity(), topic: name, typeName: ts.TypeName()}, nil
}

func (r *Runtime) FinalizeSubscription(sub rmw.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, _ := sub.(*subscription)
	var e *entity
	if s != nil {
		e = &s.entity
	}
	if err := r.checkFinalize("finalize_subscription", e); err != nil {
		return err
	}
	s.valid = false
	s.queue = nil
	t := r.topics[s.topic]
	t.subs = slices.DeleteFunc(t.subs, func(x *subscription) bool { return x == s })
	return nil
}

func (r *Runtime) FinalizePublisher(pub rmw.Publisher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, _ := pub.(*publisher)
	var e *entity
	if p != nil {
		e = &p.entity
	}
	if err := r.checkFinalize("finalize_publisher", e); err != nil {
		return err
	}
	p.valid = false
	r.topics[p.topic].pubs--
	return nil
}
