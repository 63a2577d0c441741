package node

import (
	"sync/atomic"

	"github.com/roach88/rtmsg/internal/ir"
	"github.com/roach88/rtmsg/internal/msgdef"
	"github.com/roach88/rtmsg/internal/rmw"
)

// Subscriber delivers decoded messages from one topic to a handler.
type Subscriber struct {
	node    *Node
	topic   string
	def     *msgdef.Definition
	sub     rmw.Subscription
	handler func(*ir.Values)

	closed   atomic.Bool
	received atomic.Int64
	dropped  atomic.Int64
}

// Subscribe creates a subscriber and registers it with the node's loop.
// handler runs on the loop goroutine.
func (n *Node) Subscribe(topic, typeName string, handler func(*ir.Values)) (*Subscriber, error) {
	name, err := n.ResolveName(topic)
	if err != nil {
		return nil, err
	}
	def, err := n.definition(typeName)
	if err != nil {
		return nil, err
	}
	sub, err := n.rt.CreateSubscription(name, def.TypeSupport())
	if err != nil {
		return nil, err
	}
	s := &Subscriber{node: n, topic: name, def: def, sub: sub, handler: handler}
	if err := n.track(s); err != nil {
		_ = n.rt.FinalizeSubscription(sub)
		return nil, err
	}
	n.loop.RegisterSubscriber(s)
	n.logger.Debug("subscribed", "topic", name, "type", def.TypeName())
	return s, nil
}

// Topic returns the resolved topic name.
func (s *Subscriber) Topic() string { return s.topic }

// Definition returns the message definition of the topic.
func (s *Subscriber) Definition() *msgdef.Definition { return s.def }

// Subscription returns the middleware entity.
func (s *Subscriber) Subscription() rmw.Subscription { return s.sub }

// Received returns the number of messages handed to the handler.
func (s *Subscriber) Received() int64 { return s.received.Load() }

// Dropped returns the number of messages that failed to decode.
func (s *Subscriber) Dropped() int64 { return s.dropped.Load() }

// TryHandleMessage takes every queued message and passes it to the handler.
// Messages that fail to decode are logged and dropped.
func (s *Subscriber) TryHandleMessage() {
	for {
		payload, ok, err := s.sub.Take()
		if err != nil {
			s.node.logger.Debug("take failed", "topic", s.topic, "error", err)
			return
		}
		if !ok {
			return
		}
		v, err := s.def.DeserializeMessage(payload)
		if err != nil {
			s.dropped.Add(1)
			s.node.logger.Warn("dropping undecodable message", "topic", s.topic, "type", s.def.TypeName(), "error", err)
			continue
		}
		s.node.record(s.topic, s.def, payload, v)
		s.received.Add(1)
		if s.handler != nil {
			s.handler(v)
		}
	}
}

// Close unregisters the subscriber and hands its subscription to the loop
// for teardown. It must not be called from a loop handler.
func (s *Subscriber) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.node.loop.UnregisterSubscriber(s)
	s.node.loop.FinalizeSubscription(s.sub)
	s.node.forget(s)
	return nil
}
