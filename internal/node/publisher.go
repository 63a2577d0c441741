package node

import (
	"sync/atomic"

	"github.com/roach88/rtmsg/internal/ir"
	"github.com/roach88/rtmsg/internal/msgdef"
	"github.com/roach88/rtmsg/internal/rmw"
)

// Publisher serialises values and publishes them on one topic.
type Publisher struct {
	node   *Node
	topic  string
	def    *msgdef.Definition
	pub    rmw.Publisher
	closed atomic.Bool
}

// Advertise creates a publisher.
func (n *Node) Advertise(topic, typeName string) (*Publisher, error) {
	name, err := n.ResolveName(topic)
	if err != nil {
		return nil, err
	}
	def, err := n.definition(typeName)
	if err != nil {
		return nil, err
	}
	pub, err := n.rt.CreatePublisher(name, def.TypeSupport())
	if err != nil {
		return nil, err
	}
	p := &Publisher{node: n, topic: name, def: def, pub: pub}
	if err := n.track(p); err != nil {
		_ = n.rt.FinalizePublisher(pub)
		return nil, err
	}
	return p, nil
}

// Topic returns the resolved topic name.
func (p *Publisher) Topic() string { return p.topic }

// Definition returns the message definition of the topic.
func (p *Publisher) Definition() *msgdef.Definition { return p.def }

// Publish encodes v into a wire buffer, hands the bytes to the middleware
// and releases the buffer.
func (p *Publisher) Publish(v *ir.Values) error {
	buf, err := p.def.SerializeMessage(v)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.def.Disallocate(buf); err != nil {
			p.node.logger.Error("release publish buffer", "topic", p.topic, "error", err)
		}
	}()

	if err := p.pub.Publish(buf.Bytes()); err != nil {
		return err
	}
	p.node.record(p.topic, p.def, buf.Bytes(), v)
	return nil
}

// Close destroys the publisher. Publishers are never part of a wait set,
// so teardown is immediate.
func (p *Publisher) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.node.forget(p)
	return p.node.rt.FinalizePublisher(p.pub)
}
