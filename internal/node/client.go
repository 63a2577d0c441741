package node

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/roach88/rtmsg/internal/ir"
	"github.com/roach88/rtmsg/internal/msgdef"
	"github.com/roach88/rtmsg/internal/rmw"
)

// ServiceClient calls a service and delivers each response to the callback
// given with its request.
type ServiceClient struct {
	node    *Node
	service string
	svc     *msgdef.ServiceDefinition
	cl      rmw.Client

	mu      sync.Mutex // held across send so a response never beats its callback
	pending map[int64]func(*ir.Values)

	closed atomic.Bool
}

// ServiceClient creates a client for the service and registers it with the
// node's loop.
func (n *Node) ServiceClient(service, typeName string) (*ServiceClient, error) {
	name, err := n.ResolveName(service)
	if err != nil {
		return nil, err
	}
	svc := n.reg.GetService(typeName)
	if !svc.IsValid() {
		return nil, fmt.Errorf("service type %s: %w", typeName, svc.Err())
	}
	cl, err := n.rt.CreateClient(name, svc.Request().TypeSupport(), svc.Response().TypeSupport())
	if err != nil {
		return nil, err
	}
	c := &ServiceClient{
		node:    n,
		service: name,
		svc:     svc,
		cl:      cl,
		pending: make(map[int64]func(*ir.Values)),
	}
	if err := n.track(c); err != nil {
		_ = n.rt.FinalizeClient(cl)
		return nil, err
	}
	n.loop.RegisterClient(c)
	return c, nil
}

// Service returns the resolved service name.
func (c *ServiceClient) Service() string { return c.service }

// Definition returns the service definition.
func (c *ServiceClient) Definition() *msgdef.ServiceDefinition { return c.svc }

// Client returns the middleware entity.
func (c *ServiceClient) Client() rmw.Client { return c.cl }

// Pending returns the number of calls awaiting a response.
func (c *ServiceClient) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Call encodes the request and sends it. callback receives the decoded
// response on the loop goroutine.
func (c *ServiceClient) Call(request *ir.Values, callback func(*ir.Values)) error {
	if c.closed.Load() {
		return fmt.Errorf("client %s is closed", c.service)
	}
	def := c.svc.Request()
	buf, err := def.SerializeMessage(request)
	if err != nil {
		return err
	}
	defer func() { _ = def.Disallocate(buf) }()

	c.mu.Lock()
	defer c.mu.Unlock()
	seq, err := c.cl.SendRequest(buf.Bytes())
	if err != nil {
		return err
	}
	c.pending[seq] = callback
	c.node.record(c.service, def, buf.Bytes(), request)
	return nil
}

// TryHandleAnswer takes every queued response and runs its callback.
func (c *ServiceClient) TryHandleAnswer() {
	def := c.svc.Response()
	for {
		seq, payload, ok, err := c.cl.TakeResponse()
		if err != nil {
			c.node.logger.Debug("take response failed", "service", c.service, "error", err)
			return
		}
		if !ok {
			return
		}

		c.mu.Lock()
		cb, known := c.pending[seq]
		delete(c.pending, seq)
		c.mu.Unlock()
		if !known {
			c.node.logger.Warn("response for unknown request", "service", c.service, "seq", seq)
			continue
		}

		v, err := def.DeserializeMessage(payload)
		if err != nil {
			c.node.logger.Warn("dropping undecodable response", "service", c.service, "seq", seq, "error", err)
			continue
		}
		c.node.record(c.service, def, payload, v)
		if cb != nil {
			cb(v)
		}
	}
}

// Close unregisters the client and hands it to the loop for teardown.
// Calls still awaiting a response never complete.
func (c *ServiceClient) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.node.loop.UnregisterClient(c)
	c.node.loop.FinalizeClient(c.cl)
	c.node.forget(c)
	return nil
}
