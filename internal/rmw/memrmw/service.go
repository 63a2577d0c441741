package memrmw

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/rtmsg/internal/rmw"
)

// ErrServiceUnavailable is returned by SendRequest when no service of that
// name exists.
var ErrServiceUnavailable = errors.New("service unavailable")

type response struct {
	seq     int64
	payload []byte
}

type client struct {
	entity
	service  string
	reqType  string
	respType string
	nextSeq  int64
	queue    []response
}

func (c *client) Service() string { return c.service }

// SendRequest hands the request to the service's handler on a new
// goroutine. The response is queued on the client when the handler returns.
func (c *client) SendRequest(payload []byte) (int64, error) {
	r := c.rt
	r.mu.Lock()
	defer r.mu.Unlock()
	if !c.valid {
		return 0, &rmw.Error{Op: "send_request", GID: c.gid, Err: rmw.ErrInvalidEntity}
	}
	if r.closed {
		return 0, &rmw.Error{Op: "send_request", GID: c.gid, Err: errors.New("runtime closed")}
	}
	svc, ok := r.services[c.service]
	if !ok {
		return 0, &rmw.Error{Op: "send_request", GID: c.gid, Err: fmt.Errorf("%s: %w", c.service, ErrServiceUnavailable)}
	}
	c.nextSeq++
	seq := c.nextSeq
	req := slices.Clone(payload)

	r.handlers.Add(1)
	go func() {
		defer r.handlers.Done()
		resp, err := svc.handler(req)
		if err != nil {
			r.logger.Warn("service handler failed", "service", c.service, "seq", seq, "error", err)
			return
		}
		c.deliver(seq, resp)
	}()
	return seq, nil
}

func (c *client) deliver(seq int64, payload []byte) {
	r := c.rt
	r.mu.Lock()
	defer r.mu.Unlock()
	if !c.valid {
		return
	}
	if len(c.queue) >= r.depth {
		c.queue = c.queue[1:]
		r.logger.Debug("client response queue full, dropped oldest", "service", c.service, "gid", c.gid)
	}
	c.queue = append(c.queue, response{seq: seq, payload: payload})
	r.notify()
}

func (c *client) TakeResponse() (int64, []byte, bool, error) {
	r := c.rt
	r.mu.Lock()
	defer r.mu.Unlock()
	if !c.valid {
		return 0, nil, false, &rmw.Error{Op: "take_response", GID: c.gid, Err: rmw.ErrInvalidEntity}
	}
	if len(c.queue) == 0 {
		return 0, nil, false, nil
	}
	resp := c.queue[0]
	c.queue = c.queue[1:]
	return resp.seq, resp.payload, true, nil
}

type service struct {
	entity
	name     string
	reqType  string
	respType string
	handler  rmw.ServiceHandler
}

func (s *service) Service() string { return s.name }

func (r *Runtime) CreateClient(name string, request, response rmw.TypeSupport) (rmw.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if svc, ok := r.services[name]; ok {
		if err := matchService(svc, request, response); err != nil {
			return nil, &rmw.Error{Op: "create_client", Err: err}
		}
	}
	return &client{
		entity:   r.newEntity(),
		service:  name,
		reqType:  request.TypeName(),
		respType: response.TypeName(),
	}, nil
}

func (r *Runtime) CreateService(name string, request, response rmw.TypeSupport, h rmw.ServiceHandler) (rmw.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[name]; ok {
		return nil, &rmw.Error{Op: "create_service", Err: fmt.Errorf("service %s already has a server", name)}
	}
	svc := &service{
		entity:   r.newEntity(),
		name:     name,
		reqType:  request.TypeName(),
		respType: response.TypeName(),
		handler:  h,
	}
	r.services[name] = svc
	return svc, nil
}

func matchService(svc *service, request, response rmw.TypeSupport) error {
	if svc.reqType != request.TypeName() || svc.respType != response.TypeName() {
		return fmt.Errorf("service %s carries %s/%s, not %s/%s: %w",
			svc.name, svc.reqType, svc.respType, request.TypeName(), response.TypeName(), rmw.ErrTypeMismatch)
	}
	return nil
}

func (r *Runtime) FinalizeClient(cl rmw.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, _ := cl.(*client)
	var e *entity
	if c != nil {
		e = &c.entity
	}
	if err := r.checkFinalize("finalize_client", e); err != nil {
		return err
	}
	c.valid = false
	c.queue = nil
	return nil
}

func (r *Runtime) FinalizeService(sv rmw.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, _ := sv.(*service)
	var e *entity
	if s != nil {
		e = &s.entity
	}
	if err := r.checkFinalize("finalize_service", e); err != nil {
		return err
	}
	s.valid = false
	delete(r.services, s.name)
	return nil
}
