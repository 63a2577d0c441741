package node

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/roach88/rtmsg/internal/ir"
	"github.com/roach88/rtmsg/internal/msgdef"
	"github.com/roach88/rtmsg/internal/rmw"
)

// Handler computes a service response from a request.
type Handler func(request *ir.Values) (*ir.Values, error)

// Service answers requests for one service name.
type Service struct {
	node    *Node
	service string
	svc     *msgdef.ServiceDefinition
	srv     rmw.Service
	handled atomic.Int64
	closed  atomic.Bool
}

// Serve creates a service. handler runs on a middleware goroutine, not the
// loop goroutine, and may be called concurrently.
func (n *Node) Serve(service, typeName string, handler Handler) (*Service, error) {
	name, err := n.ResolveName(service)
	if err != nil {
		return nil, err
	}
	svc := n.reg.GetService(typeName)
	if !svc.IsValid() {
		return nil, fmt.Errorf("service type %s: %w", typeName, svc.Err())
	}
	s := &Service{node: n, service: name, svc: svc}
	srv, err := n.rt.CreateService(name, svc.Request().TypeSupport(), svc.Response().TypeSupport(), s.answer(handler))
	if err != nil {
		return nil, err
	}
	s.srv = srv
	if err := n.track(s); err != nil {
		_ = n.rt.FinalizeService(srv)
		return nil, err
	}
	return s, nil
}

// answer adapts a values handler to the wire.
func (s *Service) answer(handler Handler) rmw.ServiceHandler {
	return func(payload []byte) ([]byte, error) {
		req, err := s.svc.Request().DeserializeMessage(payload)
		if err != nil {
			return nil, fmt.Errorf("decode request: %w", err)
		}
		resp, err := handler(req)
		if err != nil {
			return nil, err
		}
		def := s.svc.Response()
		buf, err := def.SerializeMessage(resp)
		if err != nil {
			return nil, fmt.Errorf("encode response: %w", err)
		}
		// The buffer's memory goes back to the allocator below.
		out := slices.Clone(buf.Bytes())
		if err := def.Disallocate(buf); err != nil {
			return nil, err
		}
		s.handled.Add(1)
		return out, nil
	}
}

// Service returns the resolved service name.
func (s *Service) Service() string { return s.service }

// Handled returns the number of requests answered.
func (s *Service) Handled() int64 { return s.handled.Load() }

// Close destroys the service.
func (s *Service) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.node.forget(s)
	return s.node.rt.FinalizeService(s.srv)
}
