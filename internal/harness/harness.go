package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/rtmsg/internal/ir"
	"github.com/roach88/rtmsg/internal/loop"
	"github.com/roach88/rtmsg/internal/msgdef"
	"github.com/roach88/rtmsg/internal/node"
	"github.com/roach88/rtmsg/internal/rmw"
	"github.com/roach88/rtmsg/internal/rmw/memrmw"
	"github.com/roach88/rtmsg/internal/testutil"
)

// Option configures Run.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	recorder node.Recorder
	alloc    msgdef.Allocator
}

// WithLogger sets the logger for the node and middleware. Logs are
// discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRecorder records every message the harness node sees.
func WithRecorder(r node.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithAllocator backs the scenario's message buffers with a.
func WithAllocator(a msgdef.Allocator) Option {
	return func(o *options) { o.alloc = a }
}

// Harness executes one scenario. Steps run on the caller's goroutine while
// the node's loop runs on its own; events from both are collected per step
// and numbered once the step is complete.
//
// Events inside a step are ordered by rank: the publish or call first, then
// receives in subscription order, or serve before response. Arrival order
// between subscriptions depends on where the loop is in its pass, so it is
// not used.
type Harness struct {
	sc      *Scenario
	node    *node.Node
	seq     testutil.EventCounter
	logger  *slog.Logger
	timeout time.Duration

	subs    []*node.Subscriber
	servers map[string]bool
	pubs    map[endpointKey]*node.Publisher
	clients map[endpointKey]*node.ServiceClient

	mu      sync.Mutex
	pending []TraceEvent
	arrived chan struct{}
}

type endpointKey struct{ name, typeName string }

// Run executes a scenario on a fresh in-memory middleware and returns the
// trace with assertion results. A returned error means the scenario could
// not be executed; failed assertions are reported in the Result.
func Run(ctx context.Context, sc *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	src, err := schemaSource(sc.Schemas)
	if err != nil {
		return nil, err
	}
	reg := msgdef.NewRegistry(
		msgdef.WithSource(src),
		msgdef.WithLogger(o.logger),
		msgdef.WithAllocator(o.alloc),
	)
	rt := memrmw.New(
		memrmw.WithLogger(o.logger),
		memrmw.WithGIDGenerator(&rmw.SequentialGenerator{}),
	)
	defer rt.Close()

	nodeOpts := []node.Option{
		node.WithName("harness"),
		node.WithLogger(o.logger),
		node.WithLoopOptions(loop.WithFatalHandler(func(err error) {
			o.logger.Error("loop failed", "error", err)
		})),
	}
	if sc.Namespace != "" {
		nodeOpts = append(nodeOpts, node.WithNamespace(sc.Namespace))
	}
	if o.recorder != nil {
		nodeOpts = append(nodeOpts, node.WithRecorder(o.recorder))
	}
	n, err := node.New(rt, reg, nodeOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create node: %w", err)
	}

	h := &Harness{
		sc:      sc,
		node:    n,
		logger:  o.logger,
		timeout: sc.Timeout,
		servers: make(map[string]bool),
		pubs:    make(map[endpointKey]*node.Publisher),
		clients: make(map[endpointKey]*node.ServiceClient),
		arrived: make(chan struct{}, 1),
	}
	if h.timeout == 0 {
		h.timeout = DefaultTimeout
	}

	if err := h.setup(); err != nil {
		_ = n.Close()
		return nil, err
	}

	result := NewResult()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return n.Run(gctx) })
	g.Go(func() error {
		defer n.Close()
		return h.executeSteps(gctx, result)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, sc.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func schemaSource(s Schemas) (msgdef.Source, error) {
	src := msgdef.MultiSource{msgdef.MapSource{Messages: s.Messages, Services: s.Services}}
	for _, dir := range s.CUE {
		cs, err := msgdef.CUESource(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to load CUE schemas from %s: %w", dir, err)
		}
		src = append(src, cs)
	}
	if len(s.Dirs) > 0 {
		src = append(src, msgdef.DirSource(s.Dirs...))
	}
	return append(src, msgdef.BuiltinSource()), nil
}

// setup creates subscriptions and servers before the loop starts.
func (h *Harness) setup() error {
	for i, s := range h.sc.Subscriptions {
		rank := 1 + i
		sub, err := h.node.Subscribe(s.Topic, s.Type, func(v *ir.Values) {
			sub := h.subs[rank-1]
			h.emit(TraceEvent{Kind: KindReceive, Name: sub.Topic(), Type: sub.Definition().TypeName(), Values: v, rank: rank})
		})
		if err != nil {
			return fmt.Errorf("subscriptions[%d]: %w", i, err)
		}
		h.subs = append(h.subs, sub)
	}

	for i, s := range h.sc.Servers {
		response, err := nodeValues(&s.Response)
		if err != nil {
			return fmt.Errorf("servers[%d]: response: %w", i, err)
		}
		var name string
		typeName := h.node.Registry().GetService(s.Type).TypeName()
		srv, err := h.node.Serve(s.Service, s.Type, func(req *ir.Values) (*ir.Values, error) {
			h.emit(TraceEvent{Kind: KindServe, Name: name, Type: typeName, Values: req, rank: 1})
			return response.Clone(), nil
		})
		if err != nil {
			return fmt.Errorf("servers[%d]: %w", i, err)
		}
		name = srv.Service()
		h.servers[name] = true
	}
	return nil
}

func (h *Harness) executeSteps(ctx context.Context, result *Result) error {
	for i, step := range h.sc.Steps {
		var err error
		if step.Publish != "" {
			err = h.publish(ctx, step)
		} else {
			err = h.call(ctx, step)
		}
		if err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		h.flush(result)
		h.logger.Debug("step completed", "step", i, "trace_len", len(result.Trace))
	}
	return nil
}

func (h *Harness) publish(ctx context.Context, step Step) error {
	values, err := nodeValues(&step.Values)
	if err != nil {
		return err
	}
	key := endpointKey{step.Publish, step.Type}
	pub, ok := h.pubs[key]
	if !ok {
		if pub, err = h.node.Advertise(step.Publish, step.Type); err != nil {
			return err
		}
		h.pubs[key] = pub
	}

	def := pub.Definition()
	wire, decoded, err := encode(def, values)
	if err != nil {
		return err
	}

	expect := 1
	for _, sub := range h.subs {
		if sub.Topic() == pub.Topic() {
			expect++
		}
	}

	h.emit(TraceEvent{Kind: KindPublish, Name: pub.Topic(), Type: def.TypeName(), Wire: wire, Values: decoded})
	if err := pub.Publish(values); err != nil {
		return err
	}
	return h.await(ctx, expect)
}

func (h *Harness) call(ctx context.Context, step Step) error {
	values, err := nodeValues(&step.Values)
	if err != nil {
		return err
	}
	key := endpointKey{step.Call, step.Type}
	cl, ok := h.clients[key]
	if !ok {
		if cl, err = h.node.ServiceClient(step.Call, step.Type); err != nil {
			return err
		}
		h.clients[key] = cl
	}
	if !h.servers[cl.Service()] {
		return fmt.Errorf("no server for %s", cl.Service())
	}

	svc := cl.Definition()
	wire, decoded, err := encode(svc.Request(), values)
	if err != nil {
		return err
	}

	h.emit(TraceEvent{Kind: KindCall, Name: cl.Service(), Type: svc.TypeName(), Wire: wire, Values: decoded})
	err = cl.Call(values, func(resp *ir.Values) {
		h.emit(TraceEvent{Kind: KindResponse, Name: cl.Service(), Type: svc.TypeName(), Values: resp, rank: 2})
	})
	if err != nil {
		return err
	}
	return h.await(ctx, 3)
}

// encode serializes v and decodes it again, so the trace shows exactly what
// went on the wire.
func encode(def *msgdef.Definition, v *ir.Values) ([]byte, *ir.Values, error) {
	buf, err := def.SerializeMessage(v)
	if err != nil {
		return nil, nil, err
	}
	wire := slices.Clone(buf.Bytes())
	if err := def.Disallocate(buf); err != nil {
		return nil, nil, err
	}
	decoded, err := def.DeserializeMessage(wire)
	if err != nil {
		return nil, nil, err
	}
	return wire, decoded, nil
}

func (h *Harness) emit(e TraceEvent) {
	h.mu.Lock()
	h.pending = append(h.pending, e)
	h.mu.Unlock()
	select {
	case h.arrived <- struct{}{}:
	default:
	}
}

// await blocks until the current step has produced n events.
func (h *Harness) await(ctx context.Context, n int) error {
	timer := time.NewTimer(h.timeout)
	defer timer.Stop()
	for {
		h.mu.Lock()
		got := len(h.pending)
		h.mu.Unlock()
		if got >= n {
			return nil
		}
		select {
		case <-h.arrived:
		case <-timer.C:
			return fmt.Errorf("timed out after %s waiting for %d events, got %d", h.timeout, n, got)
		case <-ctx.Done():
			return errors.Join(fmt.Errorf("waiting for %d events, got %d", n, got), ctx.Err())
		}
	}
}

// flush numbers the step's events and appends them to the trace.
func (h *Harness) flush(result *Result) {
	h.mu.Lock()
	events := h.pending
	h.pending = nil
	h.mu.Unlock()

	slices.SortStableFunc(events, func(a, b TraceEvent) int { return a.rank - b.rank })
	for _, e := range events {
		e.Seq = h.seq.Next()
		result.Trace = append(result.Trace, e)
	}
}
