package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/rtmsg/internal/ir"
	"github.com/roach88/rtmsg/internal/loop"
	"github.com/roach88/rtmsg/internal/msgdef"
	"github.com/roach88/rtmsg/internal/rmw"
)

// Recorder receives every message a node publishes or receives.
// *store.Session implements it.
type Recorder interface {
	RecordMessage(topic, typeName string, payload []byte, values *ir.Values) error
}

// closer is any endpoint the node closes on shutdown.
type closer interface {
	Close() error
}

// Node owns the endpoints created through it.
type Node struct {
	name      string
	namespace string

	rt       rmw.Runtime
	reg      *msgdef.Registry
	loop     *loop.Loop
	logger   *slog.Logger
	recorder Recorder
	loopOpts []loop.Option

	mu        sync.Mutex
	endpoints map[closer]struct{}
	closed    bool
}

// Option configures a Node.
type Option func(*Node)

// WithName sets the node name. Defaults to "rtmsg".
func WithName(name string) Option {
	return func(n *Node) { n.name = name }
}

// WithNamespace sets the namespace relative names resolve under.
func WithNamespace(ns string) Option {
	return func(n *Node) { n.namespace = ns }
}

// WithLogger sets the logger for the node, its loop and its endpoints.
func WithLogger(l *slog.Logger) Option {
	return func(n *Node) { n.logger = l }
}

// WithRecorder records every message the node's endpoints publish or take.
func WithRecorder(r Recorder) Option {
	return func(n *Node) { n.recorder = r }
}

// WithLoopOptions passes options through to the node's event loop.
func WithLoopOptions(opts ...loop.Option) Option {
	return func(n *Node) { n.loopOpts = append(n.loopOpts, opts...) }
}

// New creates a node on rt that resolves types through reg.
func New(rt rmw.Runtime, reg *msgdef.Registry, opts ...Option) (*Node, error) {
	n := &Node{
		name:      "rtmsg",
		namespace: "/",
		rt:        rt,
		reg:       reg,
		logger:    slog.Default(),
		endpoints: make(map[closer]struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.With("node", n.FullName())

	l, err := loop.New(rt, append([]loop.Option{loop.WithLogger(n.logger)}, n.loopOpts...)...)
	if err != nil {
		return nil, err
	}
	n.loop = l
	return n, nil
}

// Name returns the node name without namespace.
func (n *Node) Name() string { return n.name }

// Registry returns the node's definition registry.
func (n *Node) Registry() *msgdef.Registry { return n.reg }

// Loop returns the node's event loop.
func (n *Node) Loop() *loop.Loop { return n.loop }

// Run runs the event loop until ctx is cancelled or Close is called.
// Run on a node that is already closed returns nil immediately.
func (n *Node) Run(ctx context.Context) error {
	err := n.loop.Run(ctx)
	if errors.Is(err, loop.ErrAlreadyRunning) {
		n.mu.Lock()
		closed := n.closed
		n.mu.Unlock()
		if closed {
			return nil
		}
	}
	return err
}

// Close closes every endpoint, then stops the loop and waits for it.
func (n *Node) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	eps := make([]closer, 0, len(n.endpoints))
	for ep := range n.endpoints {
		eps = append(eps, ep)
	}
	n.mu.Unlock()

	var errs []error
	for _, ep := range eps {
		if err := ep.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	n.loop.Close()
	return errors.Join(errs...)
}

func (n *Node) track(ep closer) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return fmt.Errorf("node %s is closed", n.FullName())
	}
	n.endpoints[ep] = struct{}{}
	return nil
}

func (n *Node) forget(ep closer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.endpoints, ep)
}

// definition resolves typeName to a valid definition.
func (n *Node) definition(typeName string) (*msgdef.Definition, error) {
	def := n.reg.Get(typeName)
	if !def.IsValid() {
		return nil, fmt.Errorf("message type %s: %w", typeName, def.Err())
	}
	return def, nil
}

func (n *Node) record(topic string, def *msgdef.Definition, payload []byte, v *ir.Values) {
	if n.recorder == nil {
		return
	}
	if err := n.recorder.RecordMessage(topic, def.TypeName(), payload, v); err != nil {
		n.logger.Warn("record message failed", "topic", topic, "type", def.TypeName(), "error", err)
	}
}
