package memrmw

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/rtmsg/internal/rmw"
)

// DefaultQueueDepth is the per-subscription and per-client queue depth.
// When a queue is full the oldest entry is dropped.
const DefaultQueueDepth = 64

// Runtime is an in-process middleware. The zero value is not usable; call New.
type Runtime struct {
	mu       sync.Mutex
	topics   map[string]*topic
	services map[string]*service
	changed  chan struct{} // closed and replaced on every readiness change

	gen    rmw.GIDGenerator
	depth  int
	logger *slog.Logger

	handlers sync.WaitGroup
	closed   bool
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithQueueDepth bounds every subscription and client queue. Values below 1
// are treated as 1.
func WithQueueDepth(n int) Option {
	return func(r *Runtime) { r.depth = max(n, 1) }
}

// WithGIDGenerator sets the entity GID source. Defaults to UUIDv7.
func WithGIDGenerator(g rmw.GIDGenerator) Option {
	return func(r *Runtime) { r.gen = g }
}

// WithLogger sets the runtime's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

// New returns an empty runtime.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		topics:   make(map[string]*topic),
		services: make(map[string]*service),
		changed:  make(chan struct{}),
		gen:      rmw.UUIDv7Generator{},
		depth:    DefaultQueueDepth,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Close waits for in-flight service handlers. Requests sent afterwards
// fail.
func (r *Runtime) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.handlers.Wait()
	return nil
}

// notify wakes every blocked wait. Caller holds r.mu.
func (r *Runtime) notify() {
	close(r.changed)
	r.changed = make(chan struct{})
}

// entity is the state shared by every entity kind. Guarded by Runtime.mu.
type entity struct {
	rt    *Runtime
	gid   rmw.GID
	valid bool
	refs  int // wait sets currently holding this entity
}

func (r *Runtime) newEntity() entity {
	return entity{rt: r, gid: r.gen.Generate(), valid: true}
}

func (e *entity) GID() rmw.GID { return e.gid }

func (e *entity) IsValid() bool {
	e.rt.mu.Lock()
	defer e.rt.mu.Unlock()
	return e.valid
}

// checkFinalize validates that e can be finalized. Caller holds r.mu.
func (r *Runtime) checkFinalize(op string, e *entity) error {
	if e == nil || e.rt != r || !e.valid {
		return &rmw.Error{Op: op, GID: gidOf(e), Err: rmw.ErrInvalidEntity}
	}
	if e.refs > 0 {
		return &rmw.Error{Op: op, GID: e.gid, Err: rmw.ErrInUse}
	}
	return nil
}

func gidOf(e *entity) rmw.GID {
	if e == nil {
		return rmw.GID{}
	}
	return e.gid
}

// topic tracks the endpoints of one topic name.
type topic struct {
	typeName string
	subs     []*subscription
	pubs     int
}

// join checks typeName against the topic's live endpoints.
func (r *Runtime) join(name, typeName string) (*topic, error) {
	t, ok := r.topics[name]
	if !ok {
		t = &topic{}
		r.topics[name] = t
	}
	if len(t.subs) == 0 && t.pubs == 0 {
		t.typeName = typeName
	}
	if t.typeName != typeName {
		return nil, fmt.Errorf("topic %s carries %s, not %s: %w", name, t.typeName, typeName, rmw.ErrTypeMismatch)
	}
	return t, nil
}

var _ rmw.Runtime = (*Runtime)(nil)
