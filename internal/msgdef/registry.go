package msgdef

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/rtmsg/internal/compiler"
)

// Registry resolves type names to Definitions. Each name is parsed at most
// once and the result, valid or not, is kept for the registry's lifetime.
//
// Lookups of published definitions take no lock. First-time construction is
// serialised by buildMu, so two goroutines asking for the same new type
// get the same *Definition.
type Registry struct {
	defs     sync.Map // string -> *Definition
	services sync.Map // string -> *ServiceDefinition
	buildMu  sync.Mutex

	src    Source
	alloc  Allocator
	ts     TypeSupportProvider
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithSource sets where schema text comes from. Defaults to BuiltinSource.
func WithSource(src Source) Option {
	return func(r *Registry) { r.src = src }
}

// WithAllocator sets the allocator behind every definition's buffers.
// A nil allocator keeps the default.
func WithAllocator(a Allocator) Option {
	return func(r *Registry) {
		if a != nil {
			r.alloc = a
		}
	}
}

// WithTypeSupport sets the provider of per-type layout descriptors.
// Defaults to PackedLayout.
func WithTypeSupport(p TypeSupportProvider) Option {
	return func(r *Registry) { r.ts = p }
}

// WithLogger sets the registry's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry returns an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		src:    BuiltinSource(),
		alloc:  defaultAllocator,
		ts:     PackedLayout{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the definition for typeName, parsing it on first use.
// The result is never nil; check IsValid.
func (r *Registry) Get(typeName string) *Definition {
	name := CanonicalName(typeName)
	if d, ok := r.defs.Load(name); ok {
		return d.(*Definition)
	}

	r.buildMu.Lock()
	defer r.buildMu.Unlock()
	return r.resolve(name, nil)
}

// Lookup returns an already cached definition without building one.
func (r *Registry) Lookup(typeName string) (*Definition, bool) {
	d, ok := r.defs.Load(CanonicalName(typeName))
	if !ok {
		return nil, false
	}
	return d.(*Definition), true
}

// Types returns the names of every cached definition, sorted.
func (r *Registry) Types() []string {
	var names []string
	r.defs.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	sort.Strings(names)
	return names
}

// resolve must be called with buildMu held. chain holds the names whose
// construction is in progress on this call stack.
func (r *Registry) resolve(name string, chain []string) *Definition {
	if d, ok := r.defs.Load(name); ok {
		return d.(*Definition)
	}
	if i := slices.Index(chain, name); i >= 0 {
		// Not cached: the entries on the chain become invalid as the
		// recursion unwinds, which is what gets published.
		path := append(slices.Clone(chain[i:]), name)
		return invalid(name, fmt.Errorf("%w: %s", ErrSchemaCycle, strings.Join(path, " → ")))
	}

	return r.publish(r.build(name, append(chain, name)))
}

// publish caches def unless its name is already taken, returning the
// cached entry.
func (r *Registry) publish(def *Definition) *Definition {
	if prev, loaded := r.defs.LoadOrStore(def.typeName, def); loaded {
		return prev.(*Definition)
	}
	if def.err != nil {
		r.logger.Warn("invalid message definition", "type", def.typeName, "error", def.err)
		return def
	}
	r.logger.Debug("message definition parsed", "type", def.typeName, "fields", len(def.fields))
	return def
}

func (r *Registry) build(name string, chain []string) *Definition {
	if !validTypeName(name) {
		return invalid(name, fmt.Errorf("%q is not a package/Type name: %w", name, ErrUnknownType))
	}
	text, err := r.src.Load(KindMessage, name)
	if err != nil {
		if errors.Is(err, ErrTypeNotFound) {
			if half, ok := r.serviceHalf(name, chain); ok {
				return half
			}
		}
		return invalid(name, err)
	}
	return r.parse(name, text, chain)
}

// parse turns schema text into a definition. Nested types are resolved
// recursively before the definition is assembled, so a returned definition
// only ever points at complete children.
func (r *Registry) parse(name, text string, chain []string) *Definition {
	pkg, _, _ := strings.Cut(name, "/")
	decls, err := compiler.ParseDecls(text)
	if err != nil {
		return invalid(name, err)
	}

	def := &Definition{typeName: name, alloc: r.alloc}
	for _, d := range decls {
		if d.Array {
			return invalid(name, fmt.Errorf("line %d: %s[] %s: %w", d.Line, d.Type, d.Name, ErrUnsupportedArray))
		}
		if d.Constant {
			if !IsPrimitive(d.Type) || d.Type == "time" || d.Type == "duration" {
				return invalid(name, fmt.Errorf("line %d: constant %s of type %s: %w", d.Line, d.Name, d.Type, ErrUnknownType))
			}
			def.constants = append(def.constants, Constant{Type: d.Type, Name: d.Name, Value: d.Value})
			continue
		}
		if ft, ok := primitiveKeywords[d.Type]; ok {
			def.fields = append(def.fields, Field{name: d.Name, typ: ft})
			continue
		}

		child := r.resolve(Qualify(pkg, d.Type), chain)
		if !child.IsValid() {
			return invalid(name, fmt.Errorf("field %s: %s: %w", d.Name, child.typeName, child.err))
		}
		def.fields = append(def.fields, Field{name: d.Name, typ: Message, def: child})
	}

	ts, err := r.ts.TypeSupport(def)
	if err != nil {
		return invalid(name, fmt.Errorf("type support: %w", err))
	}
	def.ts = ts
	return def
}
