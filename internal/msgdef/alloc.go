package msgdef

import (
	"fmt"
	"sync/atomic"
)

// Allocator supplies the memory behind message buffers. Allocate must return
// n zeroed bytes aligned to at least align; Free receives exactly the slice
// Allocate returned.
type Allocator interface {
	Allocate(n, align int) ([]byte, error)
	Free(b []byte) error
}

// HeapAllocator allocates buffers on the Go heap and counts live buffers.
type HeapAllocator struct {
	live atomic.Int64
}

// NewHeapAllocator returns a HeapAllocator.
func NewHeapAllocator() *HeapAllocator { return &HeapAllocator{} }

func (a *HeapAllocator) Allocate(n, align int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative allocation size %d", n)
	}
	if align > 8 {
		return nil, fmt.Errorf("alignment %d exceeds heap guarantee of 8", align)
	}
	a.live.Add(1)
	// Go heap allocations of 8 bytes or more are 8-byte aligned.
	return make([]byte, n, max(n, 8)), nil
}

func (a *HeapAllocator) Free(b []byte) error {
	a.live.Add(-1)
	return nil
}

// Live returns the number of allocated, not yet freed buffers.
func (a *HeapAllocator) Live() int64 { return a.live.Load() }

// defaultAllocator backs registries built without WithAllocator.
var defaultAllocator Allocator = NewHeapAllocator()

// Allocator kinds accepted by NewAllocator.
const (
	AllocatorHeap = "heap"
	AllocatorMmap = "mmap"
)

// NewAllocator returns a fresh allocator of the named kind. An empty kind
// means heap. mmap is only available on unix.
func NewAllocator(kind string) (Allocator, error) {
	switch kind {
	case "", AllocatorHeap:
		return NewHeapAllocator(), nil
	case AllocatorMmap:
		return newMmapAllocator()
	default:
		return nil, fmt.Errorf("unknown allocator %q: must be %s or %s", kind, AllocatorHeap, AllocatorMmap)
	}
}
