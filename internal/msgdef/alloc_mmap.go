//go:build unix

package msgdef

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MmapAllocator backs each buffer with its own anonymous private mapping,
// so a released buffer is returned to the OS immediately. Mappings are page
// aligned and zero filled by the kernel.
type MmapAllocator struct {
	mu   sync.Mutex
	live map[uintptr][]byte
}

// NewMmapAllocator returns an MmapAllocator.
func NewMmapAllocator() *MmapAllocator {
	return &MmapAllocator{live: make(map[uintptr][]byte)}
}

func newMmapAllocator() (Allocator, error) { return NewMmapAllocator(), nil }

func (a *MmapAllocator) Allocate(n, align int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative allocation size %d", n)
	}
	if align > unix.Getpagesize() {
		return nil, fmt.Errorf("alignment %d exceeds page size", align)
	}
	if n == 0 {
		return []byte{}, nil
	}
	mem, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", n, err)
	}
	a.mu.Lock()
	a.live[uintptr(unsafe.Pointer(&mem[0]))] = mem
	a.mu.Unlock()
	return mem, nil
}

func (a *MmapAllocator) Free(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	key := uintptr(unsafe.Pointer(&b[0]))
	a.mu.Lock()
	mem, ok := a.live[key]
	delete(a.live, key)
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("free of unmapped buffer at %#x", key)
	}
	return unix.Munmap(mem)
}

// Live returns the number of mappings not yet freed.
func (a *MmapAllocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}
