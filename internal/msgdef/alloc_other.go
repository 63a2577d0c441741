//go:build !unix

package msgdef

import (
	"fmt"
	"runtime"
)

func newMmapAllocator() (Allocator, error) {
	return nil, fmt.Errorf("mmap allocator is not supported on %s", runtime.GOOS)
}
