package malloc

import "sync"

var (
	defaultOnce sync.Once
	defaultHeap *Allocator
)

// std returns the process-wide default Allocator, building it on first
// use. The sync.Once only fixes initialization order on first touch; it
// does not make the default heap safe for concurrent use (spec.md §5:
// callers must not observe initialization concurrently, and must
// otherwise serialize their own access).
func std() *Allocator {
	defaultOnce.Do(func() {
		defaultHeap = NewAllocator()
	})
	return defaultHeap
}

// Allocate delegates to the process-wide default Allocator, mirroring
// the plain four-call C contract (spec.md §6) for callers that don't
// need more than one heap.
func Allocate(size int) []byte { return std().Allocate(size) }

// Release delegates to the process-wide default Allocator.
func Release(b []byte) { std().Release(b) }

// Resize delegates to the process-wide default Allocator.
func Resize(b []byte, size int) []byte { return std().Resize(b, size) }

// ZeroedAllocate delegates to the process-wide default Allocator.
func ZeroedAllocate(n, size int) []byte { return std().ZeroedAllocate(n, size) }
