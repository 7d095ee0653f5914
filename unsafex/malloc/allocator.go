// Package malloc implements a userspace dynamic memory allocator over a
// single contiguous, monotonically growing region (see the sibling
// region package): boundary-tag blocks, immediate coalescing on
// release, split-on-placement, and a segregated free-list index with
// O(1) insert/unlink and O(k) best-class lookup.
//
// An *Allocator is not safe for concurrent use: every operation runs to
// completion without yielding and assumes single-writer access, exactly
// like the region it manages. Callers that need more than one
// independent heap should construct more than one Allocator rather than
// share one across goroutines.
package malloc

import (
	"math"
	"unsafe"

	"github.com/Otamio/Dynamic-Memory-Allocator/region"
)

// DefaultMaxRegionSize bounds how large an Allocator's region may grow,
// standing in for the ceiling a real process's address space would
// impose on sbrk.
const DefaultMaxRegionSize = 4 << 20 // 4MiB

// Allocator is a single heap instance: one region, one policy, one set
// of size-class free lists.
type Allocator struct {
	region *region.Region
	policy Policy
	roots  *classRoots

	heapListp   unsafe.Pointer // prologue payload; first traversable block
	initialized bool
	broken      bool // the region could not even hold the prologue/epilogue
}

// Option configures a new Allocator.
type Option func(*config)

type config struct {
	policy        Policy
	maxRegionSize int
	region        *region.Region
}

// WithPolicy overrides the default segregated-list policy.
func WithPolicy(p Policy) Option {
	return func(c *config) { c.policy = p }
}

// WithMaxRegionSize overrides the simulated address-space ceiling.
func WithMaxRegionSize(n int) Option {
	return func(c *config) { c.maxRegionSize = n }
}

// WithRegion supplies a pre-built region, e.g. so a test can inspect
// the arena directly. It must be freshly constructed and unused.
func WithRegion(r *region.Region) Option {
	return func(c *config) { c.region = r }
}

// NewAllocator builds a heap with no memory committed yet; the region
// is extended lazily on the first call to Allocate, Resize, or
// ZeroedAllocate (Release never initializes), matching spec.md §5's "initialized once on first API
// call." An invalid Policy panics here, at construction time, rather
// than surfacing as a confusing runtime failure later.
func NewAllocator(opts ...Option) *Allocator {
	c := config{
		policy:        DefaultPolicy(),
		maxRegionSize: DefaultMaxRegionSize,
	}
	for _, opt := range opts {
		opt(&c)
	}
	c.policy.validate()

	r := c.region
	if r == nil {
		r = region.New(c.maxRegionSize)
	}

	return &Allocator{
		region: r,
		policy: c.policy,
		roots:  newClassRoots(c.policy.numClasses()),
	}
}

// ensureInit lazily reserves the heap's alignment pad, prologue, and
// epilogue, then seeds the first free block. It returns false if the
// region could not even hold the 16-byte prelude, in which case the
// allocator can never serve a request.
func (a *Allocator) ensureInit() bool {
	if a.initialized {
		return !a.broken
	}

	base, err := a.region.Extend(4 * wordSize)
	if err != nil {
		a.broken = true
		a.initialized = true
		return false
	}

	// base+0:  alignment pad
	// base+4:  prologue header (size=8, alloc=1)
	// base+8:  prologue footer (size=8, alloc=1) -- coincides with bp,
	//          since an 8-byte block has zero payload bytes
	// base+12: epilogue header (size=0, alloc=1)
	writeWord(unsafe.Add(base, wordSize), pack(dwordSize, true))
	writeWord(unsafe.Add(base, 2*wordSize), pack(dwordSize, true))
	writeWord(unsafe.Add(base, 3*wordSize), pack(0, true))

	a.heapListp = unsafe.Add(base, 2*wordSize)
	a.initialized = true

	// Seed the first free block. A failure here is not fatal to
	// initialization: the first real Allocate call will retry the
	// identical extension on its miss path and fail the same way.
	a.extendHeap(a.policy.ChunkSize)
	return true
}

// extendHeap grows the region by at least bytes (rounded up to a
// multiple of 8), installs a new free block in the space vacated by the
// old epilogue header, writes a fresh epilogue past it, and offers the
// new block to the coalescing engine so it merges with a free tail if
// one exists.
func (a *Allocator) extendHeap(bytes int) (unsafe.Pointer, error) {
	size := alignUp(bytes)

	newBP := a.region.High()
	if _, err := a.region.Extend(size); err != nil {
		return nil, err
	}

	setTags(newBP, size, false)
	writeWord(unsafe.Add(a.region.High(), -wordSize), pack(0, true))

	return a.coalesce(newBP), nil
}

// normalizeSize maps a caller-requested payload size to the 8-aligned
// total block size that must be carved out for it.
func (a *Allocator) normalizeSize(size int) int {
	if size <= 16 {
		return minBlockSize
	}
	if a.policy.Quirk448 && size >= quirkLow && size <= quirkHigh {
		return 512
	}
	return alignUp(size + overhead)
}

// payloadSlice returns the first n bytes of bp's payload as a []byte
// whose capacity spans the block's entire payload area.
func payloadSlice(bp unsafe.Pointer, n int) []byte {
	capacity := blockSize(bp) - overhead
	return unsafe.Slice((*byte)(bp), capacity)[:n]
}

// Allocate returns a slice of at least size freshly-carved, uninitialized
// bytes, or nil if size is zero or no memory is available.
func (a *Allocator) Allocate(size int) []byte {
	if !a.ensureInit() {
		return nil
	}
	if size == 0 {
		return nil
	}

	asize := a.normalizeSize(size)

	if bp := a.findFit(asize); bp != nil {
		a.place(bp, asize)
		return payloadSlice(bp, size)
	}

	chunk := asize
	if chunk < a.policy.ChunkSize {
		chunk = a.policy.ChunkSize
	}
	bp, err := a.extendHeap(chunk)
	if err != nil {
		return nil
	}
	a.place(bp, asize)
	return payloadSlice(bp, size)
}

// Release returns b, a slice previously returned by Allocate, Resize, or
// ZeroedAllocate on this Allocator, to the free-list index. Releasing
// nil is a no-op. Releasing anything else is undefined behavior (double
// free, a foreign pointer, or an interior pointer are caller errors the
// allocator does not detect, per spec.md §7).
func (a *Allocator) Release(b []byte) {
	if b == nil {
		return
	}
	bp := unsafe.Pointer(&b[0])
	size := blockSize(bp)
	setTags(bp, size, false)
	a.coalesce(bp)
}

// Resize changes the size of the allocation backing b, preserving its
// contents up to the smaller of the old and new sizes. Resize(b, 0) is
// equivalent to Release(b) and returns nil; Resize(nil, size) is
// equivalent to Allocate(size).
func (a *Allocator) Resize(b []byte, size int) []byte {
	if size == 0 {
		a.Release(b)
		return nil
	}
	if b == nil {
		return a.Allocate(size)
	}
	if !a.ensureInit() {
		return nil
	}

	bp := unsafe.Pointer(&b[0])
	rsize := alignUp(size)
	if rsize < 16 {
		rsize = 16
	}
	oldpay := blockSize(bp) - overhead

	if rsize <= oldpay {
		return payloadSlice(bp, size)
	}

	if next := nextBlock(bp); !blockAlloc(next) {
		nextSize := blockSize(next)
		if oldpay+nextSize >= rsize {
			a.unlink(next)
			asize := rsize + overhead
			combined := oldpay + overhead + nextSize
			if combined-asize >= minBlockSize {
				setTags(bp, asize, true)
				rem := nextBlock(bp)
				setTags(rem, combined-asize, false)
				a.insertHead(rem)
			} else {
				setTags(bp, combined, true)
			}
			return payloadSlice(bp, size)
		}
	}

	newB := a.Allocate(size)
	if newB == nil {
		return nil
	}
	srcLen := oldpay
	if size < srcLen {
		srcLen = size
	}
	copy(newB, b[:srcLen])
	a.Release(b)
	return newB
}

// ZeroedAllocate allocates space for n elements of size bytes each and
// zeroes it. It returns nil, without extending the region, if n*size
// overflows.
func (a *Allocator) ZeroedAllocate(n, size int) []byte {
	if n < 0 || size < 0 {
		return nil
	}
	total := 0
	if n != 0 && size != 0 {
		if size > math.MaxInt/n {
			return nil
		}
		total = n * size
	}
	p := a.Allocate(total)
	if p != nil {
		for i := range p {
			p[i] = 0
		}
	}
	return p
}
