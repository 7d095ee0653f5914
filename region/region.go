// Package region implements the sbrk-style collaborator consumed by
// unsafex/malloc: a single, contiguous, monotonically growing span of
// bytes identified by a fixed base address.
//
// Go slices can silently move their backing array when grown past
// capacity, which would invalidate every pointer a caller already holds
// into the heap. To avoid that, Region reserves its full capacity once
// at construction and only ever grows the live length within it; the
// base address never changes for the lifetime of the Region.
package region

import (
	"fmt"
	"unsafe"

	"github.com/bytedance/gopkg/lang/dirtmake"
)

// Region is a fixed-capacity, append-only byte arena. It never shrinks
// and never relocates, so unsafe.Pointer values derived from it remain
// valid for as long as the Region exists.
type Region struct {
	arena []byte
	base  unsafe.Pointer
	used  int
}

// New reserves maxBytes of address space for the region. No byte of it
// is committed to a heap block until Extend is called; callers pick
// maxBytes as the simulated ceiling of the process's address space.
func New(maxBytes int) *Region {
	if maxBytes <= 0 {
		panic("region: maxBytes must be positive")
	}
	arena := dirtmake.Bytes(0, maxBytes)
	r := &Region{arena: arena}
	// arena has zero length, so it is resliced to its full capacity
	// instead of taking &arena[0], to obtain a stable base pointer
	// without first growing the region.
	full := arena[:cap(arena)]
	r.base = unsafe.Pointer(&full[0])
	return r
}

// Extend grows the region by n bytes and returns the base address of
// the newly usable span. It fails with OutOfAddressSpace-equivalent
// error if n would exceed the region's reserved capacity.
func (r *Region) Extend(n int) (unsafe.Pointer, error) {
	if n <= 0 {
		return nil, fmt.Errorf("region: extend requires n > 0, got %d", n)
	}
	if r.used+n > cap(r.arena) {
		return nil, fmt.Errorf("region: capacity exhausted (have %d, used %d, want %d)",
			cap(r.arena), r.used, n)
	}
	base := unsafe.Add(r.base, r.used)
	r.used += n
	return base, nil
}

// Low returns the region's base address, fixed at construction time.
func (r *Region) Low() unsafe.Pointer {
	return r.base
}

// High returns the address one past the last committed byte.
func (r *Region) High() unsafe.Pointer {
	return unsafe.Add(r.base, r.used)
}

// Used returns the number of bytes committed so far via Extend.
func (r *Region) Used() int {
	return r.used
}

// Cap returns the region's reserved capacity.
func (r *Region) Cap() int {
	return cap(r.arena)
}

// Bytes returns the live, committed portion of the arena as a slice.
// The slice aliases the region's backing array; callers must not hold
// onto it across a further Extend if they rely on its length.
func (r *Region) Bytes() []byte {
	return r.arena[:r.used:r.used]
}

// Offset reports p's distance from the region's base address. It
// panics if p does not lie within the region.
func (r *Region) Offset(p unsafe.Pointer) int64 {
	off := int64(uintptr(p) - uintptr(r.base))
	if off < 0 || off > int64(r.used) {
		panic("region: pointer out of range")
	}
	return off
}

// Pointer converts an offset previously obtained from Offset back into
// an address within the region.
func (r *Region) Pointer(off int64) unsafe.Pointer {
	return unsafe.Add(r.base, off)
}
