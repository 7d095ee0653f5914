package malloc

import (
	"fmt"

	"github.com/bytedance/gopkg/util/xxhash3"
)

// Check walks the heap from the prologue to the epilogue and verifies
// every invariant property named in spec.md §8: header/footer
// agreement, no adjacent free blocks, exactly-once free-list
// membership within class bounds, the block-size sum matching the
// committed region, and doubly-linked-list consistency within every
// class. It is a debug aid, not part of the hot path, and is O(number
// of blocks).
func (a *Allocator) Check() error {
	if !a.initialized {
		return nil
	}

	seen := make(map[uintptr]bool)
	sum := 0
	prevFree := false

	for bp := a.heapListp; ; {
		size := blockSize(bp)
		if size == 0 {
			break // epilogue reached
		}
		if readWord(headerPtr(bp)) != readWord(footerPtr(bp)) {
			return fmt.Errorf("malloc: header/footer mismatch at block %p", bp)
		}
		alloc := blockAlloc(bp)
		if !alloc {
			if prevFree {
				return fmt.Errorf("malloc: adjacent free blocks meeting at %p", bp)
			}
			seen[uintptr(bp)] = true
		}
		prevFree = !alloc
		sum += size
		bp = nextBlock(bp)
	}

	const prelude = 2 * wordSize // alignment pad + epilogue header
	if want := a.region.Used() - prelude; sum != want {
		return fmt.Errorf("malloc: block sizes sum to %d bytes, want %d", sum, want)
	}

	listed := make(map[uintptr]bool)
	for id := 0; id < a.roots.len(); id++ {
		for bp := a.head(id); bp != nil; bp = a.getNext(bp) {
			key := uintptr(bp)
			if listed[key] {
				return fmt.Errorf("malloc: block %p present in more than one free list", bp)
			}
			listed[key] = true
			if !seen[key] {
				return fmt.Errorf("malloc: free-list block %p not found on heap walk", bp)
			}
			if got := a.policy.classOf(blockSize(bp)); got != id {
				return fmt.Errorf("malloc: block %p sized %d lives in class %d, belongs in %d",
					bp, blockSize(bp), id, got)
			}
			if next := a.getNext(bp); next != nil && a.getPrev(next) != bp {
				return fmt.Errorf("malloc: prev(next(%p)) != %p", bp, bp)
			}
			if prev := a.getPrev(bp); prev != nil && a.getNext(prev) != bp {
				return fmt.Errorf("malloc: next(prev(%p)) != %p", bp, bp)
			}
		}
	}
	if len(listed) != len(seen) {
		return fmt.Errorf("malloc: %d free blocks on heap walk but %d reachable from free lists",
			len(seen), len(listed))
	}
	return nil
}

// Fingerprint returns a digest of the heap's current block structure
// (the ordered sequence of (size, alloc-bit) pairs from prologue to
// epilogue). Two heaps with equal fingerprints have the same set of
// block boundaries and allocation states, though not necessarily the
// same free-list ordering within a class — exactly the granularity
// spec.md §8's first Law needs ("the same set of free-block byte
// ranges... modulo internal class ordering").
func (a *Allocator) Fingerprint() uint64 {
	if !a.initialized {
		return 0
	}
	buf := make([]byte, 0, 256)
	for bp := a.heapListp; ; {
		size := blockSize(bp)
		if size == 0 {
			break
		}
		tag := uint64(size) << 1
		if blockAlloc(bp) {
			tag |= 1
		}
		buf = appendUint64LE(buf, tag)
		bp = nextBlock(bp)
	}
	return xxhash3.Hash(buf)
}

func appendUint64LE(buf []byte, v uint64) []byte {
	return append(buf,
		byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}
