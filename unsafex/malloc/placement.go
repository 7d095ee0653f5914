package malloc

import "unsafe"

// findFit returns a free block of at least asize bytes, or nil if none
// exists anywhere in the index. It starts at classOf(asize) and walks
// classes upward; within the starting class it applies the configured
// FitStrategy, and in every class above it, it always takes the first
// fit (spec.md §4.5: best-fit "continue scanning until the end of the
// starting class (not across classes)" — scanning all higher classes
// for a best match would be linear in heap size).
func (a *Allocator) findFit(asize int) unsafe.Pointer {
	start := a.policy.classOf(asize)

	if a.policy.Strategy == BestFit {
		if bp := a.bestFitInClass(start, asize); bp != nil {
			return bp
		}
	} else if bp := a.firstFitInClass(start, asize); bp != nil {
		return bp
	}

	for id := start + 1; id < a.roots.len(); id++ {
		if bp := a.firstFitInClass(id, asize); bp != nil {
			return bp
		}
	}
	return nil
}

func (a *Allocator) firstFitInClass(id int, asize int) unsafe.Pointer {
	for bp := a.head(id); bp != nil; bp = a.getNext(bp) {
		if blockSize(bp) >= asize {
			return bp
		}
	}
	return nil
}

func (a *Allocator) bestFitInClass(id int, asize int) unsafe.Pointer {
	var best unsafe.Pointer
	bestSize := 0
	for bp := a.head(id); bp != nil; bp = a.getNext(bp) {
		sz := blockSize(bp)
		if sz >= asize && (best == nil || sz < bestSize) {
			best, bestSize = bp, sz
		}
	}
	return best
}

func (roots *classRoots) len() int {
	return len(roots.heads)
}

// place installs an allocation of asize bytes into bp, a free block
// currently in its class list with size(bp) >= asize. If the remainder
// after carving out asize is large enough to be its own free block, it
// is split off and reinserted; otherwise the whole block is consumed,
// tolerating up to minBlockSize-1 bytes of internal waste.
//
// Unlinking happens before the header is rewritten (spec.md §9 notes
// the reference C implementation does it in the opposite order and
// calls that "harmless... but" recommends unlinking first for clarity).
func (a *Allocator) place(bp unsafe.Pointer, asize int) {
	csize := blockSize(bp)
	a.unlink(bp)

	if csize-asize >= minBlockSize {
		setTags(bp, asize, true)
		rem := nextBlock(bp)
		setTags(rem, csize-asize, false)
		a.insertHead(rem)
		return
	}

	setTags(bp, csize, true)
}
