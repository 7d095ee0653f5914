package malloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeFreeBlock extends the allocator's region by size bytes and tags
// them as one free block, without touching any free list.
func makeFreeBlock(t *testing.T, a *Allocator, size int) unsafe.Pointer {
	t.Helper()
	base, err := a.region.Extend(size)
	require.NoError(t, err)
	setTags(base, size, false)
	return base
}

func TestInsertHeadAndUnlinkSingleClass(t *testing.T) {
	a := NewAllocator(WithPolicy(SingleListPolicy()))
	require.True(t, a.ensureInit())
	seeded := a.head(0) // the free block seeded by ensureInit
	require.NotNil(t, seeded)

	b1 := makeFreeBlock(t, a, 32)
	b2 := makeFreeBlock(t, a, 40)

	a.insertHead(b1)
	assert.Equal(t, b1, a.head(0))
	assert.Equal(t, seeded, a.getNext(b1))
	assert.Nil(t, a.getPrev(b1))

	a.insertHead(b2)
	assert.Equal(t, b2, a.head(0))
	assert.Equal(t, b1, a.getNext(b2))
	assert.Equal(t, b2, a.getPrev(b1))

	a.unlink(b2)
	assert.Equal(t, b1, a.head(0))
	assert.Nil(t, a.getPrev(b1))

	a.unlink(b1)
	assert.Equal(t, seeded, a.head(0))
}

func TestUnlinkMiddleOfList(t *testing.T) {
	a := NewAllocator(WithPolicy(SingleListPolicy()))
	require.True(t, a.ensureInit())

	b1 := makeFreeBlock(t, a, 32)
	b2 := makeFreeBlock(t, a, 32)
	b3 := makeFreeBlock(t, a, 32)

	a.insertHead(b1)
	a.insertHead(b2)
	a.insertHead(b3) // list: b3 -> b2 -> b1

	a.unlink(b2)

	assert.Equal(t, b3, a.head(0))
	assert.Equal(t, b1, a.getNext(b3))
	assert.Equal(t, b3, a.getPrev(b1))
}

func TestInsertHeadRecomputesClassFromCurrentSize(t *testing.T) {
	a := NewAllocator() // segregated, 8 classes
	require.True(t, a.ensureInit())

	b := makeFreeBlock(t, a, 40) // falls in class 1 (<=64)
	a.insertHead(b)
	assert.Equal(t, b, a.head(1))

	// simulate growth by coalescing: resize the tag to a much larger
	// size, then reinsert -- the new class must be recomputed, not
	// cached from the first insertHead call.
	a.unlink(b)
	setTags(b, 4096, false)
	a.insertHead(b)
	assert.Equal(t, b, a.head(7))
	assert.Nil(t, a.head(1))
}
