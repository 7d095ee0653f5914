package malloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceSplitsWhenRemainderIsLargeEnough(t *testing.T) {
	a := NewAllocator(WithPolicy(SingleListPolicy()))
	require.True(t, a.ensureInit())

	bp := makeFreeBlock(t, a, 64)
	a.insertHead(bp)

	a.place(bp, 32) // remainder = 32, >= minBlockSize(24) -> split

	assert.Equal(t, 32, blockSize(bp))
	assert.True(t, blockAlloc(bp))

	rem := nextBlock(bp)
	assert.Equal(t, 32, blockSize(rem))
	assert.False(t, blockAlloc(rem))
	assert.Equal(t, rem, a.head(0))
}

func TestPlaceConsumesWholeBlockWhenRemainderTooSmall(t *testing.T) {
	a := NewAllocator(WithPolicy(SingleListPolicy()))
	require.True(t, a.ensureInit())
	priorHead := a.head(0) // the free block seeded by ensureInit

	bp := makeFreeBlock(t, a, 40) // 40 - 32 = 8 < minBlockSize
	a.insertHead(bp)

	a.place(bp, 32)

	assert.Equal(t, 40, blockSize(bp))
	assert.True(t, blockAlloc(bp))
	assert.Equal(t, priorHead, a.head(0), "consuming bp whole must leave the rest of the list untouched")
}

func TestFindFitFirstFit(t *testing.T) {
	a := NewAllocator(WithPolicy(SingleListPolicy()))
	require.True(t, a.ensureInit())

	small := makeFreeBlock(t, a, 32)
	big := makeFreeBlock(t, a, 128)
	a.insertHead(small) // list: small -> (head)
	a.insertHead(big)   // list: big -> small

	got := a.findFit(24)
	assert.Equal(t, big, got, "first-fit returns the head of the list, not the best match")
}

func TestFindFitBestFitWithinStartingClass(t *testing.T) {
	p := DefaultPolicy()
	p.Strategy = BestFit
	a := NewAllocator(WithPolicy(p))
	require.True(t, a.ensureInit())

	// all three land in class 0 (<=32)
	b1 := makeFreeBlock(t, a, 32)
	b2 := makeFreeBlock(t, a, 24)
	b3 := makeFreeBlock(t, a, 32)
	a.insertHead(b1)
	a.insertHead(b2)
	a.insertHead(b3)

	got := a.findFit(24)
	assert.Equal(t, b2, got, "best-fit must pick the smallest sufficient block in the starting class")
}

func TestFindFitReturnsNilWhenNothingFits(t *testing.T) {
	a := NewAllocator(WithPolicy(SingleListPolicy()))
	require.True(t, a.ensureInit())
	assert.Nil(t, a.findFit(1<<20))
}
