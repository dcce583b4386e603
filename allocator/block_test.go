package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeap_Navigate(t *testing.T) {
	h := newTestHeap(t, 1024)
	a := mustAllocate(t, h, 100)
	b := mustAllocate(t, h, 200)

	assert.Equal(t, uint64(8), a)
	assert.Equal(t, uint64(120), b)

	assert.Equal(t, h.toRealAddr(0), h.toRealAddr(a-headerWidth))
	assert.Equal(t, b, h.nextBlock(a))
	assert.Equal(t, uint64(328), h.nextBlock(b))
	assert.Equal(t, uint64(1024+headerWidth), h.nextBlock(328))

	assert.True(t, h.blockExists(328))
	assert.False(t, h.blockExists(h.nextBlock(328)))
	assert.False(t, h.blockExists(0))
}

func TestHeap_Blocks(t *testing.T) {
	h := newTestHeap(t, 1024)
	assert.Equal(t, []Block{
		{Addr: 8, Size: 1016, Allocated: false},
	}, h.Blocks())

	mustAllocate(t, h, 100)
	assert.Equal(t, []Block{
		{Addr: 8, Size: 104, Allocated: true},
		{Addr: 120, Size: 904, Allocated: false},
	}, h.Blocks())

	mustAllocate(t, h, 200)
	assert.Equal(t, []Block{
		{Addr: 8, Size: 104, Allocated: true},
		{Addr: 120, Size: 200, Allocated: true},
		{Addr: 328, Size: 696, Allocated: false},
	}, h.Blocks())
}

func TestHeap_Walk_Stop(t *testing.T) {
	h := newTestHeap(t, 1024)
	mustAllocate(t, h, 32)
	mustAllocate(t, h, 32)

	var visited []uint64
	h.Walk(func(b Block) bool {
		visited = append(visited, b.Addr)
		return len(visited) < 2
	})
	assert.Equal(t, []uint64{8, 48}, visited)
}

func TestHeap_OwnsBlock(t *testing.T) {
	h := newTestHeap(t, 1024)
	p := mustAllocate(t, h, 32)

	assert.True(t, h.ownsBlock(p))
	assert.True(t, h.ownsAllocated(p))

	assert.False(t, h.ownsBlock(NullPtr))
	assert.False(t, h.ownsBlock(0))
	assert.False(t, h.ownsBlock(12))
	assert.False(t, h.ownsBlock(1024))
	assert.False(t, h.ownsBlock(1016))

	assert.True(t, h.ownsBlock(48))
	assert.False(t, h.ownsAllocated(48))
}
