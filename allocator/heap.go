// Package allocator implements an explicit free-list heap over a single
// caller-supplied region.
//
// Every block carries an 8-byte header packing its payload size and an
// allocated flag. Free blocks keep prev/next links in their first 16 payload
// bytes, forming a doubly-linked list ordered by recency of freeing. Freeing
// merges a block with a free right neighbor; Resize grows in place by
// absorbing free right neighbors before falling back to relocation.
package allocator

import (
	"io"
	"log/slog"
	"math"
	"unsafe"
)

// NullPtr is the null address. No payload ever starts at it.
const NullPtr uint64 = math.MaxUint64

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Heap is an explicit free-list allocator over one region. Addresses handed
// out are byte offsets of payloads inside the region.
//
// A Heap is not safe for concurrent use.
type Heap struct {
	data []byte
	size uint64

	// tail is the most recently freed block; fit search starts here.
	tail uint64

	numBlocks uint64
	numUsed   uint64
	memUsage  uint64

	logger  *slog.Logger
	release func() error
}

// Init sets up h to manage region as a single free block. The region length
// is rounded down to a multiple of 8. It returns false when the region is not
// 8-byte aligned or cannot hold one minimum block.
func Init(h *Heap, region []byte) bool {
	return initHeap(h, region) == nil
}

func initHeap(h *Heap, region []byte) error {
	size := uint64(len(region)) &^ (headerWidth - 1)
	if size < freeNodeWidth {
		return ErrRegionTooSmall
	}
	if uintptr(unsafe.Pointer(&region[0]))%uintptr(headerWidth) != 0 {
		return ErrRegionMisaligned
	}

	h.data = region[:size]
	h.size = size
	if h.logger == nil {
		h.logger = discardLogger
	}

	h.header(firstBlock).word = packHeader(size-headerWidth, statusFree)
	node := h.freeNode(firstBlock)
	node.prev = NullPtr
	node.next = NullPtr

	h.tail = firstBlock
	h.numBlocks = 1
	h.numUsed = 0
	h.memUsage = 0
	return nil
}

// firstFit walks back from the tail for at most numBlocks - numUsed steps.
func (h *Heap) firstFit(size uint64) (uint64, bool) {
	p := h.tail
	for i := h.numBlocks - h.numUsed; i > 0 && p != NullPtr; i-- {
		if h.blockSize(p) >= size && !h.isAllocated(p) {
			return p, true
		}
		p = h.freeNode(p).prev
	}
	return NullPtr, false
}

// Allocate ...
func (h *Heap) Allocate(size uint64) (uint64, bool) {
	if h.data == nil || size == 0 || size > maxBlockSize {
		return NullPtr, false
	}

	size = roundUp(size)
	p, ok := h.firstFit(size)
	if !ok {
		h.logger.Debug("allocate: no free block large enough",
			"size", size, "free_blocks", h.numBlocks-h.numUsed)
		return NullPtr, false
	}

	slack := h.blockSize(p) - size
	if slack < freeNodeWidth {
		size += slack
		h.spliceOut(p)
	} else {
		h.replaceNode(p, p+size+headerWidth, slack-headerWidth)
		h.numBlocks++
	}

	h.header(p).word = packHeader(size, statusAllocated)
	h.numUsed++
	h.memUsage += size
	return p, true
}

// Deallocate returns the block at p to the free list, merging it with its
// right neighbor when that neighbor is free. Only one neighbor is merged.
// NullPtr, and addresses that do not name an allocated block, are ignored,
// as is any call on a heap that was never initialized.
func (h *Heap) Deallocate(p uint64) {
	if p == NullPtr || h.data == nil {
		return
	}
	if !h.ownsAllocated(p) {
		h.logger.Debug("deallocate: ignoring address", "addr", p)
		return
	}

	h.memUsage -= h.blockSize(p)

	next := h.nextBlock(p)
	if h.blockExists(next) && !h.isAllocated(next) {
		h.coalesce(p, next)
	} else {
		h.appendFree(p)
	}
	h.numUsed--
}

// coalesce merges the free block next into p. The merged block starts at p
// and takes over the list position of next.
func (h *Heap) coalesce(p uint64, next uint64) {
	size := h.blockSize(p) + h.blockSize(next) + headerWidth
	h.replaceNode(next, p, size)
	h.numBlocks--
}

// Resize changes the size of the block at p, in place when possible.
//
// A NullPtr p behaves like Allocate; a zero size behaves like Deallocate and
// returns NullPtr with ok set. On failure the old block is left untouched.
func (h *Heap) Resize(p uint64, size uint64) (uint64, bool) {
	if p == NullPtr {
		return h.Allocate(size)
	}
	if h.data == nil {
		return NullPtr, false
	}
	if !h.ownsAllocated(p) {
		h.logger.Debug("resize: ignoring address", "addr", p)
		return NullPtr, false
	}
	if size == 0 {
		h.Deallocate(p)
		return NullPtr, true
	}
	if size > maxBlockSize {
		return NullPtr, false
	}

	newSize := roundUp(size)
	curSize := h.blockSize(p)

	if curSize >= newSize {
		h.shrink(p, curSize, newSize)
		return p, true
	}

	need := newSize - curSize
	neighbor := p + curSize + headerWidth
	if count := h.rightSearch(neighbor, need); count > 0 {
		newSize = h.absorbNeighbors(neighbor, newSize, count, need)
		h.header(p).setSize(newSize)
		h.memUsage += newSize - curSize
		return p, true
	}

	newAddr, ok := h.Allocate(size)
	if !ok {
		return NullPtr, false
	}
	h.logger.Debug("resize: relocating block", "from", p, "to", newAddr, "size", newSize)

	copy(h.data[newAddr:newAddr+curSize], h.data[p:p+curSize])
	h.Deallocate(p)
	return newAddr, true
}

func (h *Heap) shrink(p uint64, curSize uint64, newSize uint64) {
	diff := curSize - newSize
	if diff < freeNodeWidth {
		return
	}

	rest := p + newSize + headerWidth
	h.header(p).setSize(newSize)
	h.header(rest).word = packHeader(diff-headerWidth, statusFree)
	h.appendFree(rest)

	h.numBlocks++
	h.memUsage -= diff
}

// rightSearch returns how many free blocks starting at p are needed to cover
// need bytes, or 0 when an allocated block or the end of the region comes
// first.
func (h *Heap) rightSearch(p uint64, need uint64) int {
	count := 0
	total := uint64(0)
	for total < need {
		if !h.blockExists(p) || h.isAllocated(p) {
			return 0
		}
		total += h.blockSize(p) + headerWidth
		p = h.nextBlock(p)
		count++
	}
	return count
}

// absorbNeighbors unlinks count free blocks starting at p and returns the
// final payload size. If the last block has enough left over it stays in the
// free list, shifted right, instead of being absorbed whole.
func (h *Heap) absorbNeighbors(p uint64, size uint64, count int, need uint64) uint64 {
	for i := 1; i <= count; i++ {
		nbSize := h.blockSize(p)
		next := h.nextBlock(p)

		if i == count {
			remaining := nbSize + headerWidth - need
			if remaining >= freeNodeWidth {
				h.replaceNode(p, p+need, nbSize-need)
				return size
			}
			size += remaining
		} else {
			need -= nbSize + headerWidth
		}

		h.spliceOut(p)
		h.numBlocks--
		p = next
	}
	return size
}

// Payload returns the payload bytes of the allocated block at p, or nil.
func (h *Heap) Payload(p uint64) []byte {
	if !h.ownsAllocated(p) {
		return nil
	}
	size := h.blockSize(p)
	return h.data[p : p+size : p+size]
}

// BlockSize returns the payload size of the allocated block at p.
func (h *Heap) BlockSize(p uint64) (uint64, bool) {
	if !h.ownsAllocated(p) {
		return 0, false
	}
	return h.blockSize(p), true
}

// NumBlocks ...
func (h *Heap) NumBlocks() uint64 {
	return h.numBlocks
}

// NumUsed ...
func (h *Heap) NumUsed() uint64 {
	return h.numUsed
}

// GetMemUsage returns the payload bytes held by allocated blocks, padding
// included.
func (h *Heap) GetMemUsage() uint64 {
	return h.memUsage
}

// RegionSize ...
func (h *Heap) RegionSize() uint64 {
	return h.size
}
