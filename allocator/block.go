package allocator

import "unsafe"

// firstBlock is the payload address of the block at the start of the region.
const firstBlock = headerWidth

// Block describes one block of the heap, as seen by Walk.
type Block struct {
	Addr      uint64
	Size      uint64
	Allocated bool
}

func (h *Heap) toRealAddr(addr uint64) unsafe.Pointer {
	return unsafe.Pointer(&h.data[addr])
}

func (h *Heap) header(p uint64) *blockHeader {
	return (*blockHeader)(h.toRealAddr(p - headerWidth))
}

func (h *Heap) blockSize(p uint64) uint64 {
	return headerSize(h.header(p).word)
}

func (h *Heap) isAllocated(p uint64) bool {
	return headerAllocated(h.header(p).word)
}

// nextBlock does not check bounds, see blockExists.
func (h *Heap) nextBlock(p uint64) uint64 {
	return p + h.blockSize(p) + headerWidth
}

// blockExists reports whether a header for payload p lies inside the region.
// Blocks tile the region, so the address after the last block is exactly
// one header past the end.
func (h *Heap) blockExists(p uint64) bool {
	return p >= headerWidth && p-headerWidth < h.size
}

// ownsBlock reports whether p could be the payload address of some block:
// aligned, inside the region, and with room for the minimum payload.
func (h *Heap) ownsBlock(p uint64) bool {
	if p == NullPtr || p%headerWidth != 0 || p < firstBlock {
		return false
	}
	return p <= h.size && h.size-p >= minBlockSize
}

func (h *Heap) ownsAllocated(p uint64) bool {
	if !h.ownsBlock(p) || !h.isAllocated(p) {
		return false
	}
	return h.blockSize(p) <= h.size-p
}

// Walk calls fn for every block in address order until fn returns false.
func (h *Heap) Walk(fn func(b Block) bool) {
	p := firstBlock
	for i := uint64(0); i < h.numBlocks; i++ {
		if !h.blockExists(p) {
			return
		}
		word := h.header(p).word
		b := Block{
			Addr:      p,
			Size:      headerSize(word),
			Allocated: headerAllocated(word),
		}
		if !fn(b) {
			return
		}
		p = h.nextBlock(p)
	}
}

// Blocks returns every block in address order.
func (h *Heap) Blocks() []Block {
	var result []Block
	h.Walk(func(b Block) bool {
		result = append(result, b)
		return true
	})
	return result
}
