package allocator

import "fmt"

// ValidationError names the first heap invariant found broken.
type ValidationError struct {
	Type    string
	Message string
	Offset  int64
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func validationError(typ string, offset uint64, format string, args ...interface{}) *ValidationError {
	off := int64(-1)
	if offset != NullPtr {
		off = int64(offset)
	}
	return &ValidationError{
		Type:    typ,
		Message: fmt.Sprintf(format, args...),
		Offset:  off,
	}
}

// Validate reports whether every heap invariant holds.
func (h *Heap) Validate() bool {
	return h.Check() == nil
}

// Check walks the blocks by address and the free list from the tail, and
// returns a *ValidationError for the first inconsistency. It does not modify
// the heap.
func (h *Heap) Check() error {
	if h.data == nil {
		return validationError("Region", NullPtr, "heap is not initialized")
	}
	if h.numUsed > h.numBlocks {
		return validationError("Counters", NullPtr,
			"%d allocated blocks out of %d", h.numUsed, h.numBlocks)
	}

	var usedBytes, freeBytes, freeCount uint64
	p := firstBlock
	for i := uint64(0); i < h.numBlocks; i++ {
		if !h.blockExists(p) {
			return validationError("BlockWalk", p,
				"block %d of %d lies outside the region", i+1, h.numBlocks)
		}
		if p%headerWidth != 0 {
			return validationError("BlockWalk", p, "block is not 8-byte aligned")
		}
		word := h.header(p).word
		size := headerSize(word)
		if size > h.size-p {
			return validationError("BlockWalk", p,
				"block size %d overruns the region", size)
		}

		width := size + headerWidth
		if headerAllocated(word) {
			usedBytes += width
		} else {
			freeBytes += width
			freeCount++
		}
		p += width
	}

	if usedBytes+freeBytes != h.size {
		return validationError("Conservation", NullPtr,
			"blocks cover %d bytes, region has %d", usedBytes+freeBytes, h.size)
	}

	numFree := h.numBlocks - h.numUsed
	if freeCount != numFree {
		return validationError("FreeCount", NullPtr,
			"found %d free blocks, counters say %d", freeCount, numFree)
	}
	if usedBytes != h.memUsage+headerWidth*h.numUsed {
		return validationError("MemUsage", NullPtr,
			"allocated blocks cover %d bytes, expected %d",
			usedBytes, h.memUsage+headerWidth*h.numUsed)
	}

	return h.checkFreeList(numFree)
}

func (h *Heap) checkFreeList(numFree uint64) error {
	if h.tail != NullPtr {
		if !h.ownsBlock(h.tail) {
			return validationError("FreeListLink", h.tail, "tail lies outside the region")
		}
		if next := h.freeNode(h.tail).next; next != NullPtr {
			return validationError("FreeListTail", h.tail, "tail has next link 0x%X", next)
		}
	}

	remaining := numFree
	for p := h.tail; p != NullPtr; {
		if remaining == 0 {
			return validationError("FreeListLength", p,
				"free list is longer than %d blocks", numFree)
		}
		if h.isAllocated(p) {
			return validationError("FreeListStatus", p, "allocated block on the free list")
		}

		prev := h.freeNode(p).prev
		if prev != NullPtr {
			if !h.ownsBlock(prev) {
				return validationError("FreeListLink", p, "prev link 0x%X lies outside the region", prev)
			}
			if back := h.freeNode(prev).next; back != p {
				return validationError("FreeListSymmetry", p,
					"prev block 0x%X links forward to 0x%X", prev, back)
			}
		}

		remaining--
		p = prev
	}

	if remaining != 0 {
		return validationError("FreeListLength", NullPtr,
			"free list is missing %d blocks", remaining)
	}
	return nil
}
