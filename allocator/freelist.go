package allocator

// freeListHead lives in the first 16 payload bytes of every free block.
type freeListHead struct {
	prev uint64
	next uint64
}

func (h *Heap) freeNode(p uint64) *freeListHead {
	return (*freeListHead)(h.toRealAddr(p))
}

// appendFree marks p free and makes it the new tail.
func (h *Heap) appendFree(p uint64) {
	h.header(p).setStatus(statusFree)

	if h.tail != NullPtr {
		h.freeNode(h.tail).next = p
	}

	node := h.freeNode(p)
	node.prev = h.tail
	node.next = NullPtr
	h.tail = p
}

// spliceOut unlinks p, retreating the tail if p was the tail.
func (h *Heap) spliceOut(p uint64) {
	node := h.freeNode(p)
	if node.prev != NullPtr {
		h.freeNode(node.prev).next = node.next
	}
	if node.next != NullPtr {
		h.freeNode(node.next).prev = node.prev
	}
	if h.tail == p {
		h.tail = node.prev
	}
}

// replaceNode writes a free block of the given size at p and hands it the
// list position of old. The links of old are read before p is written, so the
// two may overlap.
func (h *Heap) replaceNode(old uint64, p uint64, size uint64) {
	oldNode := h.freeNode(old)
	prev, next := oldNode.prev, oldNode.next

	h.header(p).word = packHeader(size, statusFree)
	node := h.freeNode(p)
	node.prev = prev
	node.next = next

	if prev != NullPtr {
		h.freeNode(prev).next = p
	}
	if next != NullPtr {
		h.freeNode(next).prev = p
	}
	if h.tail == old {
		h.tail = p
	}
}

// freeList returns the free blocks from the tail backward.
func (h *Heap) freeList() []uint64 {
	var result []uint64
	limit := h.numBlocks - h.numUsed
	for p := h.tail; p != NullPtr && uint64(len(result)) < limit; p = h.freeNode(p).prev {
		result = append(result, p)
	}
	return result
}
