package allocator

const (
	headerWidth  uint64 = 8
	minBlockSize uint64 = 16

	// freeNodeWidth is the smallest extent that can stand alone as a free
	// block: one header plus the prev/next links.
	freeNodeWidth = headerWidth + minBlockSize

	// maxBlockSize keeps size<<2 inside one word.
	maxBlockSize uint64 = 1<<62 - 1

	statusFree      uint64 = 0
	statusAllocated uint64 = 1
	statusMask      uint64 = 0x3
)

// blockHeader is the packed word in front of every payload:
// bits 2..63 hold the payload size, bit 0 the allocated flag, bit 1 is unused.
type blockHeader struct {
	word uint64
}

func packHeader(size uint64, status uint64) uint64 {
	return size<<2 | status&statusMask
}

func headerSize(word uint64) uint64 {
	return word >> 2
}

func headerAllocated(word uint64) bool {
	return word&statusAllocated != 0
}

func (h *blockHeader) setSize(size uint64) {
	h.word = h.word&statusMask | size<<2
}

func (h *blockHeader) setStatus(status uint64) {
	h.word = h.word&^statusMask | status&statusMask
}

// roundUp rounds a request to a multiple of 8 with a floor of minBlockSize.
func roundUp(size uint64) uint64 {
	rounded := (size + headerWidth - 1) &^ (headerWidth - 1)
	if rounded < minBlockSize {
		return minBlockSize
	}
	return rounded
}
