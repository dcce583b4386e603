package allocator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestHeap(t *testing.T, size int) *Heap {
	t.Helper()
	var h Heap
	require.True(t, Init(&h, NewRegion(size)))
	return &h
}

func mustAllocate(t *testing.T, h *Heap, size uint64) uint64 {
	t.Helper()
	p, ok := h.Allocate(size)
	require.True(t, ok, "allocate %d", size)
	return p
}

func fillPayload(h *Heap, p uint64, n uint64, value byte) {
	payload := h.Payload(p)
	for i := uint64(0); i < n; i++ {
		payload[i] = value
	}
}

func payloadIs(h *Heap, p uint64, n uint64, value byte) bool {
	payload := h.Payload(p)
	if uint64(len(payload)) < n {
		return false
	}
	for i := uint64(0); i < n; i++ {
		if payload[i] != value {
			return false
		}
	}
	return true
}
