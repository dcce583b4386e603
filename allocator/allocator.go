package allocator

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/QuangTung97/heapkit/internal/mmregion"
)

// Config ...
type Config struct {
	// RegionSize is the size in bytes of the managed region.
	RegionSize int

	// UseMmap backs the region with an anonymous memory mapping instead of
	// the Go heap.
	UseMmap bool

	Logger *slog.Logger
}

// NewRegion returns a zeroed, 8-byte aligned region of size bytes backed by
// the Go heap.
func NewRegion(size int) []byte {
	if size <= 0 {
		return nil
	}
	words := make([]uint64, (size+7)>>3)
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), size)
}

func validateConfig(conf Config) {
	if conf.RegionSize <= 0 {
		panic("RegionSize must > 0")
	}
}

// New creates the backing region described by conf and initializes a heap
// over it. Call Close to release an mmap backing.
func New(conf Config) (*Heap, error) {
	validateConfig(conf)

	var region []byte
	release := func() error { return nil }
	if conf.UseMmap {
		data, cleanup, err := mmregion.Map(conf.RegionSize)
		if err != nil {
			return nil, fmt.Errorf("allocator: map region: %w", err)
		}
		region, release = data, cleanup
	} else {
		region = NewRegion(conf.RegionSize)
	}

	h := &Heap{
		logger:  conf.Logger,
		release: release,
	}
	if err := initHeap(h, region); err != nil {
		_ = release()
		return nil, err
	}

	h.logger.Debug("heap initialized",
		"region_size", h.size, "mmap", conf.UseMmap)
	return h, nil
}

// Close releases the backing region. The heap must not be used afterwards.
func (h *Heap) Close() error {
	if h.release == nil {
		return nil
	}
	err := h.release()
	h.release = nil
	h.data = nil
	return err
}
