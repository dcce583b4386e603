package allocator

import (
	"bytes"
	"log/slog"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegion(t *testing.T) {
	table := []struct {
		name string
		size int
	}{
		{name: "small", size: 24},
		{name: "odd", size: 1031},
		{name: "large", size: 1 << 20},
	}

	for _, e := range table {
		t.Run(e.name, func(t *testing.T) {
			region := NewRegion(e.size)
			assert.Equal(t, e.size, len(region))
			assert.Equal(t, uintptr(0), uintptr(unsafe.Pointer(&region[0]))%8)
		})
	}

	assert.Nil(t, NewRegion(0))
	assert.Nil(t, NewRegion(-1))
}

func TestNew(t *testing.T) {
	table := []struct {
		name    string
		useMmap bool
	}{
		{name: "go-heap", useMmap: false},
		{name: "mmap", useMmap: true},
	}

	for _, e := range table {
		t.Run(e.name, func(t *testing.T) {
			h, err := New(Config{RegionSize: 1 << 16, UseMmap: e.useMmap})
			require.NoError(t, err)
			defer func() {
				assert.NoError(t, h.Close())
			}()

			assert.Equal(t, uint64(1<<16), h.RegionSize())
			assert.True(t, h.Validate())

			a := mustAllocate(t, h, 100)
			b := mustAllocate(t, h, 200)
			fillPayload(h, a, 100, 0xaa)

			a2, ok := h.Resize(a, 300)
			assert.True(t, ok)
			assert.True(t, payloadIs(h, a2, 100, 0xaa))

			h.Deallocate(b)
			h.Deallocate(a2)
			assert.Equal(t, uint64(0), h.NumUsed())
			assert.True(t, h.Validate())
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = New(Config{RegionSize: 0})
	})

	h, err := New(Config{RegionSize: 16})
	assert.Nil(t, h)
	assert.Equal(t, ErrRegionTooSmall, err)
}

func TestNew_Logger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h, err := New(Config{RegionSize: 256, Logger: logger})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "heap initialized")

	_, ok := h.Allocate(1024)
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "no free block large enough")

	h.Deallocate(12)
	assert.Contains(t, buf.String(), "deallocate: ignoring address")
}

func TestHeap_Close(t *testing.T) {
	h, err := New(Config{RegionSize: 1024})
	require.NoError(t, err)

	assert.NoError(t, h.Close())
	assert.NoError(t, h.Close())
	assert.False(t, h.Validate())
}

func TestHeap_Payload(t *testing.T) {
	h := newTestHeap(t, 1024)
	p := mustAllocate(t, h, 100)

	payload := h.Payload(p)
	assert.Equal(t, 104, len(payload))
	assert.Equal(t, 104, cap(payload))

	size, ok := h.BlockSize(p)
	assert.True(t, ok)
	assert.Equal(t, uint64(104), size)

	assert.Nil(t, h.Payload(120))
	_, ok = h.BlockSize(120)
	assert.False(t, ok)
}
