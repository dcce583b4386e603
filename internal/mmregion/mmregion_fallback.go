//go:build !(linux || darwin || freebsd || netbsd || openbsd)

// Package mmregion provides page-aligned backing memory for heap regions.
package mmregion

import (
	"fmt"
	"unsafe"
)

// Map allocates the region on the Go heap when anonymous mappings are not
// available.
func Map(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("mmregion: invalid size %d", size)
	}
	words := make([]uint64, (size+7)>>3)
	data := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), size)
	return data, func() error { return nil }, nil
}
