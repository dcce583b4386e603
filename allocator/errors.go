package allocator

import "errors"

var (
	// ErrRegionTooSmall indicates the region cannot hold a single minimum block.
	ErrRegionTooSmall = errors.New("allocator: region too small")

	// ErrRegionMisaligned indicates the region does not start on an 8-byte boundary.
	ErrRegionMisaligned = errors.New("allocator: region not 8-byte aligned")
)
