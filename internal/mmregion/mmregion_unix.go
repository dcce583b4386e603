//go:build linux || darwin || freebsd || netbsd || openbsd

// Package mmregion provides page-aligned backing memory for heap regions.
package mmregion

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Map returns an anonymous, private, read-write mapping of size bytes and a
// cleanup func that unmaps it.
func Map(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("mmregion: invalid size %d", size)
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() error {
		if data == nil {
			return nil
		}
		err := unix.Munmap(data)
		data = nil
		if errors.Is(err, unix.EINVAL) {
			// Treat double-unmap as no-op for callers.
			return nil
		}
		return err
	}
	return data, cleanup, nil
}
