//go:build linux || darwin

package arena

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MapSegment acquires a page-aligned anonymous mapping of size bytes.
// The kernel zero-fills the pages.
func MapSegment(size int) (*Segment, error) {
	if size <= 0 {
		return nil, fmt.Errorf("arena: invalid segment size %d", size)
	}
	data, err := unix.Mmap(
		-1,
		0,
		size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON,
	)
	if err != nil {
		return nil, fmt.Errorf("arena: mmap failed: %w", err)
	}
	return &Segment{data: data, mapped: true}, nil
}

// Close releases the mapping. The region and every reference into it are
// invalid afterwards.
func (s *Segment) Close() error {
	if s.data != nil && s.mapped {
		if err := unix.Munmap(s.data); err != nil {
			return fmt.Errorf("arena: munmap failed: %w", err)
		}
	}
	s.data = nil
	return nil
}
