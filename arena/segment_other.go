//go:build !linux && !darwin

package arena

import "fmt"

// MapSegment acquires a zeroed heap-backed region on platforms without
// the anonymous-mapping path. Go heap allocations of page size or more
// are page-aligned in practice, which is all callers rely on.
func MapSegment(size int) (*Segment, error) {
	if size <= 0 {
		return nil, fmt.Errorf("arena: invalid segment size %d", size)
	}
	return &Segment{data: make([]byte, size)}, nil
}

// Close releases the region.
func (s *Segment) Close() error {
	s.data = nil
	return nil
}
