// Package arena provides the managed memory region and zero-copy block
// views over it. A Segment is the raw contiguous region handed to an
// allocator exactly once; Block interprets the boundary tags embedded in
// the region bytes and navigates between neighbors by pure arithmetic.
package arena

// Segment is a single contiguous memory region. On unix platforms it is
// backed by an anonymous private mapping so the base is page-aligned; the
// portable fallback uses a heap-allocated slice.
type Segment struct {
	data   []byte
	mapped bool
}

// Bytes returns the full region. The slice aliases the mapping; it is
// invalid after Close.
func (s *Segment) Bytes() []byte {
	return s.data
}

// Size returns the region size in bytes.
func (s *Segment) Size() int {
	return len(s.data)
}
