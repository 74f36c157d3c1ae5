package format

// Header is the tag word that prefixes every block in a managed region.
//
// Layout (least significant bits first):
//
//	bit 0   allocated: 1 = in use, 0 = free
//	bit 1   left neighbor allocated
//	bit 2   red/black color (meaningful only while free)
//	rest    payload size in bytes, always a multiple of Alignment
//
// Free blocks copy the header word into a trailing footer so a scan can
// step left by pure arithmetic. Allocated blocks never write a footer;
// that word belongs to the caller's payload.
type Header uint64

// Encode builds a header word from its four fields. The size must be a
// multiple of Alignment; stray low bits would be read back as flags.
func Encode(size uint64, allocated, leftAllocated, red bool) Header {
	h := Header(size & sizeMask)
	if allocated {
		h |= allocatedBit
	}
	if leftAllocated {
		h |= leftAllocBit
	}
	if red {
		h |= redBit
	}
	return h
}

// Decode splits a header word into its four fields. It never fails; the
// result is only meaningful for words written by Encode.
func Decode(h Header) (size uint64, allocated, leftAllocated, red bool) {
	return h.Size(), h.Allocated(), h.LeftAllocated(), h.Red()
}

// Size returns the payload size in bytes, excluding the tag word.
func (h Header) Size() uint64 {
	return uint64(h) & sizeMask
}

// Allocated reports whether the block is in use.
func (h Header) Allocated() bool {
	return h&allocatedBit != 0
}

// LeftAllocated reports whether the block immediately to the left is in
// use. When it is not, the word preceding this header is the left
// neighbor's footer.
func (h Header) LeftAllocated() bool {
	return h&leftAllocBit != 0
}

// Red reports the tree color bit.
func (h Header) Red() bool {
	return h&redBit != 0
}

// Painted returns the header with only the color bit changed.
func (h Header) Painted(red bool) Header {
	if red {
		return h | redBit
	}
	return h &^ redBit
}

// WithAllocated returns the header with only the allocated bit changed.
func (h Header) WithAllocated(allocated bool) Header {
	if allocated {
		return h | allocatedBit
	}
	return h &^ allocatedBit
}

// WithLeftAllocated returns the header with only the left-neighbor bit
// changed.
func (h Header) WithLeftAllocated(leftAllocated bool) Header {
	if leftAllocated {
		return h | leftAllocBit
	}
	return h &^ leftAllocBit
}
