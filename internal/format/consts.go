package format

// Layout constants for the managed region.
// Every block inside the region starts with one tag word. Free blocks
// additionally carry four embedded link words and a trailing footer word.

const (
	// WordSize is the width in bytes of one tag word. Headers, footers,
	// and all embedded node links are one word each.
	WordSize = 8

	// Alignment is the required alignment for every payload reference
	// handed to a caller. Payload sizes are always a multiple of
	// Alignment, which frees the low three header bits for flags.
	Alignment = 8

	// HeaderSize is the overhead prefixed to every block, free or
	// allocated. Stored sizes exclude it.
	HeaderSize = WordSize

	// NodeWidth is the bookkeeping footprint of a free block: the tag
	// word plus parent, two child links, and the chain head reference.
	// Allocation requests are padded by this amount so that any block,
	// once freed, can hold a full tree node.
	NodeWidth = 5 * WordSize

	// MinBlockSize is the smallest viable block footprint: NodeWidth
	// plus the trailing footer word.
	MinBlockSize = NodeWidth + WordSize

	// MinRegionSize is the smallest region a manager accepts: one
	// minimum block plus the trailing sentinel node.
	MinRegionSize = MinBlockSize + NodeWidth

	// MaxRequest is the largest single allocation the manager accepts.
	MaxRequest = 1 << 30
)

const (
	allocatedBit = 0x1
	leftAllocBit = 0x2
	redBit       = 0x4

	sizeMask = ^uint64(Alignment - 1)
)
