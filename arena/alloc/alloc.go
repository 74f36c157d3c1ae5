package alloc

import "io"

// Ref is a payload reference inside a managed region: the byte offset of
// the first usable payload byte, 8-byte aligned. The block's tag word
// sits one word to the left.
type Ref = uint64

// NullRef is the null reference.
const NullRef Ref = ^uint64(0)

// nullOff marks an embedded link field that references nothing. It is
// distinct from the in-region sentinel block, which is a real address.
const nullOff = ^uint64(0)

// Style selects the free-node dump format.
type Style int

const (
	// Plain prints block sizes only.
	Plain Style = iota
	// Verbose adds offsets, black heights, and duplicate counts.
	Verbose
)

// Allocator is the contract shared by the tree-backed and
// segregated-list free-space managers.
type Allocator interface {
	// Alloc returns a reference to at least n usable bytes and the
	// payload slice backing them.
	Alloc(n int) (Ref, []byte, error)

	// Realloc resizes the allocation at ref. Realloc(NullRef, n) behaves
	// as Alloc(n); Realloc(ref, 0) behaves as Free(ref) and returns
	// NullRef. On failure the region, including ref's payload and the
	// free structures, is exactly as it was before the call.
	Realloc(ref Ref, n int) (Ref, []byte, error)

	// Free releases the allocation at ref. Free(NullRef) is a no-op.
	Free(ref Ref) error

	// Reset discards all allocator state and lays the region out again
	// as a single free block. A full reinitialization, not a merge.
	Reset() error

	// FreeCount returns the number of free blocks currently tracked,
	// duplicate-chain members included. O(1).
	FreeCount() int

	// Validate runs the full invariant checker. Diagnostic only; it
	// reports, it does not repair.
	Validate() bool

	// DumpFreeNodes writes a human-readable view of the free structures.
	DumpFreeNodes(w io.Writer, style Style)
}

var (
	_ Allocator = (*Tree)(nil)
	_ Allocator = (*SegList)(nil)
)
