// Package alloc provides free-space management for a single contiguous
// memory region.
//
// # Overview
//
// The package implements a drop-in dynamic allocator over a region
// acquired once at startup. All bookkeeping lives inside the region
// itself: every block starts with a tag word encoding its payload size
// and status flags, and free blocks embed their tree or list links in
// the bytes the caller would otherwise own. There is no side table.
//
// # Implementations
//
// Tree: the production manager
//
//   - red-black tree over free blocks, keyed by payload size
//   - best-fit lookup, insert, and targeted delete in O(log n)
//   - duplicate chains make repeated-size free/alloc O(1) with no
//     rotations
//   - boundary-tag coalescing of adjacent free neighbors
//
// SegList: a simpler manager with the same contract
//
//   - segregated free lists bucketed by power-of-two size classes
//   - first-fit within ascending classes
//   - same tag layout, padding, and coalescing rules as Tree
//
// Both satisfy the Allocator interface, so harnesses and the CLI can be
// pointed at either.
//
// # Usage
//
//	seg, err := arena.MapSegment(1 << 20)
//	if err != nil {
//		return err
//	}
//	defer seg.Close()
//
//	t, err := alloc.NewTree(seg.Bytes())
//	if err != nil {
//		return err
//	}
//
//	ref, buf, err := t.Alloc(256)
//	if err != nil {
//		return err
//	}
//	copy(buf, payload)
//	// ...
//	err = t.Free(ref)
//
// # References
//
// References (Ref) are byte offsets of the first usable payload byte
// within the region, always 8-byte aligned. NullRef is the null value;
// Free(NullRef) is a no-op and Realloc(NullRef, n) behaves as Alloc(n).
//
// # Error model
//
// Capacity exhaustion and invalid sizes come back as ordinary errors and
// leave the region untouched. Misuse - double free, foreign references,
// writes past the end of an allocation - is undefined behavior, exactly
// as with malloc and free. The Check/Validate pair
// detects the resulting corruption after the fact; with HEAPKIT_CHECK
// set in the environment, every public operation re-validates the whole
// region and panics on the first violation.
//
// # Thread safety
//
// Managers are not thread-safe and not reentrant. Callers synchronize
// externally.
package alloc
