package alloc

import (
	"github.com/heapkit/heapkit/internal/format"
)

// coalesce merges the block at node with any free neighbors, removing
// each absorbed neighbor from the free structures, and returns the
// leftmost offset of the merged span. The merged header carries the
// combined size but no footer is written; the bytes in the middle of the
// span may still be live payload that Realloc wants to move.
func (t *Tree) coalesce(node uint64) uint64 {
	space := t.blockSize(node)
	rightN := node + format.WordSize + space
	if !t.hdr(rightN).Allocated() {
		space += t.blockSize(rightN) + format.WordSize
		t.freeCoalesced(rightN)
		t.stats.CoalesceRight++
	}
	if node != 0 && !t.hdr(node).LeftAllocated() {
		leftSize := format.ReadHeader(t.data, int(node-format.WordSize)).Size()
		node = node - leftSize - format.WordSize
		space += leftSize + format.WordSize
		t.freeCoalesced(node)
		t.stats.CoalesceLeft++
	}
	t.setHdr(node, format.Encode(space, false, true, false))
	return node
}

// coalesceSpan computes the payload size coalesce would produce for the
// block at node without touching the region. Realloc measures first so a
// request that cannot be satisfied performs no writes at all.
func (t *Tree) coalesceSpan(node uint64) uint64 {
	span := t.blockSize(node)
	rightN := node + format.WordSize + span
	if !t.hdr(rightN).Allocated() {
		span += t.blockSize(rightN) + format.WordSize
	}
	if node != 0 && !t.hdr(node).LeftAllocated() {
		span += format.ReadHeader(t.data, int(node-format.WordSize)).Size() + format.WordSize
	}
	return span
}
