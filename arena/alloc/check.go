package alloc

import (
	"fmt"
	"io"

	"github.com/heapkit/heapkit/arena"
	"github.com/heapkit/heapkit/internal/format"
)

// maxTreeDepth bounds checker recursion. A balanced tree over any
// region we can address never approaches this, so exceeding it means a
// link cycle rather than a deep tree.
const maxTreeDepth = 512

// CheckError describes a single invariant violation found by Check.
type CheckError struct {
	Stage   string // invariant family that failed
	Offset  uint64 // offending block offset, when known
	Message string
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("alloc: %s check failed at offset 0x%X: %s", e.Stage, e.Offset, e.Message)
}

// Validate runs the full invariant checker and reports pass or fail.
// Diagnostic only; it repairs nothing.
func (t *Tree) Validate() bool {
	return t.Check() == nil
}

// Check walks the whole region and the whole tree and verifies that the
// two agree. The linear scan accounts for every byte and confirms the
// boundary tags; the tree walk confirms ordering, coloring, black
// heights, parent links, and chain integrity. Returns the first
// violation found.
func (t *Tree) Check() error {
	if err := checkRegionLayout(t.data, t.nul); err != nil {
		return err
	}
	scanCount, scanBytes, err := scanRegion(t.data, t.nul)
	if err != nil {
		return err
	}
	if scanCount != t.free {
		return &CheckError{Stage: "accounting", Message: fmt.Sprintf("scan found %d free blocks, counter says %d", scanCount, t.free)}
	}
	if bh := t.blackHeight(t.root, 0); bh < 0 {
		return &CheckError{Stage: "black-height", Offset: t.root, Message: "subtree black heights disagree"}
	}
	if t.root != t.nul && t.isRed(t.root) {
		return &CheckError{Stage: "color", Offset: t.root, Message: "root is red"}
	}
	// Independent derivation of the expected black height from the
	// leftmost spine; the walk then holds every path to it.
	expect := 0
	for n := t.root; n != t.nul; n = t.link(n, left) {
		if !t.isRed(n) {
			expect++
		}
	}
	var treeCount int
	var treeBytes uint64
	if err := t.checkSubtree(t.root, t.nul, 0, ^uint64(0), expect, 0, &treeCount, &treeBytes); err != nil {
		return err
	}
	if treeCount != scanCount {
		return &CheckError{Stage: "accounting", Message: fmt.Sprintf("tree holds %d free blocks, scan found %d", treeCount, scanCount)}
	}
	if treeBytes != scanBytes {
		return &CheckError{Stage: "accounting", Message: fmt.Sprintf("tree holds %d free bytes, scan found %d", treeBytes, scanBytes)}
	}
	return nil
}

func checkRegionLayout(data []byte, nul uint64) error {
	if !format.ReadHeader(data, 0).LeftAllocated() {
		return &CheckError{Stage: "layout", Offset: 0, Message: "leftmost block reports a left neighbor"}
	}
	s := format.ReadHeader(data, int(nul))
	if !s.Allocated() || s.Size() != 0 || s.Red() {
		return &CheckError{Stage: "layout", Offset: nul, Message: "sentinel corrupted"}
	}
	return nil
}

// scanRegion walks the region left to right by size tags. It verifies
// that the tags account for every byte, that each block's left-neighbor
// bit matches reality, and that every free block carries a footer that
// mirrors its header.
func scanRegion(data []byte, nul uint64) (freeCount int, freeBytes uint64, err error) {
	it := arena.NewBlockIterator(data, 0, int(nul))
	prevAllocated := true
	end := 0
	for {
		b, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, 0, &CheckError{Stage: "scan", Offset: uint64(end), Message: err.Error()}
		}
		h := b.Header()
		if h.LeftAllocated() != prevAllocated {
			return 0, 0, &CheckError{Stage: "scan", Offset: uint64(b.Off), Message: "left-neighbor bit disagrees with left neighbor"}
		}
		if !h.Allocated() {
			freeCount++
			freeBytes += h.Size()
			if b.Footer().Size() != h.Size() {
				return 0, 0, &CheckError{Stage: "scan", Offset: uint64(b.Off), Message: "free block footer does not mirror header"}
			}
			if !prevAllocated {
				return 0, 0, &CheckError{Stage: "scan", Offset: uint64(b.Off), Message: "adjacent free blocks escaped coalescing"}
			}
		}
		prevAllocated = h.Allocated()
		end = b.Off + format.HeaderSize + b.PayloadSize()
	}
	if end != int(nul) {
		return 0, 0, &CheckError{Stage: "scan", Offset: uint64(end), Message: "size tags do not account for the whole region"}
	}
	if format.ReadHeader(data, int(nul)).LeftAllocated() != prevAllocated {
		return 0, 0, &CheckError{Stage: "scan", Offset: nul, Message: "sentinel left-neighbor bit disagrees with last block"}
	}
	return freeCount, freeBytes, nil
}

// checkSubtree validates BST ordering with exclusive bounds, red-red
// violations, equal black counts on every path, parent back-links, and
// the duplicate chains hanging off each node.
func (t *Tree) checkSubtree(node, parent uint64, low, high uint64, blackLeft, depth int, count *int, bytes *uint64) error {
	if node == t.nul {
		if blackLeft != 0 {
			return &CheckError{Stage: "black-height", Offset: parent, Message: "path black count differs from leftmost spine"}
		}
		return nil
	}
	if depth > maxTreeDepth {
		return &CheckError{Stage: "structure", Offset: node, Message: "tree deeper than any balanced tree can be, likely a cycle"}
	}
	h := t.hdr(node)
	if h.Allocated() {
		return &CheckError{Stage: "structure", Offset: node, Message: "allocated block linked into the free tree"}
	}
	size := h.Size()
	if size <= low || size >= high {
		return &CheckError{Stage: "ordering", Offset: node, Message: fmt.Sprintf("size %d violates search order (%d, %d)", size, low, high)}
	}
	if t.parent(node) != parent {
		return &CheckError{Stage: "structure", Offset: node, Message: "parent link does not match tree position"}
	}
	if h.Red() {
		if t.isRed(t.link(node, left)) || t.isRed(t.link(node, right)) {
			return &CheckError{Stage: "color", Offset: node, Message: "red node has a red child"}
		}
	} else {
		blackLeft--
	}
	*count++
	*bytes += size
	if err := t.checkChain(node, size, count, bytes); err != nil {
		return err
	}
	if err := t.checkSubtree(t.link(node, left), node, low, size, blackLeft, depth+1, count, bytes); err != nil {
		return err
	}
	return t.checkSubtree(t.link(node, right), node, size, high, blackLeft, depth+1, count, bytes)
}

func (t *Tree) checkChain(head, size uint64, count *int, bytes *uint64) error {
	last := head
	steps := 0
	for c := t.chain(head); c != t.nul; c = t.link(c, next) {
		if steps++; steps > t.free {
			return &CheckError{Stage: "chain", Offset: head, Message: "chain longer than the free block count, likely a cycle"}
		}
		if t.blockSize(c) != size {
			return &CheckError{Stage: "chain", Offset: c, Message: "chain member size differs from its head"}
		}
		if t.parent(c) != nullOff {
			return &CheckError{Stage: "chain", Offset: c, Message: "chain member carries a tree parent"}
		}
		if t.link(c, prev) != last {
			return &CheckError{Stage: "chain", Offset: c, Message: "chain prev link broken"}
		}
		*count++
		*bytes += size
		last = c
	}
	return nil
}

// blackHeight computes the black height of the subtree bottom-up,
// returning a negative value when any two sibling subtrees disagree. A
// second derivation, independent of the path walk in checkSubtree.
func (t *Tree) blackHeight(node uint64, depth int) int {
	if node == t.nul {
		return 1
	}
	if depth > maxTreeDepth {
		return -1
	}
	l := t.blackHeight(t.link(node, left), depth+1)
	r := t.blackHeight(t.link(node, right), depth+1)
	if l < 0 || r < 0 || l != r {
		return -1
	}
	if !t.isRed(node) {
		l++
	}
	return l
}
