package alloc

// Duplicate chains. Every tree node doubles as the head of a doubly
// linked list of free blocks with the same payload size. Chain members
// are not tree nodes: their parent field holds nullOff as a marker, and
// their child links serve as prev and next. The first member's prev
// points back at the head, and the last member's next is the sentinel.

// attachDuplicate pushes add onto head's chain. The previous first
// member's prev link is updated even when it is the sentinel; that
// scribble is harmless because nothing reads the sentinel's links.
func (t *Tree) attachDuplicate(head, add uint64) {
	t.setHdr(add, t.hdr(head))
	t.setParent(add, nullOff)
	t.setChain(add, nullOff)
	first := t.chain(head)
	t.setLink(first, prev, add)
	t.setLink(add, next, first)
	t.setLink(add, prev, head)
	t.setChain(head, add)
}

// detachFirst pops the first member of head's chain and returns it. The
// head stays in the tree, so a repeated size costs no rotations. The
// caller guarantees the chain is not empty.
func (t *Tree) detachFirst(head uint64) uint64 {
	first := t.chain(head)
	t.setLink(t.link(first, next), prev, head)
	t.setChain(head, t.link(first, next))
	return first
}

// freeCoalesced removes a specific free block found by address during
// coalescing. Unlike bestFit the block may be anywhere: a plain tree
// node, a chain head, or a chain member.
func (t *Tree) freeCoalesced(node uint64) uint64 {
	t.free--
	// A tree node with no duplicates is a standard deletion.
	if t.chain(node) == t.nul {
		return t.deleteNode(node)
	}
	h := t.hdr(node)
	treeParent := t.parent(node)
	treeRight := t.link(node, right)
	treeLeft := t.link(node, left)
	switch {
	case treeParent != nullOff:
		// Head of a chain. Promote the first member into the tree
		// position: it inherits the head's color, children, and parent,
		// so the tree shape is untouched and no fixup runs.
		newHead := t.chain(node)
		t.setHdr(newHead, h)
		t.setChain(newHead, t.link(newHead, next))
		t.setLink(newHead, left, treeLeft)
		t.setLink(newHead, right, treeRight)
		t.setParent(treeRight, newHead)
		t.setParent(treeLeft, newHead)
		t.setParent(newHead, treeParent)
		if treeParent == t.nul {
			t.root = newHead
		} else {
			t.setLink(treeParent, t.childDir(treeParent, node), newHead)
		}
	case t.chain(t.link(node, prev)) == node:
		// First member, directly after the head. The head's prev slot
		// is really its left tree child, so the splice must go through
		// the head's chain field instead of its links.
		head := t.link(node, prev)
		t.setChain(head, t.link(node, next))
		t.setLink(t.link(node, next), prev, head)
	default:
		// Middle or end of the chain, an ordinary list splice.
		t.setLink(t.link(node, prev), next, t.link(node, next))
		t.setLink(t.link(node, next), prev, t.link(node, prev))
	}
	return node
}
