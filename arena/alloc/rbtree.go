package alloc

import (
	"github.com/heapkit/heapkit/internal/format"
)

// Offsets of the embedded link words relative to a free block's tag word.
// The same five words serve two roles: tree node (parent, left, right,
// chain head) while the block is in the tree, list node (prev, next) while
// it waits in a duplicate chain.
const (
	parentOff = format.WordSize
	linksOff  = 2 * format.WordSize
	chainOff  = 4 * format.WordSize
)

// direction indexes the child link array. Because flip turns left into
// right and back, the symmetric halves of the insert and delete fixups
// collapse into one code path.
type direction int

const (
	left direction = iota
	right
)

// prev and next alias the child links while a block sits in a duplicate
// chain rather than the tree.
const (
	prev = left
	next = right
)

func (d direction) flip() direction {
	return d ^ 1
}

func (t *Tree) hdr(off uint64) format.Header {
	return format.ReadHeader(t.data, int(off))
}

func (t *Tree) setHdr(off uint64, h format.Header) {
	format.PutHeader(t.data, int(off), h)
}

func (t *Tree) blockSize(off uint64) uint64 {
	return t.hdr(off).Size()
}

func (t *Tree) parent(off uint64) uint64 {
	return format.ReadU64(t.data, int(off+parentOff))
}

func (t *Tree) setParent(off, p uint64) {
	format.PutU64(t.data, int(off+parentOff), p)
}

func (t *Tree) link(off uint64, d direction) uint64 {
	return format.ReadU64(t.data, int(off+linksOff)+int(d)*format.WordSize)
}

func (t *Tree) setLink(off uint64, d direction, v uint64) {
	format.PutU64(t.data, int(off+linksOff)+int(d)*format.WordSize, v)
}

func (t *Tree) chain(off uint64) uint64 {
	return format.ReadU64(t.data, int(off+chainOff))
}

func (t *Tree) setChain(off, v uint64) {
	format.PutU64(t.data, int(off+chainOff), v)
}

func (t *Tree) isRed(off uint64) bool {
	return t.hdr(off).Red()
}

func (t *Tree) paint(off uint64, red bool) {
	t.setHdr(off, t.hdr(off).Painted(red))
}

// childDir reports which child slot of p holds node.
func (t *Tree) childDir(p, node uint64) direction {
	if t.link(p, right) == node {
		return right
	}
	return left
}

// minimum returns the smallest node in the subtree rooted at node.
func (t *Tree) minimum(node uint64) uint64 {
	for t.link(node, left) != t.nul {
		node = t.link(node, left)
	}
	return node
}

// rotate swaps current with its child opposite the rotation direction and
// relinks both subtrees. One body covers left and right rotations.
func (t *Tree) rotate(current uint64, rotation direction) {
	opposite := rotation.flip()
	child := t.link(current, opposite)
	t.setLink(current, opposite, t.link(child, rotation))
	if t.link(child, rotation) != t.nul {
		t.setParent(t.link(child, rotation), current)
	}
	p := t.parent(current)
	t.setParent(child, p)
	if p == t.nul {
		t.root = child
	} else {
		t.setLink(p, t.childDir(p, current), child)
	}
	t.setLink(child, rotation, current)
	t.setParent(current, child)
}

// insert places node in the tree keyed by its payload size. A size
// already present never enters the tree; the node joins that entry's
// duplicate chain instead, so equal keys cause no rotations.
func (t *Tree) insert(node uint64) {
	t.free++
	key := t.blockSize(node)
	seeker := t.root
	p := t.nul
	for seeker != t.nul {
		p = seeker
		size := t.blockSize(seeker)
		if key == size {
			t.attachDuplicate(seeker, node)
			return
		}
		var dir direction
		if size < key {
			dir = right
		}
		seeker = t.link(seeker, dir)
	}
	t.setParent(node, p)
	if p == t.nul {
		t.root = node
	} else if t.blockSize(p) < key {
		t.setLink(p, right, node)
	} else {
		t.setLink(p, left, node)
	}
	t.setLink(node, left, t.nul)
	t.setLink(node, right, t.nul)
	t.setChain(node, t.nul)
	t.paint(node, true)
	t.fixInsert(node)
}

// fixInsert restores the red-black properties after insert. The
// direction enum folds the mirrored cases of the textbook fixup into one
// loop body.
func (t *Tree) fixInsert(current uint64) {
	for t.isRed(t.parent(current)) {
		p := t.parent(current)
		grand := t.parent(p)
		sym := t.childDir(grand, p)
		other := sym.flip()
		aunt := t.link(grand, other)
		if t.isRed(aunt) {
			t.paint(aunt, false)
			t.paint(p, false)
			t.paint(grand, true)
			current = grand
		} else {
			if current == t.link(p, other) {
				current = p
				t.rotate(current, sym)
			}
			t.paint(t.parent(current), false)
			t.paint(t.parent(t.parent(current)), true)
			t.rotate(t.parent(t.parent(current)), other)
		}
	}
	t.paint(t.root, false)
}

// transplant splices replacement into remove's position. The replacement
// may be the sentinel; its parent field is still set so fixDelete can
// climb from it.
func (t *Tree) transplant(remove, replacement uint64) {
	p := t.parent(remove)
	if p == t.nul {
		t.root = replacement
	} else {
		t.setLink(p, t.childDir(p, remove), replacement)
	}
	t.setParent(replacement, p)
}

// deleteNode removes node from the tree and rebalances. Returns node.
func (t *Tree) deleteNode(node uint64) uint64 {
	current := node
	fixup := t.nul
	wasRed := t.isRed(node)

	if t.link(node, left) == t.nul {
		fixup = t.link(node, right)
		t.transplant(node, fixup)
	} else if t.link(node, right) == t.nul {
		fixup = t.link(node, left)
		t.transplant(node, fixup)
	} else {
		current = t.minimum(t.link(node, right))
		wasRed = t.isRed(current)
		fixup = t.link(current, right)
		if current != t.link(node, right) {
			t.transplant(current, fixup)
			t.setLink(current, right, t.link(node, right))
			t.setParent(t.link(current, right), current)
		} else {
			t.setParent(fixup, current)
		}
		t.transplant(node, current)
		t.setLink(current, left, t.link(node, left))
		t.setParent(t.link(current, left), current)
		t.paint(current, t.isRed(node))
	}
	if !wasRed {
		t.fixDelete(fixup)
	}
	return node
}

// fixDelete restores the red-black properties after removing a black
// node, again with the mirrored cases unified by direction.
func (t *Tree) fixDelete(current uint64) {
	for current != t.root && !t.isRed(current) {
		p := t.parent(current)
		sym := t.childDir(p, current)
		other := sym.flip()
		sibling := t.link(p, other)
		if t.isRed(sibling) {
			t.paint(sibling, false)
			t.paint(p, true)
			t.rotate(p, sym)
			sibling = t.link(t.parent(current), other)
		}
		if !t.isRed(t.link(sibling, left)) && !t.isRed(t.link(sibling, right)) {
			t.paint(sibling, true)
			current = t.parent(current)
		} else {
			if !t.isRed(t.link(sibling, other)) {
				t.paint(t.link(sibling, sym), false)
				t.paint(sibling, true)
				t.rotate(sibling, other)
				sibling = t.link(t.parent(current), other)
			}
			t.paint(sibling, t.isRed(t.parent(current)))
			t.paint(t.parent(current), false)
			t.paint(t.link(sibling, other), false)
			t.rotate(t.parent(current), sym)
			current = t.root
		}
	}
	t.paint(current, false)
}

// bestFit removes and returns the smallest free block whose payload holds
// at least key bytes. The second result is false when no block fits; the
// tree is then untouched. A duplicate of the winning size comes off its
// chain in O(1) with no rebalancing.
func (t *Tree) bestFit(key uint64) (uint64, bool) {
	seeker := t.root
	best := t.nul
	bestSize := ^uint64(0)
	found := false
	for seeker != t.nul {
		size := t.blockSize(seeker)
		if size == key {
			best = seeker
			found = true
			break
		}
		// Anything we pass on the way left is a candidate; the closest
		// fit has won by the time we fall off the bottom.
		if size > key && size < bestSize {
			best = seeker
			bestSize = size
			found = true
		}
		var dir direction
		if size < key {
			dir = right
		}
		seeker = t.link(seeker, dir)
	}
	if !found {
		return 0, false
	}
	t.free--
	if t.chain(best) != t.nul {
		return t.detachFirst(best), true
	}
	return t.deleteNode(best), true
}
