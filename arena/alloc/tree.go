package alloc

import (
	"os"

	"github.com/heapkit/heapkit/arena"
	"github.com/heapkit/heapkit/internal/format"
)

// checkEveryOp re-runs the full invariant checker after every public
// operation and panics on the first violation. Diagnostic tool for
// debugging sessions, not a production setting.
var checkEveryOp = os.Getenv("HEAPKIT_CHECK") != ""

// Stats holds running operation counters for instrumentation.
type Stats struct {
	AllocCalls    int   // Alloc calls, including Realloc fallbacks
	ReallocCalls  int   // Realloc calls
	FreeCalls     int   // Free calls
	Splits        int   // blocks split into an allocated prefix and free suffix
	CoalesceLeft  int   // merges with a free left neighbor
	CoalesceRight int   // merges with a free right neighbor
	BytesServed   int64 // total payload bytes handed out, padding included
}

// Tree is a free-space manager backed by a red-black tree keyed on block
// size, with duplicate chains for repeated sizes. Free blocks double as
// tree nodes: the payload's leading words hold the parent, the two child
// links, and the chain head, and the final word holds the footer. A
// never-freed sentinel node at the top of the region serves as both the
// tree's empty-subtree marker and the chains' list terminator.
type Tree struct {
	region []byte // full region as handed to NewTree
	data   []byte // managed prefix, aligned down
	size   uint64
	root   uint64
	nul    uint64 // sentinel offset; also the end of client space
	free   int
	stats  Stats
}

// NewTree lays the region out as a single free block plus the trailing
// sentinel and returns a ready manager. Fails if the region cannot hold
// one minimum block and the sentinel.
func NewTree(region []byte) (*Tree, error) {
	t := &Tree{}
	if err := t.init(region); err != nil {
		return nil, err
	}
	return t, nil
}

// Reset discards all allocator state and lays the region out again as a
// single free block. A full reinitialization, not a merge.
func (t *Tree) Reset() error {
	return t.init(t.region)
}

func (t *Tree) init(region []byte) error {
	size := uint64(format.AlignDown(len(region)))
	if size < format.MinRegionSize {
		return ErrRegionTooSmall
	}
	t.region = region
	t.data = region[:size]
	t.size = size
	t.nul = size - format.NodeWidth
	// Sentinel: allocated, size zero, black. Rightward scans stop here,
	// and every empty child or chain link points at it.
	t.setHdr(t.nul, format.Encode(0, true, false, false))
	t.setParent(t.nul, nullOff)
	t.setLink(t.nul, left, nullOff)
	t.setLink(t.nul, right, nullOff)
	t.setChain(t.nul, nullOff)
	// The rest of the region is one free black block, the initial root.
	root := uint64(0)
	payload := size - format.NodeWidth - format.WordSize
	t.setHdr(root, format.Encode(payload, false, true, false))
	t.blockAt(root).WriteFooter()
	t.setParent(root, t.nul)
	t.setLink(root, left, t.nul)
	t.setLink(root, right, t.nul)
	t.setChain(root, t.nul)
	t.root = root
	t.free = 1
	t.stats = Stats{}
	return nil
}

// Alloc takes the best-fitting free block for n bytes out of the tree,
// splitting off the remainder when it is large enough to stand alone.
func (t *Tree) Alloc(n int) (Ref, []byte, error) {
	if n <= 0 {
		return NullRef, nil, ErrBadRequest
	}
	if n > format.MaxRequest {
		return NullRef, nil, ErrTooLarge
	}
	t.stats.AllocCalls++
	request := uint64(format.AlignUp(n + format.NodeWidth))
	node, ok := t.bestFit(request)
	if !ok {
		return NullRef, nil, ErrNoSpace
	}
	ref, payload := t.splitAlloc(node, request, t.blockSize(node))
	t.debugCheck()
	return ref, payload, nil
}

// Free coalesces the block with any free neighbors and reinserts the
// merged result. Free(NullRef) is a no-op. Releasing a reference that
// was never returned by this manager is undefined behavior.
func (t *Tree) Free(ref Ref) error {
	if ref == NullRef {
		return nil
	}
	if err := t.checkRef(ref); err != nil {
		return err
	}
	t.stats.FreeCalls++
	node := t.coalesce(ref - format.WordSize)
	t.initFreeNode(node, t.blockSize(node))
	t.debugCheck()
	return nil
}

// Realloc resizes the allocation at ref. The block is first grown in
// place by coalescing; only when the merged span still cannot satisfy
// the request does the payload move to a fresh allocation. A failed
// fallback performs no writes at all, so the caller's data and the free
// tree are exactly as before the call.
func (t *Tree) Realloc(ref Ref, n int) (Ref, []byte, error) {
	if n > format.MaxRequest {
		return NullRef, nil, ErrTooLarge
	}
	if n <= 0 {
		// Covers Realloc(NullRef, 0) too: freeing the null reference is
		// a no-op.
		if err := t.Free(ref); err != nil {
			return NullRef, nil, err
		}
		return NullRef, nil, nil
	}
	if ref == NullRef {
		return t.Alloc(n)
	}
	if err := t.checkRef(ref); err != nil {
		return NullRef, nil, err
	}
	t.stats.ReallocCalls++
	request := uint64(format.AlignUp(n + format.NodeWidth))
	node := ref - format.WordSize
	oldSize := t.blockSize(node)

	if t.coalesceSpan(node) >= request {
		merged := t.coalesce(node)
		space := t.blockSize(merged)
		if merged != node {
			// The start moved left; slide the payload down before the
			// split writes a fresh suffix header behind it.
			copy(t.data[merged+format.WordSize:merged+format.WordSize+oldSize], t.data[ref:ref+oldSize])
		}
		newRef, payload := t.splitAlloc(merged, request, space)
		t.debugCheck()
		return newRef, payload, nil
	}

	newRef, payload, err := t.Alloc(n)
	if err != nil {
		return NullRef, nil, err
	}
	copy(payload, t.data[ref:ref+oldSize])
	abandoned := t.coalesce(node)
	t.initFreeNode(abandoned, t.blockSize(abandoned))
	t.debugCheck()
	return newRef, payload, nil
}

// FreeCount returns the number of free blocks currently tracked, chain
// members included. O(1).
func (t *Tree) FreeCount() int {
	return t.free
}

// Stats returns the running operation counters.
func (t *Tree) Stats() Stats {
	return t.stats
}

// Size returns the managed region size in bytes.
func (t *Tree) Size() int {
	return int(t.size)
}

// Bytes returns the managed region. Intended for checkers and tests.
func (t *Tree) Bytes() []byte {
	return t.data
}

// splitAlloc carves an allocation of request payload bytes out of a free
// block already removed from the tree. When the leftover cannot hold a
// minimum block it is folded into the allocation instead of split off.
func (t *Tree) splitAlloc(node, request, space uint64) (Ref, []byte) {
	if space >= request+format.MinBlockSize {
		t.initFreeNode(node+format.WordSize+request, space-request-format.WordSize)
		t.stats.Splits++
	} else {
		request = space
		neighbor := node + format.WordSize + space
		t.setHdr(neighbor, t.hdr(neighbor).WithLeftAllocated(true))
	}
	t.setHdr(node, format.Encode(request, true, true, false))
	t.stats.BytesServed += int64(request)
	ref := node + format.WordSize
	return ref, t.data[ref : ref+request]
}

// initFreeNode writes a complete free block at node: red header, empty
// chain, footer, the right neighbor's left-allocated bit cleared, and
// the node inserted into the tree.
func (t *Tree) initFreeNode(node, payload uint64) {
	h := format.Encode(payload, false, true, true)
	t.setHdr(node, h)
	t.setChain(node, t.nul)
	format.PutHeader(t.data, int(node+payload), h)
	neighbor := node + payload + format.WordSize
	t.setHdr(neighbor, t.hdr(neighbor).WithLeftAllocated(false))
	t.insert(node)
}

func (t *Tree) checkRef(ref Ref) error {
	if ref < format.WordSize || ref >= t.nul || ref%format.Alignment != 0 {
		return ErrBadRef
	}
	return nil
}

func (t *Tree) debugCheck() {
	if !checkEveryOp {
		return
	}
	if err := t.Check(); err != nil {
		panic(err)
	}
}

func (t *Tree) blockAt(off uint64) arena.Block {
	return arena.Block{Buf: t.data, Off: int(off)}
}
