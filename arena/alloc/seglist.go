package alloc

import (
	"fmt"
	"io"
	"math/bits"

	"github.com/heapkit/heapkit/internal/format"
)

// numClasses covers payload sizes from the minimum block up past
// MaxRequest in power-of-two steps.
const numClasses = 26

// classIndex buckets a payload size by power of two starting at 64
// bytes. Everything below 64 lands in class zero.
func classIndex(size uint64) int {
	i := bits.Len64(size >> 6)
	if i >= numClasses {
		i = numClasses - 1
	}
	return i
}

// SegList is a free-space manager backed by segregated free lists, one
// doubly linked list per power-of-two size class, searched first-fit in
// ascending class order. It shares the tag layout, request padding, and
// coalescing rules with Tree, so the two are interchangeable behind the
// Allocator interface; what changes is the fit policy and the cost
// profile. Free blocks embed their prev and next links in the first two
// payload words.
type SegList struct {
	region  []byte
	data    []byte
	size    uint64
	nul     uint64
	buckets [numClasses]uint64 // heads, nullOff when empty
	free    int
	stats   Stats
}

// NewSegList lays the region out as a single free block plus the
// trailing sentinel and returns a ready manager.
func NewSegList(region []byte) (*SegList, error) {
	s := &SegList{}
	if err := s.init(region); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset discards all allocator state and lays the region out again as a
// single free block.
func (s *SegList) Reset() error {
	return s.init(s.region)
}

func (s *SegList) init(region []byte) error {
	size := uint64(format.AlignDown(len(region)))
	if size < format.MinRegionSize {
		return ErrRegionTooSmall
	}
	s.region = region
	s.data = region[:size]
	s.size = size
	s.nul = size - format.NodeWidth
	format.PutHeader(s.data, int(s.nul), format.Encode(0, true, false, false))
	for i := range s.buckets {
		s.buckets[i] = nullOff
	}
	payload := size - format.NodeWidth - format.WordSize
	format.PutHeader(s.data, 0, format.Encode(payload, false, true, false))
	format.PutHeader(s.data, int(payload), format.Encode(payload, false, true, false))
	s.free = 0
	s.push(0, payload)
	s.stats = Stats{}
	return nil
}

func (s *SegList) hdr(off uint64) format.Header {
	return format.ReadHeader(s.data, int(off))
}

func (s *SegList) setHdr(off uint64, h format.Header) {
	format.PutHeader(s.data, int(off), h)
}

func (s *SegList) prevOf(off uint64) uint64 {
	return format.ReadU64(s.data, int(off+format.WordSize))
}

func (s *SegList) setPrev(off, v uint64) {
	format.PutU64(s.data, int(off+format.WordSize), v)
}

func (s *SegList) nextOf(off uint64) uint64 {
	return format.ReadU64(s.data, int(off+2*format.WordSize))
}

func (s *SegList) setNext(off, v uint64) {
	format.PutU64(s.data, int(off+2*format.WordSize), v)
}

// push fronts node onto the bucket for its size.
func (s *SegList) push(node, size uint64) {
	idx := classIndex(size)
	head := s.buckets[idx]
	s.setPrev(node, nullOff)
	s.setNext(node, head)
	if head != nullOff {
		s.setPrev(head, node)
	}
	s.buckets[idx] = node
	s.free++
}

// unlink removes node from its bucket. The bucket index comes from the
// node's current size tag, which has not changed since push.
func (s *SegList) unlink(node uint64) {
	p := s.prevOf(node)
	n := s.nextOf(node)
	if p == nullOff {
		s.buckets[classIndex(s.hdr(node).Size())] = n
	} else {
		s.setNext(p, n)
	}
	if n != nullOff {
		s.setPrev(n, p)
	}
	s.free--
}

// firstFit scans buckets from the request's class upward and returns the
// first block that holds the request, already unlinked.
func (s *SegList) firstFit(request uint64) (uint64, bool) {
	for idx := classIndex(request); idx < numClasses; idx++ {
		for node := s.buckets[idx]; node != nullOff; node = s.nextOf(node) {
			if s.hdr(node).Size() >= request {
				s.unlink(node)
				return node, true
			}
		}
	}
	return 0, false
}

// Alloc returns the first free block that fits n bytes, splitting off
// the remainder when it is large enough to stand alone.
func (s *SegList) Alloc(n int) (Ref, []byte, error) {
	if n <= 0 {
		return NullRef, nil, ErrBadRequest
	}
	if n > format.MaxRequest {
		return NullRef, nil, ErrTooLarge
	}
	s.stats.AllocCalls++
	request := uint64(format.AlignUp(n + format.NodeWidth))
	node, ok := s.firstFit(request)
	if !ok {
		return NullRef, nil, ErrNoSpace
	}
	ref, payload := s.splitAlloc(node, request, s.hdr(node).Size())
	return ref, payload, nil
}

// Free coalesces the block with any free neighbors and pushes the merged
// result onto its bucket. Free(NullRef) is a no-op.
func (s *SegList) Free(ref Ref) error {
	if ref == NullRef {
		return nil
	}
	if err := s.checkRef(ref); err != nil {
		return err
	}
	s.stats.FreeCalls++
	node := s.coalesce(ref - format.WordSize)
	s.initFreeNode(node, s.hdr(node).Size())
	return nil
}

// Realloc resizes the allocation at ref, growing in place by coalescing
// before falling back to a move. A failed fallback performs no writes.
func (s *SegList) Realloc(ref Ref, n int) (Ref, []byte, error) {
	if n > format.MaxRequest {
		return NullRef, nil, ErrTooLarge
	}
	if n <= 0 {
		// Covers Realloc(NullRef, 0) too: freeing the null reference is
		// a no-op.
		if err := s.Free(ref); err != nil {
			return NullRef, nil, err
		}
		return NullRef, nil, nil
	}
	if ref == NullRef {
		return s.Alloc(n)
	}
	if err := s.checkRef(ref); err != nil {
		return NullRef, nil, err
	}
	s.stats.ReallocCalls++
	request := uint64(format.AlignUp(n + format.NodeWidth))
	node := ref - format.WordSize
	oldSize := s.hdr(node).Size()

	if s.coalesceSpan(node) >= request {
		merged := s.coalesce(node)
		space := s.hdr(merged).Size()
		if merged != node {
			copy(s.data[merged+format.WordSize:merged+format.WordSize+oldSize], s.data[ref:ref+oldSize])
		}
		newRef, payload := s.splitAlloc(merged, request, space)
		return newRef, payload, nil
	}

	newRef, payload, err := s.Alloc(n)
	if err != nil {
		return NullRef, nil, err
	}
	copy(payload, s.data[ref:ref+oldSize])
	abandoned := s.coalesce(node)
	s.initFreeNode(abandoned, s.hdr(abandoned).Size())
	return newRef, payload, nil
}

// FreeCount returns the number of free blocks across all buckets. O(1).
func (s *SegList) FreeCount() int {
	return s.free
}

// Stats returns the running operation counters.
func (s *SegList) Stats() Stats {
	return s.stats
}

// Size returns the managed region size in bytes.
func (s *SegList) Size() int {
	return int(s.size)
}

// Bytes returns the managed region. Intended for checkers and tests.
func (s *SegList) Bytes() []byte {
	return s.data
}

func (s *SegList) splitAlloc(node, request, space uint64) (Ref, []byte) {
	if space >= request+format.MinBlockSize {
		s.initFreeNode(node+format.WordSize+request, space-request-format.WordSize)
		s.stats.Splits++
	} else {
		request = space
		neighbor := node + format.WordSize + space
		s.setHdr(neighbor, s.hdr(neighbor).WithLeftAllocated(true))
	}
	s.setHdr(node, format.Encode(request, true, true, false))
	s.stats.BytesServed += int64(request)
	ref := node + format.WordSize
	return ref, s.data[ref : ref+request]
}

func (s *SegList) initFreeNode(node, payload uint64) {
	h := format.Encode(payload, false, true, false)
	s.setHdr(node, h)
	format.PutHeader(s.data, int(node+payload), h)
	neighbor := node + payload + format.WordSize
	s.setHdr(neighbor, s.hdr(neighbor).WithLeftAllocated(false))
	s.push(node, payload)
}

func (s *SegList) coalesce(node uint64) uint64 {
	space := s.hdr(node).Size()
	rightN := node + format.WordSize + space
	if !s.hdr(rightN).Allocated() {
		space += s.hdr(rightN).Size() + format.WordSize
		s.unlink(rightN)
		s.stats.CoalesceRight++
	}
	if node != 0 && !s.hdr(node).LeftAllocated() {
		leftSize := format.ReadHeader(s.data, int(node-format.WordSize)).Size()
		node = node - leftSize - format.WordSize
		space += leftSize + format.WordSize
		s.unlink(node)
		s.stats.CoalesceLeft++
	}
	s.setHdr(node, format.Encode(space, false, true, false))
	return node
}

func (s *SegList) coalesceSpan(node uint64) uint64 {
	span := s.hdr(node).Size()
	rightN := node + format.WordSize + span
	if !s.hdr(rightN).Allocated() {
		span += s.hdr(rightN).Size() + format.WordSize
	}
	if node != 0 && !s.hdr(node).LeftAllocated() {
		span += format.ReadHeader(s.data, int(node-format.WordSize)).Size() + format.WordSize
	}
	return span
}

func (s *SegList) checkRef(ref Ref) error {
	if ref < format.WordSize || ref >= s.nul || ref%format.Alignment != 0 {
		return ErrBadRef
	}
	return nil
}

// Validate runs the full invariant checker and reports pass or fail.
func (s *SegList) Validate() bool {
	return s.Check() == nil
}

// Check verifies the region scan and the bucket lists agree: every free
// block sits in the bucket for its size class with consistent back
// links, and the counts and byte totals match the linear scan.
func (s *SegList) Check() error {
	if err := checkRegionLayout(s.data, s.nul); err != nil {
		return err
	}
	scanCount, scanBytes, err := scanRegion(s.data, s.nul)
	if err != nil {
		return err
	}
	if scanCount != s.free {
		return &CheckError{Stage: "accounting", Message: fmt.Sprintf("scan found %d free blocks, counter says %d", scanCount, s.free)}
	}
	listCount := 0
	var listBytes uint64
	for idx, head := range s.buckets {
		last := nullOff
		for node := head; node != nullOff; node = s.nextOf(node) {
			if listCount++; listCount > s.free {
				return &CheckError{Stage: "chain", Offset: node, Message: "bucket list longer than the free block count, likely a cycle"}
			}
			h := s.hdr(node)
			if h.Allocated() {
				return &CheckError{Stage: "structure", Offset: node, Message: "allocated block linked into a free list"}
			}
			if classIndex(h.Size()) != idx {
				return &CheckError{Stage: "structure", Offset: node, Message: fmt.Sprintf("size %d filed under class %d", h.Size(), idx)}
			}
			if s.prevOf(node) != last {
				return &CheckError{Stage: "chain", Offset: node, Message: "bucket prev link broken"}
			}
			listBytes += h.Size()
			last = node
		}
	}
	if listCount != scanCount {
		return &CheckError{Stage: "accounting", Message: fmt.Sprintf("buckets hold %d free blocks, scan found %d", listCount, scanCount)}
	}
	if listBytes != scanBytes {
		return &CheckError{Stage: "accounting", Message: fmt.Sprintf("buckets hold %d free bytes, scan found %d", listBytes, scanBytes)}
	}
	return nil
}

// DumpFreeNodes writes one line per non-empty size class with the blocks
// queued in it.
func (s *SegList) DumpFreeNodes(w io.Writer, style Style) {
	empty := true
	for idx, head := range s.buckets {
		if head == nullOff {
			continue
		}
		empty = false
		fmt.Fprintf(w, "class %d:", idx)
		for node := head; node != nullOff; node = s.nextOf(node) {
			if style == Verbose {
				fmt.Fprintf(w, " %d@0x%X", s.hdr(node).Size(), node)
			} else {
				fmt.Fprintf(w, " %d", s.hdr(node).Size())
			}
		}
		fmt.Fprintln(w)
	}
	if empty {
		fmt.Fprintln(w, "(no free blocks)")
	}
}
