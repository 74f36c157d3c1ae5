package arena

import (
	"fmt"
	"io"

	"github.com/heapkit/heapkit/internal/format"
)

// BlockIterator walks blocks left to right by following their size tags.
type BlockIterator struct {
	buf   []byte
	next  int
	limit int
	done  bool
}

// NewBlockIterator returns an iterator over [start, limit). The limit is
// normally the offset of the region's trailing sentinel.
func NewBlockIterator(buf []byte, start, limit int) *BlockIterator {
	return &BlockIterator{buf: buf, next: start, limit: limit}
}

// Next returns the next block or io.EOF. A zero-size tag before the
// limit means a header was overwritten; that surfaces as an error rather
// than an endless loop.
func (it *BlockIterator) Next() (Block, error) {
	if it.done || it.next >= it.limit {
		it.done = true
		return Block{}, io.EOF
	}
	b := Block{Buf: it.buf, Off: it.next}
	size := b.PayloadSize()
	if size == 0 || size%format.Alignment != 0 {
		it.done = true
		return Block{}, fmt.Errorf("arena: bad block size %d at offset 0x%X", size, it.next)
	}
	end := it.next + format.HeaderSize + size
	if end > it.limit {
		it.done = true
		return Block{}, fmt.Errorf("arena: block at offset 0x%X runs past limit 0x%X", it.next, it.limit)
	}
	it.next = end
	return b, nil
}
