package arena

import (
	"github.com/heapkit/heapkit/internal/format"
)

// Block is a zero-copy view over a single block inside a managed region.
// A block looks like:
//
//	word    tag       size | flags (see format.Header)
//	...     payload   caller bytes, or embedded tree links while free
//	word    footer    copy of the tag, present only while free
//
// Off is the byte offset of the tag word within Buf.
type Block struct {
	Buf []byte
	Off int
}

// Header returns the block's tag word.
func (b Block) Header() format.Header {
	return format.ReadHeader(b.Buf, b.Off)
}

// SetHeader overwrites the block's tag word.
func (b Block) SetHeader(h format.Header) {
	format.PutHeader(b.Buf, b.Off, h)
}

// PayloadSize returns the payload size in bytes, excluding the tag word.
func (b Block) PayloadSize() int {
	return int(b.Header().Size())
}

// Payload returns the bytes after the tag word. While the block is free
// the leading words of the payload hold tree links and the final word
// holds the footer.
func (b Block) Payload() []byte {
	start := b.Off + format.HeaderSize
	return b.Buf[start : start+b.PayloadSize()]
}

// RightNeighbor steps to the block that starts immediately after this
// one. The region's trailing sentinel reports itself as allocated with
// size zero, so a rightward scan terminates there without leaving the
// region.
func (b Block) RightNeighbor() Block {
	return Block{Buf: b.Buf, Off: b.Off + format.HeaderSize + b.PayloadSize()}
}

// LeftNeighbor steps to the block that ends immediately before this one
// by reading the left neighbor's footer, the word preceding this tag.
// That word is a footer if and only if the left neighbor is free; callers
// must check Header().LeftAllocated() first. Calling this when the left
// neighbor is allocated reads caller payload bytes and the result is
// undefined.
func (b Block) LeftNeighbor() Block {
	leftSize := int(format.ReadHeader(b.Buf, b.Off-format.WordSize).Size())
	return Block{Buf: b.Buf, Off: b.Off - leftSize - format.HeaderSize}
}

// WriteFooter copies the tag word into the block's final payload word so
// the right neighbor can step left. Only meaningful for free blocks.
func (b Block) WriteFooter() {
	format.PutHeader(b.Buf, b.Off+b.PayloadSize(), b.Header())
}

// Footer returns the block's trailing footer word. Only meaningful for
// free blocks.
func (b Block) Footer() format.Header {
	return format.ReadHeader(b.Buf, b.Off+b.PayloadSize())
}
