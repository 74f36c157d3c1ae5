package format

import "encoding/binary"

// Binary encoding utilities for little-endian tag words.
//
// The standard library implementation is already well optimized; the
// compiler inlines binary.LittleEndian calls, so there is no reason to
// reach for unsafe pointer tricks here.

// PutU64 writes a uint64 value to the buffer at the specified offset in
// little-endian format.
func PutU64(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

// ReadU64 reads a uint64 value from the buffer at the specified offset in
// little-endian format.
func ReadU64(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}

// PutHeader writes a tag word at the specified offset.
func PutHeader(b []byte, off int, h Header) {
	PutU64(b, off, uint64(h))
}

// ReadHeader reads a tag word from the specified offset.
func ReadHeader(b []byte, off int) Header {
	return Header(ReadU64(b, off))
}
