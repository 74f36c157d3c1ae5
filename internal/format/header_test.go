package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_HeaderEncodeDecode(t *testing.T) {
	h := Encode(32608, false, true, true)
	size, allocated, leftAllocated, red := Decode(h)
	require.Equal(t, uint64(32608), size)
	require.False(t, allocated)
	require.True(t, leftAllocated)
	require.True(t, red)
}

func Test_HeaderFlagsIndependent(t *testing.T) {
	h := Encode(104, true, false, false)
	require.Equal(t, uint64(104), h.Size())

	h = h.Painted(true)
	require.True(t, h.Red())
	require.True(t, h.Allocated())
	require.Equal(t, uint64(104), h.Size())

	h = h.WithAllocated(false)
	require.False(t, h.Allocated())
	require.True(t, h.Red())

	h = h.WithLeftAllocated(true)
	require.True(t, h.LeftAllocated())
	require.Equal(t, uint64(104), h.Size())

	h = h.Painted(false).WithLeftAllocated(false)
	require.Equal(t, Encode(104, false, false, false), h)
}

func Test_HeaderEncodeMasksStraySizeBits(t *testing.T) {
	// A size with low bits set must not leak into the flag bits.
	h := Encode(103, false, false, false)
	require.Equal(t, uint64(96), h.Size())
	require.False(t, h.Allocated())
	require.False(t, h.LeftAllocated())
	require.False(t, h.Red())
}

func Test_HeaderRoundTripBuffer(t *testing.T) {
	buf := make([]byte, 64)
	h := Encode(216, false, true, false)
	PutHeader(buf, 8, h)
	require.Equal(t, h, ReadHeader(buf, 8))

	PutU64(buf, 16, ^uint64(0))
	require.Equal(t, ^uint64(0), ReadU64(buf, 16))
}
