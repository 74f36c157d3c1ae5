package arena

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/heapkit/heapkit/internal/format"
)

// buildRegion lays out a hand-built three-block region followed by a
// sentinel tag:
//
//	0    free  96 bytes, footer at 96
//	104  allocated 64 bytes
//	176  free  40 bytes, footer at 216
//	224  sentinel
func buildRegion(t *testing.T) []byte {
	t.Helper()
	buf := make([]byte, 264)

	a := Block{Buf: buf, Off: 0}
	a.SetHeader(format.Encode(96, false, true, false))
	a.WriteFooter()

	b := Block{Buf: buf, Off: 104}
	b.SetHeader(format.Encode(64, true, false, false))

	c := Block{Buf: buf, Off: 176}
	c.SetHeader(format.Encode(40, false, true, true))
	c.WriteFooter()

	s := Block{Buf: buf, Off: 224}
	s.SetHeader(format.Encode(0, true, false, false))
	return buf
}

func Test_BlockHeaderAndPayload(t *testing.T) {
	buf := buildRegion(t)
	b := Block{Buf: buf, Off: 104}

	require.Equal(t, 64, b.PayloadSize())
	require.True(t, b.Header().Allocated())
	require.False(t, b.Header().LeftAllocated())
	require.Len(t, b.Payload(), 64)

	// Payload writes land after the tag word.
	b.Payload()[0] = 0xEE
	require.Equal(t, byte(0xEE), buf[112])
}

func Test_BlockNeighbors(t *testing.T) {
	buf := buildRegion(t)
	a := Block{Buf: buf, Off: 0}
	b := a.RightNeighbor()
	require.Equal(t, 104, b.Off)
	c := b.RightNeighbor()
	require.Equal(t, 176, c.Off)

	// b's left neighbor is free, so the word before b's tag is a's
	// footer and the step left is exact.
	require.False(t, b.Header().LeftAllocated())
	require.Equal(t, 0, b.LeftNeighbor().Off)
}

func Test_BlockFooterMirrorsHeader(t *testing.T) {
	buf := buildRegion(t)
	a := Block{Buf: buf, Off: 0}
	require.Equal(t, a.Header(), a.Footer())

	c := Block{Buf: buf, Off: 176}
	require.Equal(t, uint64(40), c.Footer().Size())
	require.True(t, c.Footer().Red())
}

func Test_BlockIteratorWalksWholeRegion(t *testing.T) {
	buf := buildRegion(t)
	it := NewBlockIterator(buf, 0, 224)

	var offs []int
	for {
		b, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		offs = append(offs, b.Off)
	}
	require.Equal(t, []int{0, 104, 176}, offs)

	// Exhausted iterators stay exhausted.
	_, err := it.Next()
	require.Equal(t, io.EOF, err)
}

func Test_BlockIteratorRejectsCorruptTag(t *testing.T) {
	buf := buildRegion(t)

	// Zero the middle block's tag, as an overrun would.
	format.PutHeader(buf, 104, 0)
	it := NewBlockIterator(buf, 0, 224)
	_, err := it.Next()
	require.NoError(t, err)
	_, err = it.Next()
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad block size")

	// A tag pointing past the limit is also an error, not a crash.
	buf = buildRegion(t)
	format.PutHeader(buf, 104, format.Encode(4096, true, false, false))
	it = NewBlockIterator(buf, 0, 224)
	_, err = it.Next()
	require.NoError(t, err)
	_, err = it.Next()
	require.Error(t, err)
	require.Contains(t, err.Error(), "runs past limit")
}
