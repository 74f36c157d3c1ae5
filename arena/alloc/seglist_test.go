package alloc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/heapkit/heapkit/internal/format"
)

func newTestSegList(t *testing.T, size int) *SegList {
	t.Helper()
	s, err := NewSegList(make([]byte, size))
	require.NoError(t, err)
	require.True(t, s.Validate())
	return s
}

func Test_ClassIndexBuckets(t *testing.T) {
	require.Equal(t, 0, classIndex(40))
	require.Equal(t, 0, classIndex(56))
	require.Equal(t, 1, classIndex(64))
	require.Equal(t, 1, classIndex(120))
	require.Equal(t, 2, classIndex(128))
	require.Equal(t, 5, classIndex(1024))
	require.Equal(t, 25, classIndex(1<<30))
}

func Test_SegListLayoutMatchesTree(t *testing.T) {
	// Identical region, identical request: both managers produce the
	// same block geometry because they share padding and tag rules.
	s := newTestSegList(t, 32768)
	tr := newTestTree(t, 32768)

	for i := 0; i < 3; i++ {
		sref, sbuf, err := s.Alloc(64)
		require.NoError(t, err)
		tref, tbuf, err := tr.Alloc(64)
		require.NoError(t, err)
		require.Equal(t, tref, sref)
		require.Equal(t, len(tbuf), len(sbuf))
	}
}

func Test_SegListAllocFreeCoalesce(t *testing.T) {
	s := newTestSegList(t, 32768)

	refA, _, err := s.Alloc(64)
	require.NoError(t, err)
	refB, _, err := s.Alloc(64)
	require.NoError(t, err)
	_, _, err = s.Alloc(64) // pin
	require.NoError(t, err)

	require.NoError(t, s.Free(refB))
	require.Equal(t, 2, s.FreeCount())
	require.NoError(t, s.Free(refA))
	require.Equal(t, 2, s.FreeCount())
	require.Equal(t, uint64(216), s.hdr(0).Size())
	require.True(t, s.Validate())
}

func Test_SegListFirstFitAscendsClasses(t *testing.T) {
	s := newTestSegList(t, 32768)

	_, _, err := s.Alloc(64) // pin
	require.NoError(t, err)
	refB, _, err := s.Alloc(200) // 240-byte block, class 2
	require.NoError(t, err)
	_, _, err = s.Alloc(64) // pin
	require.NoError(t, err)
	refD, _, err := s.Alloc(400) // 440-byte block, class 3
	require.NoError(t, err)
	_, _, err = s.Alloc(64) // pin
	require.NoError(t, err)

	require.NoError(t, s.Free(refB))
	require.NoError(t, s.Free(refD))

	// 150 pads to 192, class 2. The 240-byte block is found before the
	// search ever reaches the higher classes.
	ref, _, err := s.Alloc(150)
	require.NoError(t, err)
	require.Equal(t, refB, ref)
	require.True(t, s.Validate())
}

func Test_SegListReallocFailureLeavesRegionUntouched(t *testing.T) {
	s := newTestSegList(t, 1024)

	ref, buf, err := s.Alloc(900)
	require.NoError(t, err)
	fillPattern(buf, 0x99)

	before := make([]byte, len(s.Bytes()))
	copy(before, s.Bytes())

	_, _, err = s.Realloc(ref, 2000)
	require.ErrorIs(t, err, ErrNoSpace)
	require.Equal(t, before, s.Bytes())
	requirePattern(t, buf, 0x99)

	require.NoError(t, s.Free(ref))
	require.Equal(t, 1, s.FreeCount())
	require.True(t, s.Validate())
}

func Test_SegListReallocGrowAndShrink(t *testing.T) {
	s := newTestSegList(t, 8192)

	ref, buf, err := s.Alloc(64)
	require.NoError(t, err)
	fillPattern(buf, 0x42)

	grown, gbuf, err := s.Realloc(ref, 300)
	require.NoError(t, err)
	require.Equal(t, ref, grown)
	requirePattern(t, gbuf[:len(buf)], 0x42)

	shrunk, sbuf, err := s.Realloc(grown, 32)
	require.NoError(t, err)
	require.Equal(t, ref, shrunk)
	requirePattern(t, sbuf, 0x42)
	require.True(t, s.Validate())
}

func Test_SegListResetAndErrors(t *testing.T) {
	s := newTestSegList(t, 4096)

	_, _, err := s.Alloc(0)
	require.ErrorIs(t, err, ErrBadRequest)
	_, _, err = s.Alloc(format.MaxRequest + 1)
	require.ErrorIs(t, err, ErrTooLarge)
	require.ErrorIs(t, s.Free(9), ErrBadRef)
	require.NoError(t, s.Free(NullRef))

	// Null reference and zero size together are a no-op.
	gone, _, err := s.Realloc(NullRef, 0)
	require.NoError(t, err)
	require.Equal(t, NullRef, gone)

	_, _, err = s.Alloc(100)
	require.NoError(t, err)
	require.NoError(t, s.Reset())
	require.Equal(t, 1, s.FreeCount())
	require.True(t, s.Validate())

	_, err = NewSegList(make([]byte, 40))
	require.ErrorIs(t, err, ErrRegionTooSmall)
}

func Test_SegListDumpShowsClasses(t *testing.T) {
	s := newTestSegList(t, 32768)

	refA, _, err := s.Alloc(64)
	require.NoError(t, err)
	_, _, err = s.Alloc(64) // pin
	require.NoError(t, err)
	require.NoError(t, s.Free(refA))

	var buf bytes.Buffer
	s.DumpFreeNodes(&buf, Plain)
	out := buf.String()
	require.Contains(t, out, "class 1: 104")

	buf.Reset()
	s.DumpFreeNodes(&buf, Verbose)
	require.Contains(t, buf.String(), "104@0x0")
}

func Test_SegListCheckDetectsCorruption(t *testing.T) {
	s := newTestSegList(t, 4096)

	refA, _, err := s.Alloc(64)
	require.NoError(t, err)
	_, _, err = s.Alloc(64)
	require.NoError(t, err)
	require.NoError(t, s.Free(refA))
	require.NoError(t, s.Check())

	// Drift the counter.
	s.free++
	require.False(t, s.Validate())
	s.free--

	// Smash the free block's footer, the last word of its payload.
	format.PutHeader(s.Bytes(), 104, format.Encode(8, false, true, false))
	err = s.Check()
	require.Error(t, err)
	var cerr *CheckError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, "scan", cerr.Stage)
}
