//go:build linux || darwin

package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_MapSegmentRoundTrip(t *testing.T) {
	seg, err := MapSegment(8192)
	require.NoError(t, err)
	require.Equal(t, 8192, seg.Size())

	buf := seg.Bytes()
	require.Len(t, buf, 8192)

	// Anonymous mappings come back zeroed and writable.
	for _, i := range []int{0, 4095, 8191} {
		require.Equal(t, byte(0), buf[i])
	}
	buf[0] = 0xAB
	buf[8191] = 0xCD
	require.Equal(t, byte(0xAB), seg.Bytes()[0])

	require.NoError(t, seg.Close())
	require.Nil(t, seg.Bytes())
}

func Test_MapSegmentRejectsBadSize(t *testing.T) {
	_, err := MapSegment(0)
	require.Error(t, err)
	_, err = MapSegment(-1)
	require.Error(t, err)
}
