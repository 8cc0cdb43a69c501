package chunk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/chunkvault/pkg/chunk"
)

const mib = 1024 * 1024

func TestCount(t *testing.T) {
	cases := []struct {
		name     string
		size     int64
		partSize int64
		want     int
	}{
		{"exact", 10 * mib, 5 * mib, 2},
		{"short last part", 12 * mib, 5 * mib, 3},
		{"smaller than part", 1, 5 * mib, 1},
		{"one byte over", 5*mib + 1, 5 * mib, 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := chunk.Count(tc.size, tc.partSize)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInvalidSizes(t *testing.T) {
	_, err := chunk.Count(0, 5)
	require.ErrorIs(t, err, chunk.ErrInvalidSize)

	_, err = chunk.Split(10, 0)
	require.ErrorIs(t, err, chunk.ErrInvalidSize)

	_, err = chunk.LastSize(-1, 5)
	require.ErrorIs(t, err, chunk.ErrInvalidSize)
}

func TestSplitCoversFile(t *testing.T) {
	cases := []struct {
		sizes    []int64
		partSize int64
	}{
		{[]int64{1, 7, 4096}, 1},
		{[]int64{1, 7, 4096, 10000}, 3},
		{[]int64{1, 7, 4096, 12 * mib, 15 * mib, 15*mib - 3}, 5 * mib},
	}

	for _, tc := range cases {
		for _, size := range tc.sizes {
			ranges, err := chunk.Split(size, tc.partSize)
			require.NoError(t, err)

			var total int64
			for i, r := range ranges {
				assert.Equal(t, i, r.Index)
				if i < len(ranges)-1 {
					assert.Equal(t, tc.partSize, r.Len())
					assert.Equal(t, ranges[i+1].Start, r.End)
				}
				total += r.Len()
			}

			assert.Equal(t, size, total)

			last, err := chunk.LastSize(size, tc.partSize)
			require.NoError(t, err)
			assert.Equal(t, last, ranges[len(ranges)-1].Len())
		}
	}
}

func TestRangeOf(t *testing.T) {
	r, err := chunk.RangeOf(2, 12*mib, 5*mib)
	require.NoError(t, err)
	assert.Equal(t, int64(10*mib), r.Start)
	assert.Equal(t, int64(12*mib), r.End)
	assert.Equal(t, 3, r.PartNumber())

	_, err = chunk.RangeOf(3, 12*mib, 5*mib)
	require.Error(t, err)
}

func TestBatches(t *testing.T) {
	ranges, err := chunk.Split(7, 1)
	require.NoError(t, err)

	batches := chunk.Batches(ranges, 3)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 3)
	assert.Len(t, batches[1], 3)
	assert.Len(t, batches[2], 1)
	assert.Equal(t, 6, batches[2][0].Index)
}
