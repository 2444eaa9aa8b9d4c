package shardstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/shardstream/index"
)

func TestPartitionRoundRobin(t *testing.T) {
	p0 := partitionSampleIDs(10, 3, 0, false, 0, 0)
	p1 := partitionSampleIDs(10, 3, 1, false, 0, 0)
	p2 := partitionSampleIDs(10, 3, 2, false, 0, 0)

	assert.Equal(t, []int64{0, 3, 6, 9}, p0)
	assert.Equal(t, []int64{1, 4, 7, index.SentinelSampleID}, p1)
	assert.Equal(t, []int64{2, 5, 8, index.SentinelSampleID}, p2)
}

func TestPartitionEqualLengths(t *testing.T) {
	for _, workers := range []int{1, 2, 3, 4, 7} {
		var lengths []int
		seen := make(map[int64]bool)
		for w := 0; w < workers; w++ {
			p := partitionSampleIDs(23, workers, w, false, 0, 0)
			lengths = append(lengths, len(p))
			for _, id := range p {
				if id == index.SentinelSampleID {
					continue
				}
				require.False(t, seen[id], "sample %d assigned twice (workers=%d)", id, workers)
				seen[id] = true
			}
		}
		for _, l := range lengths {
			assert.Equal(t, lengths[0], l, "workers=%d", workers)
		}
		assert.Len(t, seen, 23, "workers=%d", workers)
	}
}

func TestPartitionBatchRounding(t *testing.T) {
	// 10 samples over 3 workers is 4 per worker; batch size 3 rounds to 6.
	p := partitionSampleIDs(10, 3, 0, false, 0, 3)
	require.Len(t, p, 6)
	assert.Equal(t, []int64{0, 3, 6, 9, index.SentinelSampleID, index.SentinelSampleID}, p)
}

func TestPartitionShuffleDeterminism(t *testing.T) {
	a := partitionSampleIDs(100, 4, 2, true, 42, 0)
	b := partitionSampleIDs(100, 4, 2, true, 42, 0)
	c := partitionSampleIDs(100, 4, 2, true, 43, 0)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, partitionSampleIDs(100, 4, 2, false, 0, 0))
}

func TestPartitionShuffleCoversAll(t *testing.T) {
	seen := make(map[int64]bool)
	for w := 0; w < 4; w++ {
		for _, id := range partitionSampleIDs(100, 4, w, true, 7, 0) {
			if id != index.SentinelSampleID {
				seen[id] = true
			}
		}
	}
	assert.Len(t, seen, 100)
}

func TestPartitionStateCursors(t *testing.T) {
	s := newPartitionState([]int64{5, index.SentinelSampleID, 7})

	require.EqualValues(t, 3, s.Total())
	assert.EqualValues(t, 5, s.SampleID(0))
	assert.EqualValues(t, index.SentinelSampleID, s.SampleID(1))

	assert.EqualValues(t, 0, s.DownloadIndex())
	s.advanceDownload()
	s.advanceDownload()
	assert.EqualValues(t, 2, s.DownloadIndex())

	assert.EqualValues(t, 0, s.ConsumeIndex())
	s.advanceConsume()
	assert.EqualValues(t, 1, s.ConsumeIndex())

	assert.False(t, s.Stopped())
	s.Stop()
	assert.True(t, s.Stopped())
}
