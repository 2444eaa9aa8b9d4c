package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/shardstream/shard"
)

func listingWith(counts ...int) *shard.Listing {
	l := &shard.Listing{Version: 1}
	for _, c := range counts {
		l.Shards = append(l.Shards, shard.Descriptor{Samples: c})
	}
	return l
}

func TestFindSample(t *testing.T) {
	x := New(listingWith(4, 1, 3))

	require.EqualValues(t, 8, x.NumSamples())
	require.Equal(t, 3, x.NumShards())
	assert.Equal(t, 4, x.ShardSamples(0))
	assert.Equal(t, 1, x.ShardSamples(1))
	assert.Equal(t, 3, x.ShardSamples(2))

	tests := []struct {
		sampleID int64
		shardID  int
		offset   int
	}{
		{0, 0, 0},
		{3, 0, 3},
		{4, 1, 0},
		{5, 2, 0},
		{7, 2, 2},
	}
	for _, tt := range tests {
		shardID, offset, err := x.FindSample(tt.sampleID)
		require.NoError(t, err)
		assert.Equal(t, tt.shardID, shardID, "sample %d", tt.sampleID)
		assert.Equal(t, tt.offset, offset, "sample %d", tt.sampleID)
	}

	_, _, err := x.FindSample(8)
	require.Error(t, err)
	_, _, err = x.FindSample(-1)
	require.Error(t, err)
}

func TestFindSampleEmptyShard(t *testing.T) {
	// An empty shard in the middle owns no ids; lookups land on its neighbors.
	x := New(listingWith(2, 0, 2))

	shardID, offset, err := x.FindSample(2)
	require.NoError(t, err)
	assert.Equal(t, 2, shardID)
	assert.Equal(t, 0, offset)
}

func TestShardsFor(t *testing.T) {
	x := New(listingWith(4, 4, 4))

	shards := x.ShardsFor([]int64{0, 1, SentinelSampleID, 9, SentinelSampleID, 11})
	assert.Equal(t, []uint32{0, 2}, shards.ToArray())

	assert.True(t, x.ShardsFor([]int64{SentinelSampleID}).IsEmpty())
	assert.True(t, x.ShardsFor(nil).IsEmpty())
}

func TestEmptyListing(t *testing.T) {
	x := New(listingWith())
	assert.EqualValues(t, 0, x.NumSamples())
	assert.Equal(t, 0, x.NumShards())
	_, _, err := x.FindSample(0)
	require.Error(t, err)
}
