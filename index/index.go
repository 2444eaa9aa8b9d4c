// Package index resolves global sample ids to their owning shard.
//
// Sample ids are assigned densely in shard order: shard k owns the ids
// [start(k), start(k)+samples(k)). The index is immutable once built and safe
// for concurrent use.
package index

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/shardstream/shard"
)

// SentinelSampleID marks a padding slot in a partition: no real sample, no
// I/O. Cursors still advance past it.
const SentinelSampleID = int64(-1)

// Index maps global sample ids to (shard, offset-in-shard).
type Index struct {
	// starts[k] is the id of shard k's first sample; starts has one extra
	// trailing entry equal to the total sample count.
	starts []int64
}

// New builds an index from a dataset listing.
func New(listing *shard.Listing) *Index {
	starts := make([]int64, len(listing.Shards)+1)
	for i, desc := range listing.Shards {
		starts[i+1] = starts[i] + int64(desc.Samples)
	}
	return &Index{starts: starts}
}

// NumSamples returns the total number of samples.
func (x *Index) NumSamples() int64 {
	return x.starts[len(x.starts)-1]
}

// NumShards returns the number of shards.
func (x *Index) NumShards() int {
	return len(x.starts) - 1
}

// FindSample resolves a global sample id to its owning shard and the sample's
// position inside that shard.
func (x *Index) FindSample(sampleID int64) (shardID int, offset int, err error) {
	if sampleID < 0 || sampleID >= x.NumSamples() {
		return 0, 0, fmt.Errorf("sample id %d out of range [0,%d)", sampleID, x.NumSamples())
	}
	// First shard whose end is past the id.
	shardID = sort.Search(x.NumShards(), func(k int) bool {
		return x.starts[k+1] > sampleID
	})
	return shardID, int(sampleID - x.starts[shardID]), nil
}

// ShardSamples returns the sample count of one shard.
func (x *Index) ShardSamples(shardID int) int {
	return int(x.starts[shardID+1] - x.starts[shardID])
}

// ShardsFor returns the set of shards backing the given sample-id sequence.
// Sentinel ids are skipped.
func (x *Index) ShardsFor(sampleIDs []int64) *roaring.Bitmap {
	shards := roaring.New()
	for _, id := range sampleIDs {
		if id == SentinelSampleID {
			continue
		}
		if shardID, _, err := x.FindSample(id); err == nil {
			shards.Add(uint32(shardID))
		}
	}
	return shards
}
