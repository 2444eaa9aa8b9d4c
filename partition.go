package shardstream

import (
	"math/rand"
	"sync/atomic"

	"github.com/hupe1980/shardstream/index"
)

// PartitionState is the mutable cursor set of one worker's pass over its
// partition. Exactly two actors touch it: the consumer advances the
// consumption cursor, the prefetcher advances the download cursor. Each
// cursor has a single writer; atomics make the cross-goroutine visibility
// explicit.
type PartitionState struct {
	sampleIDs []int64

	download atomic.Int64 // next slot the prefetcher will handle
	consume  atomic.Int64 // next slot the consumer will yield
	stopped  atomic.Bool
}

func newPartitionState(sampleIDs []int64) *PartitionState {
	return &PartitionState{sampleIDs: sampleIDs}
}

// Total returns the number of slots in the partition, padding included.
func (s *PartitionState) Total() int64 {
	return int64(len(s.sampleIDs))
}

// SampleID returns the sample id at the given slot. Padding slots hold
// index.SentinelSampleID.
func (s *PartitionState) SampleID(slot int64) int64 {
	return s.sampleIDs[slot]
}

// DownloadIndex returns the prefetcher's cursor.
func (s *PartitionState) DownloadIndex() int64 {
	return s.download.Load()
}

// ConsumeIndex returns the consumer's cursor.
func (s *PartitionState) ConsumeIndex() int64 {
	return s.consume.Load()
}

// Stop requests cooperative termination of the partition's prefetcher. The
// prefetcher observes the flag at the top of its loop; it may finish one more
// iteration before exiting.
func (s *PartitionState) Stop() {
	s.stopped.Store(true)
}

// Stopped reports whether Stop has been called.
func (s *PartitionState) Stopped() bool {
	return s.stopped.Load()
}

func (s *PartitionState) advanceDownload() {
	s.download.Add(1)
}

func (s *PartitionState) advanceConsume() {
	s.consume.Add(1)
}

// partitionSampleIDs assigns the id space to one worker. Ids are dealt out
// round-robin across workers after the optional epoch shuffle, and every
// partition is padded with sentinels to the same length (and, when a batch
// size is set, to a multiple of it) so workers never fabricate real data to
// stay in step.
func partitionSampleIDs(total int64, numWorkers, worker int, shuffle bool, seed int64, batchSize int) []int64 {
	ids := make([]int64, total)
	for i := range ids {
		ids[i] = int64(i)
	}
	if shuffle {
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(len(ids), func(i, j int) {
			ids[i], ids[j] = ids[j], ids[i]
		})
	}

	perWorker := (total + int64(numWorkers) - 1) / int64(numWorkers)
	if batchSize > 0 {
		bs := int64(batchSize)
		perWorker = (perWorker + bs - 1) / bs * bs
	}

	part := make([]int64, perWorker)
	for slot := range part {
		pos := int64(slot)*int64(numWorkers) + int64(worker)
		if pos < total {
			part[slot] = ids[pos]
		} else {
			part[slot] = index.SentinelSampleID
		}
	}
	return part
}
