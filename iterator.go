package shardstream

import (
	"context"
	"time"

	"github.com/hupe1980/shardstream/index"
)

// Iterator yields one worker's partition of the dataset in order. It is the
// single writer of the partition's consumption cursor and must not be shared
// across goroutines.
type Iterator struct {
	d     *Dataset
	state *PartitionState
}

// Next yields the next sample of the partition. It returns ok=false once the
// partition is exhausted or its epoch has been stopped. The consumption
// cursor never passes the download cursor: a slot is yielded only after the
// prefetcher has handled it, so the prefetcher stays 0..window samples ahead
// for the whole epoch. Padding slots are skipped without I/O. A shard or
// side-asset failure aborts iteration with the underlying error; no partial
// sample is ever yielded.
func (it *Iterator) Next(ctx context.Context) (map[string]any, bool, error) {
	for {
		// A superseded epoch ends iteration rather than draining its
		// remaining slots.
		if it.state.Stopped() {
			return nil, false, nil
		}

		ci := it.state.ConsumeIndex()
		if ci >= it.state.Total() {
			return nil, false, nil
		}

		// Wait for the prefetcher to clear this slot. The prefetcher advances
		// past failed slots too, so this never waits on a dead transfer; the
		// synchronous retrieval below is the retry path for those.
		if ci >= it.state.DownloadIndex() {
			select {
			case <-time.After(it.d.opts.tick):
			case <-ctx.Done():
				return nil, false, ctx.Err()
			}
			continue
		}

		sampleID := it.state.SampleID(ci)
		if sampleID == index.SentinelSampleID {
			it.state.advanceConsume()
			continue
		}

		sample, err := it.d.Sample(ctx, sampleID)
		if err != nil {
			return nil, false, err
		}
		it.state.advanceConsume()
		return sample, true, nil
	}
}

// State exposes the partition's cursors, mainly for tests and monitoring.
func (it *Iterator) State() *PartitionState {
	return it.state
}
