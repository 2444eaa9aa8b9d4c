package shardstream

import (
	"context"
	"time"

	"github.com/hupe1980/shardstream/index"
)

// prefetchLoop downloads the partition's shards in the background while the
// consumer iterates. One loop runs per worker per epoch; it exits when it
// runs out of slots or when a new epoch stops it. Cancellation is cooperative
// only: the flag is observed at the top of each iteration, so the loop may
// complete one more iteration after Stop before exiting.
func (d *Dataset) prefetchLoop(ctx context.Context, state *PartitionState) {
	defer d.wg.Done()

	for {
		// A new epoch has begun; at most one epoch's prefetcher may be
		// active per worker.
		if state.Stopped() {
			return
		}
		if ctx.Err() != nil {
			return
		}

		di := state.DownloadIndex()

		// Out of slots this epoch.
		if di == state.Total() {
			return
		}

		// Window backpressure: when we are far enough ahead of the consumer,
		// idle briefly and re-check. This bounds local disk use.
		if w := d.opts.predownload; w > 0 {
			ahead := di - state.ConsumeIndex()
			d.opts.metrics.OnPrefetchAhead(ahead)
			if ahead >= w {
				select {
				case <-time.After(d.opts.tick):
				case <-ctx.Done():
					return
				}
				continue
			}
		}

		// Padding slots exist only to equalize partition lengths; no I/O.
		sampleID := state.SampleID(di)
		if sampleID == index.SentinelSampleID {
			state.advanceDownload()
			continue
		}

		if err := d.prefetchSample(ctx, sampleID); err != nil {
			if ctx.Err() != nil {
				return
			}
			// The cache entry was reset to absent, so the consumer's
			// synchronous path will retry and surface the final error.
			d.opts.logger.LogPrefetchFailure(ctx, sampleID, err)
		}
		state.advanceDownload()
	}
}

// prefetchSample makes the sample's shard (and, in prefetch-time side-asset
// mode, its side asset) locally available before the consumer needs it.
func (d *Dataset) prefetchSample(ctx context.Context, sampleID int64) error {
	shardID, _, err := d.idx.FindSample(sampleID)
	if err != nil {
		return err
	}
	// Block on the current shard rather than skipping ahead: skipping would
	// decouple effective download order from the partition order the window
	// accounting is defined over. Other workers' loops keep making progress
	// on other shards through the dedup table meanwhile.
	if _, err := d.ensureShard(ctx, shardID, true); err != nil {
		return err
	}

	if d.opts.sideAssetMode == SideAssetPrefetchTime {
		sample, err := d.decodeSample(ctx, sampleID)
		if err != nil {
			return err
		}
		rel, err := d.sideAssetRel(sample)
		if err != nil {
			return err
		}
		return d.fetchSideAsset(ctx, rel)
	}
	return nil
}
