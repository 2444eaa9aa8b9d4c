package shardstream

import (
	"context"
	"sync"
)

type shardStatus uint8

const (
	shardAbsent shardStatus = iota
	shardFetching
	shardPresent
)

type shardEntry struct {
	status shardStatus
	// done is closed when the in-flight fetch finishes, success or not.
	done chan struct{}
}

// shardCache tracks, per shard id, whether a local copy exists or is being
// fetched. One table, one lock; the lock guards status transitions only and
// is never held across a network transfer. The fetching marker is what makes
// concurrent requesters for the same shard wait instead of re-downloading.
//
// The table is owned by the dataset instance, not shared process-globally, so
// independent datasets in one process keep unrelated cache state apart.
type shardCache struct {
	mu      sync.Mutex
	entries []shardEntry
}

func newShardCache(numShards int) *shardCache {
	return &shardCache{
		entries: make([]shardEntry, numShards),
	}
}

// markPresent records shards that were found locally at startup.
func (c *shardCache) markPresent(shardID int) {
	c.mu.Lock()
	c.entries[shardID].status = shardPresent
	c.mu.Unlock()
}

// ensure returns once the shard is confirmed locally present (blocking mode)
// or immediately reports current presence (non-blocking mode). At most one
// fetch per shard is in flight at any time; losers of the race wait on the
// winner's done channel and re-check. A failed fetch resets the entry to
// absent so a later call retries, and the fetch error propagates to the
// caller that owned the attempt.
func (c *shardCache) ensure(ctx context.Context, shardID int, blocking bool, fetch func(context.Context) error) (bool, error) {
	for {
		c.mu.Lock()

		switch c.entries[shardID].status {
		case shardPresent:
			c.mu.Unlock()
			return true, nil

		case shardFetching:
			done := c.entries[shardID].done
			c.mu.Unlock()
			if !blocking {
				return false, nil
			}
			select {
			case <-done:
				// Re-check: the fetch may have failed.
			case <-ctx.Done():
				return false, ctx.Err()
			}

		case shardAbsent:
			if !blocking {
				c.mu.Unlock()
				return false, nil
			}
			done := make(chan struct{})
			c.entries[shardID].status = shardFetching
			c.entries[shardID].done = done
			c.mu.Unlock()

			err := fetch(ctx)

			c.mu.Lock()
			if err != nil {
				c.entries[shardID].status = shardAbsent
			} else {
				c.entries[shardID].status = shardPresent
			}
			c.entries[shardID].done = nil
			c.mu.Unlock()
			close(done)

			if err != nil {
				return false, err
			}
			return true, nil
		}
	}
}
