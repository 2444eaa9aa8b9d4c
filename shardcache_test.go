package shardstream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardCacheSingleFetch(t *testing.T) {
	ctx := context.Background()
	cache := newShardCache(4)

	var fetches atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) error {
		fetches.Add(1)
		<-release
		return nil
	}

	const requesters = 8
	var wg sync.WaitGroup
	results := make([]bool, requesters)
	errs := make([]error, requesters)
	for i := 0; i < requesters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.ensure(ctx, 2, true, fetch)
		}(i)
	}

	// Give every requester time to pile up behind the in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, fetches.Load(), "concurrent requesters must share one fetch")
	for i := 0; i < requesters; i++ {
		require.NoError(t, errs[i])
		assert.True(t, results[i])
	}

	// The shard is present now; further calls never fetch.
	ok, err := cache.ensure(ctx, 2, true, fetch)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 1, fetches.Load())
}

func TestShardCacheFailureRetries(t *testing.T) {
	ctx := context.Background()
	cache := newShardCache(1)

	var fetches atomic.Int32
	failing := func(context.Context) error {
		fetches.Add(1)
		return errors.New("network down")
	}

	ok, err := cache.ensure(ctx, 0, true, failing)
	require.Error(t, err)
	assert.False(t, ok)

	// The failed entry was reset, so the next call attempts again.
	ok, err = cache.ensure(ctx, 0, true, func(context.Context) error {
		fetches.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 2, fetches.Load())
}

func TestShardCacheNonBlocking(t *testing.T) {
	ctx := context.Background()
	cache := newShardCache(2)

	// Absent: report without fetching.
	ok, err := cache.ensure(ctx, 0, false, func(context.Context) error {
		t.Fatal("non-blocking call must not fetch")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, ok)

	cache.markPresent(0)
	ok, err = cache.ensure(ctx, 0, false, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	// In-flight elsewhere: report not-yet-present without waiting.
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = cache.ensure(ctx, 1, true, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ok, err = cache.ensure(ctx, 1, false, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	close(release)
}

func TestShardCacheWaiterCanceled(t *testing.T) {
	cache := newShardCache(1)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = cache.ensure(context.Background(), 0, true, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cache.ensure(ctx, 0, true, nil)
	require.ErrorIs(t, err, context.Canceled)
	close(release)
}
