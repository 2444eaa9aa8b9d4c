package shardstream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefetchWindowBound(t *testing.T) {
	ctx := context.Background()
	remote := buildRemote(t, 20, "")

	d, err := NewDataset(ctx, t.TempDir(),
		WithRemote(remote),
		WithPredownload(3),
		WithTick(time.Millisecond),
	)
	require.NoError(t, err)
	defer d.Close()

	it, err := d.Iterate(ctx, 0)
	require.NoError(t, err)
	state := it.State()

	// With the consumer idle, the prefetcher runs ahead exactly to the window
	// and then holds.
	require.Eventually(t, func() bool {
		return state.DownloadIndex() == 3
	}, 5*time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 3, state.DownloadIndex(), "prefetcher must hold at the window bound")

	// Consuming reopens the window.
	_, ok, err := it.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		return state.DownloadIndex() == 4
	}, 5*time.Second, time.Millisecond)
}

func TestPrefetchRunsToCompletion(t *testing.T) {
	ctx := context.Background()
	remote := buildRemote(t, 20, "")

	d, err := NewDataset(ctx, t.TempDir(),
		WithRemote(remote),
		WithPredownload(0), // unbounded
		WithTick(time.Millisecond),
	)
	require.NoError(t, err)
	defer d.Close()

	it, err := d.Iterate(ctx, 0)
	require.NoError(t, err)
	state := it.State()

	require.Eventually(t, func() bool {
		return state.DownloadIndex() == state.Total()
	}, 5*time.Second, time.Millisecond)

	// Everything is local now; consumption never blocks on a transfer.
	count := 0
	for {
		_, ok, err := it.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, 20, count)
}

func TestPrefetchStopsOnCancel(t *testing.T) {
	remote := buildRemote(t, 20, "")

	ctx, cancel := context.WithCancel(context.Background())
	d, err := NewDataset(ctx, t.TempDir(),
		WithRemote(remote),
		WithPredownload(1),
		WithTick(time.Millisecond),
	)
	require.NoError(t, err)

	_, err = d.Iterate(ctx, 0)
	require.NoError(t, err)
	cancel()

	done := make(chan struct{})
	go func() {
		_ = d.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return after cancellation")
	}
}

func TestPrefetchStopFlag(t *testing.T) {
	ctx := context.Background()
	remote := buildRemote(t, 20, "")

	d, err := NewDataset(ctx, t.TempDir(),
		WithRemote(remote),
		WithPredownload(2),
		WithTick(time.Millisecond),
	)
	require.NoError(t, err)
	defer d.Close()

	it, err := d.Iterate(ctx, 0)
	require.NoError(t, err)
	state := it.State()

	require.Eventually(t, func() bool {
		return state.DownloadIndex() == 2
	}, 5*time.Second, time.Millisecond)

	state.Stop()
	time.Sleep(20 * time.Millisecond)
	downloaded := state.DownloadIndex()

	// A stopped epoch ends iteration instead of draining its slots, and its
	// prefetcher makes no further progress.
	_, ok, err := it.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, downloaded, state.DownloadIndex())
	assert.EqualValues(t, 0, state.ConsumeIndex())
}

func TestConsumerNeverOvertakesPrefetcher(t *testing.T) {
	ctx := context.Background()
	remote := buildRemote(t, 20, "")

	d, err := NewDataset(ctx, t.TempDir(),
		WithRemote(remote),
		WithPredownload(1),
		WithTick(time.Millisecond),
	)
	require.NoError(t, err)
	defer d.Close()

	it, err := d.Iterate(ctx, 0)
	require.NoError(t, err)
	state := it.State()

	count := 0
	for {
		_, ok, err := it.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
		require.LessOrEqual(t, state.ConsumeIndex(), state.DownloadIndex())
	}
	assert.Equal(t, 20, count)
	assert.EqualValues(t, state.Total(), state.DownloadIndex())
}
