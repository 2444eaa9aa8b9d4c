package blobstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// flakyStore fails the first failures Open calls, then delegates.
type flakyStore struct {
	Store
	failures int32
	opens    atomic.Int32
}

func (s *flakyStore) Open(ctx context.Context, name string) (Blob, error) {
	n := s.opens.Add(1)
	if n <= s.failures {
		return nil, errors.New("transient backend error")
	}
	return s.Store.Open(ctx, name)
}

func TestDownload(t *testing.T) {
	ctx := context.Background()
	src := NewMemoryStore()
	payload := []byte("shard payload")
	require.NoError(t, src.Put(ctx, "shard.00000.sds", payload))

	local := filepath.Join(t.TempDir(), "cache", "shard.00000.sds")
	require.NoError(t, Download(ctx, src, "shard.00000.sds", local))

	got, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDownloadIdempotent(t *testing.T) {
	ctx := context.Background()
	src := NewMemoryStore()
	require.NoError(t, src.Put(ctx, "x", []byte("remote")))

	store := &flakyStore{Store: src}
	local := filepath.Join(t.TempDir(), "x")
	require.NoError(t, os.WriteFile(local, []byte("already here"), 0o640))

	require.NoError(t, Download(ctx, store, "x", local))
	assert.EqualValues(t, 0, store.opens.Load(), "existing file must not trigger a transfer")

	got, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, []byte("already here"), got)
}

func TestDownloadRetries(t *testing.T) {
	ctx := context.Background()
	src := NewMemoryStore()
	require.NoError(t, src.Put(ctx, "x", []byte("eventually")))

	store := &flakyStore{Store: src, failures: 2}
	local := filepath.Join(t.TempDir(), "x")

	require.NoError(t, Download(ctx, store, "x", local, func(o *DownloadOptions) {
		o.Retries = 2
	}))
	assert.EqualValues(t, 3, store.opens.Load())

	got, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, []byte("eventually"), got)
}

func TestDownloadRetryBudgetExhausted(t *testing.T) {
	ctx := context.Background()
	src := NewMemoryStore()
	require.NoError(t, src.Put(ctx, "x", []byte("never")))

	store := &flakyStore{Store: src, failures: 10}
	local := filepath.Join(t.TempDir(), "x")

	err := Download(ctx, store, "x", local, func(o *DownloadOptions) {
		o.Retries = 1
	})
	require.Error(t, err)
	assert.EqualValues(t, 2, store.opens.Load())

	_, err = os.Stat(local)
	assert.True(t, os.IsNotExist(err), "failed download must leave no partial file")
}

func TestDownloadNotFoundDoesNotRetry(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: NewMemoryStore()}
	local := filepath.Join(t.TempDir(), "missing")

	err := Download(ctx, store, "missing", local, func(o *DownloadOptions) {
		o.Retries = 5
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.EqualValues(t, 1, store.opens.Load())
}

func TestDownloadWithLimiter(t *testing.T) {
	ctx := context.Background()
	src := NewMemoryStore()
	payload := make([]byte, 4096)
	require.NoError(t, src.Put(ctx, "x", payload))

	local := filepath.Join(t.TempDir(), "x")
	limiter := rate.NewLimiter(rate.Limit(1<<30), 1<<20)
	require.NoError(t, Download(ctx, src, "x", local, func(o *DownloadOptions) {
		o.Limiter = limiter
	}))

	got, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDownloadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewMemoryStore()
	require.NoError(t, src.Put(context.Background(), "x", []byte("data")))

	local := filepath.Join(t.TempDir(), "x")
	err := Download(ctx, src, "x", local)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
