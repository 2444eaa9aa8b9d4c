package shardstream

import "time"

// MetricsObserver defines the interface for observing dataset events.
type MetricsObserver interface {
	// OnShardDownload is called when a shard download completes.
	OnShardDownload(duration time.Duration, bytes int64, err error)

	// OnCacheLookup is called on every shard locality check.
	OnCacheLookup(hit bool)

	// OnSideAssetFetch is called when a side-asset transfer completes.
	OnSideAssetFetch(duration time.Duration, bytes int64, err error)

	// OnPrefetchAhead reports how far the download cursor is ahead of the
	// consumption cursor.
	OnPrefetchAhead(samples int64)
}

// NoopMetricsObserver is a no-op implementation of MetricsObserver.
type NoopMetricsObserver struct{}

func (o *NoopMetricsObserver) OnShardDownload(duration time.Duration, bytes int64, err error) {}
func (o *NoopMetricsObserver) OnCacheLookup(hit bool)                                         {}
func (o *NoopMetricsObserver) OnSideAssetFetch(duration time.Duration, bytes int64, err error) {
}
func (o *NoopMetricsObserver) OnPrefetchAhead(samples int64) {}
