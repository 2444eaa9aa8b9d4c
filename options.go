package shardstream

import (
	"time"

	"github.com/hupe1980/shardstream/blobstore"
)

// SideAssetMode selects how out-of-shard content is fetched. The mode is a
// closed set chosen at configuration time; the retrieval pipeline itself is
// shared by all three.
type SideAssetMode uint8

const (
	// SideAssetNone disables side-asset handling entirely.
	SideAssetNone SideAssetMode = iota
	// SideAssetAccessTime fetches a sample's side asset synchronously during
	// retrieval if it is not already local. Simpler, but cache misses add
	// fetch latency to the consumer's critical path.
	SideAssetAccessTime
	// SideAssetPrefetchTime additionally fetches side assets from the
	// background prefetcher, so retrieval almost always finds them local.
	SideAssetPrefetchTime
)

type options struct {
	remote          blobstore.Store
	keepZip         bool
	validateHash    string
	downloadRetry   int
	downloadTimeout time.Duration
	bandwidthLimit  int64

	shuffle     bool
	shuffleSeed int64

	predownload    int64
	tick           time.Duration
	numWorkers     int
	canonicalNodes int
	batchSize      int

	sideAssetMode  SideAssetMode
	sideLocal      string
	sideRemote     blobstore.Store
	sidePathColumn string
	sideField      string

	logger  *Logger
	metrics MetricsObserver
}

func defaultOptions() options {
	return options{
		downloadRetry:   2,
		downloadTimeout: 60 * time.Second,
		shuffleSeed:     9176,
		predownload:     100_000,
		tick:            70 * time.Millisecond,
		numWorkers:      1,
		sidePathColumn:  "content_path",
		sideField:       "content",
		logger:          NoopLogger(),
		metrics:         &NoopMetricsObserver{},
	}
}

// Option configures dataset construction behavior.
type Option func(*options)

// WithRemote sets the remote store that shards (and the dataset listing) are
// downloaded from. Without a remote, the full dataset must already exist in
// the local cache directory.
func WithRemote(store blobstore.Store) Option {
	return func(o *options) {
		o.remote = store
	}
}

// WithKeepZip keeps the compressed artifact next to the decompressed shard
// after download instead of deleting it.
func WithKeepZip(keep bool) Option {
	return func(o *options) {
		o.keepZip = keep
	}
}

// WithValidateHash enables digest validation of downloaded shard artifacts
// with the named algorithm (which must appear in the writer's hash list).
func WithValidateHash(algorithm string) Option {
	return func(o *options) {
		o.validateHash = algorithm
	}
}

// WithDownloadRetry sets the number of download re-attempts before giving up.
func WithDownloadRetry(retries int) Option {
	return func(o *options) {
		o.downloadRetry = retries
	}
}

// WithDownloadTimeout bounds each individual download attempt.
func WithDownloadTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.downloadTimeout = timeout
	}
}

// WithBandwidthLimit throttles aggregate download throughput to the given
// bytes per second. Zero means unlimited.
func WithBandwidthLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.bandwidthLimit = bytesPerSec
	}
}

// WithShuffle iterates the samples in a deterministic pseudo-random order
// derived from the seed and the epoch.
func WithShuffle(seed int64) Option {
	return func(o *options) {
		o.shuffle = true
		o.shuffleSeed = seed
	}
}

// WithPredownload caps how many samples the prefetcher may run ahead of the
// consumer. This is the backpressure bound on local disk use. Zero means
// unbounded.
func WithPredownload(window int64) Option {
	return func(o *options) {
		o.predownload = window
	}
}

// WithTick sets the prefetcher's polling interval, used when the predownload
// window is full and when observing epoch cancellation.
func WithTick(tick time.Duration) Option {
	return func(o *options) {
		if tick > 0 {
			o.tick = tick
		}
	}
}

// WithNumWorkers partitions the sample space across this many workers.
// Short partitions are padded with sentinel slots so all workers iterate the
// same number of steps.
func WithNumWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.numWorkers = n
		}
	}
}

// WithNumCanonicalNodes fixes the canonical node count used to key the
// shuffle, so resumed runs shuffle identically regardless of current
// topology. Defaults to the current worker count.
func WithNumCanonicalNodes(n int) Option {
	return func(o *options) {
		o.canonicalNodes = n
	}
}

// WithBatchSize rounds each worker partition up to a multiple of the batch
// size using sentinel padding. It affects partitioning only.
func WithBatchSize(n int) Option {
	return func(o *options) {
		o.batchSize = n
	}
}

// WithSideAssets configures out-of-shard content handling: the mode, the
// local cache root and the remote store side assets are fetched from.
func WithSideAssets(mode SideAssetMode, local string, remote blobstore.Store) Option {
	return func(o *options) {
		o.sideAssetMode = mode
		o.sideLocal = local
		o.sideRemote = remote
	}
}

// WithSideAssetColumns overrides the decoded column that holds the asset's
// relative path and the field the fetched bytes are attached under.
func WithSideAssetColumns(pathColumn, contentField string) Option {
	return func(o *options) {
		if pathColumn != "" {
			o.sidePathColumn = pathColumn
		}
		if contentField != "" {
			o.sideField = contentField
		}
	}
}

// WithLogger sets the structured logger. Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithMetricsObserver sets a metrics observer for monitoring operations.
// Pass nil to disable metrics collection.
func WithMetricsObserver(metrics MetricsObserver) Option {
	return func(o *options) {
		if metrics == nil {
			metrics = &NoopMetricsObserver{}
		}
		o.metrics = metrics
	}
}
