package shardstream

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/shardstream/blobstore"
	"github.com/hupe1980/shardstream/compression"
	"github.com/hupe1980/shardstream/hashing"
	"github.com/hupe1980/shardstream/index"
	"github.com/hupe1980/shardstream/shard"
	"golang.org/x/time/rate"
)

// Dataset streams samples out of a sharded dataset, downloading shards into
// the local cache directory on demand and ahead of demand.
//
// All methods are safe for concurrent use.
type Dataset struct {
	local string
	opts  options

	listing *shard.Listing
	idx     *index.Index
	cache   *shardCache
	// cacheStore writes decompressed shards into the local cache atomically.
	cacheStore *blobstore.LocalStore
	limiter    *rate.Limiter

	readersMu sync.Mutex
	readers   map[int]*shard.Reader

	epochMu sync.Mutex
	// epochs counts completed Iterate calls per worker. Seeding off the
	// per-worker pass number keeps all workers of one pass on the same
	// shuffle, whichever order they call Iterate in.
	epochs map[int]int
	active map[int]*PartitionState
	wg      sync.WaitGroup

	closed atomic.Bool
}

// NewDataset opens a dataset whose shards are cached under the local
// directory. The dataset listing is read locally, or downloaded from the
// remote store on first use.
func NewDataset(ctx context.Context, local string, optFns ...Option) (*Dataset, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.canonicalNodes <= 0 {
		opts.canonicalNodes = opts.numWorkers
	}
	if opts.sideAssetMode != SideAssetNone && (opts.sideLocal == "" || opts.sideRemote == nil) {
		return nil, fmt.Errorf("side-asset mode requires local and remote roots: %w", ErrNoSideAsset)
	}
	if opts.validateHash != "" && !hashing.Supported(opts.validateHash) {
		return nil, &hashing.ErrUnsupportedHash{Algorithm: opts.validateHash}
	}
	if err := os.MkdirAll(local, 0o750); err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if opts.bandwidthLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.bandwidthLimit), int(opts.bandwidthLimit))
	}

	d := &Dataset{
		local:      local,
		opts:       opts,
		cacheStore: blobstore.NewLocalStore(local),
		limiter:    limiter,
		readers:    make(map[int]*shard.Reader),
		epochs:     make(map[int]int),
		active:     make(map[int]*PartitionState),
	}

	listingPath := filepath.Join(local, shard.ListingName)
	if _, err := os.Stat(listingPath); err != nil {
		if opts.remote == nil {
			return nil, fmt.Errorf("dataset listing %q not found and no remote configured: %w", listingPath, err)
		}
		if err := blobstore.Download(ctx, opts.remote, shard.ListingName, listingPath, d.downloadOpts); err != nil {
			return nil, err
		}
	}
	raw, err := os.ReadFile(listingPath)
	if err != nil {
		return nil, err
	}
	if d.listing, err = shard.ParseListing(raw); err != nil {
		return nil, fmt.Errorf("dataset listing %q: %w", listingPath, err)
	}

	d.idx = index.New(d.listing)
	d.cache = newShardCache(len(d.listing.Shards))

	// Shards that survived a previous run are warm already.
	resident := 0
	for i, desc := range d.listing.Shards {
		if _, err := os.Stat(filepath.Join(local, desc.RawName)); err == nil {
			d.cache.markPresent(i)
			resident++
		}
	}
	opts.logger.DebugContext(ctx, "dataset opened",
		"samples", d.idx.NumSamples(),
		"shards", d.idx.NumShards(),
		"resident_shards", resident,
	)

	return d, nil
}

// NumSamples returns the total number of samples in the dataset.
func (d *Dataset) NumSamples() int64 {
	return d.idx.NumSamples()
}

// NumShards returns the number of shards in the dataset.
func (d *Dataset) NumShards() int {
	return d.idx.NumShards()
}

// Sample retrieves one sample by its global id, blocking until its shard is
// locally available. When a side-asset mode is configured, the asset bytes
// are attached under the configured field, fetching them first if they are
// not already local.
func (d *Dataset) Sample(ctx context.Context, sampleID int64) (map[string]any, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}

	sample, err := d.decodeSample(ctx, sampleID)
	if err != nil {
		return nil, err
	}
	if d.opts.sideAssetMode != SideAssetNone {
		if err := d.attachSideAsset(ctx, sample); err != nil {
			return nil, err
		}
	}
	return sample, nil
}

// decodeSample is the base retrieval path, without side-asset attachment.
func (d *Dataset) decodeSample(ctx context.Context, sampleID int64) (map[string]any, error) {
	shardID, offset, err := d.idx.FindSample(sampleID)
	if err != nil {
		return nil, err
	}
	if _, err := d.ensureShard(ctx, shardID, true); err != nil {
		return nil, err
	}
	r, err := d.reader(shardID)
	if err != nil {
		return nil, err
	}
	return r.DecodeSample(offset)
}

// ensureShard guarantees shard locality through the dedup table.
func (d *Dataset) ensureShard(ctx context.Context, shardID int, blocking bool) (bool, error) {
	fetched := false
	ok, err := d.cache.ensure(ctx, shardID, blocking, func(ctx context.Context) error {
		fetched = true
		return d.fetchShard(ctx, shardID)
	})
	d.opts.metrics.OnCacheLookup(!fetched)
	if err != nil {
		return false, &ErrShardUnavailable{ShardID: shardID, cause: err}
	}
	return ok, nil
}

// fetchShard performs the actual transfer of one shard into the local cache.
// Callers go through ensureShard, so at most one fetch per shard runs at a
// time.
func (d *Dataset) fetchShard(ctx context.Context, shardID int) error {
	desc := d.listing.Shards[shardID]
	rawPath := filepath.Join(d.local, desc.RawName)
	if _, err := os.Stat(rawPath); err == nil {
		return nil
	}
	if d.opts.remote == nil {
		return fmt.Errorf("shard %q not in local cache and no remote configured: %w", desc.RawName, blobstore.ErrNotFound)
	}

	start := time.Now()
	err := d.transferShard(ctx, desc, rawPath)
	d.opts.metrics.OnShardDownload(time.Since(start), desc.RawBytes, err)
	d.opts.logger.LogShardDownload(ctx, shardID, desc.RawBytes, time.Since(start), err)
	return err
}

func (d *Dataset) transferShard(ctx context.Context, desc shard.Descriptor, rawPath string) error {
	if desc.ZipName == "" {
		if err := blobstore.Download(ctx, d.opts.remote, desc.RawName, rawPath, d.downloadOpts); err != nil {
			return err
		}
		raw, err := os.ReadFile(rawPath)
		if err != nil {
			return err
		}
		if err := d.validateDigest(raw, desc.RawHashes); err != nil {
			_ = os.Remove(rawPath)
			return err
		}
		return nil
	}

	zipPath := filepath.Join(d.local, desc.ZipName)
	if err := blobstore.Download(ctx, d.opts.remote, desc.ZipName, zipPath, d.downloadOpts); err != nil {
		return err
	}
	zip, err := os.ReadFile(zipPath)
	if err != nil {
		return err
	}
	if err := d.validateDigest(zip, desc.ZipHashes); err != nil {
		_ = os.Remove(zipPath)
		return err
	}

	comp, err := compression.Parse(desc.Compression)
	if err != nil {
		return err
	}
	raw, err := comp.Decompress(zip)
	if err != nil {
		return fmt.Errorf("decompress %q: %w", desc.ZipName, err)
	}
	if err := d.cacheStore.Put(ctx, desc.RawName, raw); err != nil {
		return err
	}
	if !d.opts.keepZip {
		_ = os.Remove(zipPath)
	}
	return nil
}

func (d *Dataset) validateDigest(data []byte, digests map[string]string) error {
	algo := d.opts.validateHash
	if algo == "" {
		return nil
	}
	want, ok := digests[algo]
	if !ok {
		return fmt.Errorf("no recorded %s digest to validate against", algo)
	}
	return hashing.Validate(algo, data, want)
}

func (d *Dataset) downloadOpts(o *blobstore.DownloadOptions) {
	o.Retries = d.opts.downloadRetry
	o.Timeout = d.opts.downloadTimeout
	o.Limiter = d.limiter
}

// reader returns the lazily-opened reader of a locally-present shard.
func (d *Dataset) reader(shardID int) (*shard.Reader, error) {
	d.readersMu.Lock()
	defer d.readersMu.Unlock()

	if r, ok := d.readers[shardID]; ok {
		return r, nil
	}
	r, err := shard.Open(filepath.Join(d.local, d.listing.Shards[shardID].RawName))
	if err != nil {
		return nil, err
	}
	d.readers[shardID] = r
	return r, nil
}

// sideAssetRel extracts the asset's relative path from a decoded sample.
// The same derivation serves both the retrieval path and the prefetcher.
func (d *Dataset) sideAssetRel(sample map[string]any) (string, error) {
	v, ok := sample[d.opts.sidePathColumn]
	if !ok {
		return "", &ErrSideAsset{Path: d.opts.sidePathColumn, cause: fmt.Errorf("sample has no %q column", d.opts.sidePathColumn)}
	}
	rel, ok := v.(string)
	if !ok || rel == "" {
		return "", &ErrSideAsset{Path: d.opts.sidePathColumn, cause: fmt.Errorf("column %q is not a usable path (got %T)", d.opts.sidePathColumn, v)}
	}
	return rel, nil
}

// fetchSideAsset makes the asset locally available. A locally-present asset
// is never re-fetched.
func (d *Dataset) fetchSideAsset(ctx context.Context, rel string) error {
	local := filepath.Join(d.opts.sideLocal, rel)
	if _, err := os.Stat(local); err == nil {
		return nil
	}

	start := time.Now()
	err := blobstore.Download(ctx, d.opts.sideRemote, rel, local, d.downloadOpts)
	var bytes int64
	if err == nil {
		if fi, serr := os.Stat(local); serr == nil {
			bytes = fi.Size()
		}
	}
	d.opts.metrics.OnSideAssetFetch(time.Since(start), bytes, err)
	if err != nil {
		return &ErrSideAsset{Path: rel, cause: err}
	}
	return nil
}

func (d *Dataset) attachSideAsset(ctx context.Context, sample map[string]any) error {
	rel, err := d.sideAssetRel(sample)
	if err != nil {
		return err
	}
	if err := d.fetchSideAsset(ctx, rel); err != nil {
		return err
	}
	content, err := os.ReadFile(filepath.Join(d.opts.sideLocal, rel))
	if err != nil {
		return &ErrSideAsset{Path: rel, cause: err}
	}
	sample[d.opts.sideField] = content
	return nil
}

// Iterate begins a new epoch for the given worker and returns its iterator.
// Any prefetcher still running for that worker's previous epoch is stopped;
// only one epoch per worker is active at a time.
func (d *Dataset) Iterate(ctx context.Context, worker int) (*Iterator, error) {
	if worker < 0 || worker >= d.opts.numWorkers {
		return nil, fmt.Errorf("worker %d out of range [0,%d)", worker, d.opts.numWorkers)
	}

	d.epochMu.Lock()
	// Checked under the lock so a racing Close cannot pass wg.Wait before the
	// new prefetcher is registered.
	if d.closed.Load() {
		d.epochMu.Unlock()
		return nil, ErrClosed
	}
	if prev, ok := d.active[worker]; ok {
		prev.Stop()
	}
	epoch := d.epochs[worker] + 1
	d.epochs[worker] = epoch
	// The shuffle is keyed off the seed, the epoch and the canonical node
	// count so resumed runs reproduce the same order on any topology.
	seed := d.opts.shuffleSeed + int64(epoch)*31 + int64(d.opts.canonicalNodes)
	ids := partitionSampleIDs(d.idx.NumSamples(), d.opts.numWorkers, worker,
		d.opts.shuffle, seed, d.opts.batchSize)
	state := newPartitionState(ids)
	d.active[worker] = state

	d.wg.Add(1)
	go d.prefetchLoop(ctx, state)
	d.epochMu.Unlock()

	logger := d.opts.logger.WithWorker(worker)
	logger.LogEpochStart(ctx, epoch, state.Total())
	logger.DebugContext(ctx, "epoch shard footprint",
		"distinct_shards", d.idx.ShardsFor(ids).GetCardinality(),
	)

	return &Iterator{d: d, state: state}, nil
}

// Close stops all active prefetchers, waits for them to exit and releases
// every open shard reader.
func (d *Dataset) Close() error {
	if d.closed.Swap(true) {
		return nil
	}

	d.epochMu.Lock()
	for _, state := range d.active {
		state.Stop()
	}
	d.epochMu.Unlock()
	d.wg.Wait()

	d.readersMu.Lock()
	defer d.readersMu.Unlock()
	var firstErr error
	for id, r := range d.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(d.readers, id)
	}
	return firstErr
}
