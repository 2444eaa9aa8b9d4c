// Package shardstream streams large datasets that are split into immutable
// binary shards, caching shards locally on demand while consumers iterate
// samples in a possibly-shuffled, worker-partitioned order.
//
// A background prefetcher per worker keeps the local cache ahead of the
// consumer, bounded by a predownload window so prefetching can hide network
// latency without exhausting local disk. Shard downloads are deduplicated
// across all workers of a process, and starting a new epoch cancels the
// previous epoch's prefetcher cooperatively.
//
// # Writing
//
//	w, err := shard.NewWriter(map[string]string{
//	    "caption":      "str",
//	    "content_path": "str",
//	    "duration":     "int",
//	}, func(o *shard.WriterOptions) {
//	    o.LocalDir = "./out"
//	    o.Compression = "zstd:3"
//	    o.Hashes = []string{"sha256", "xxh64"}
//	})
//
// # Reading
//
//	ds, err := shardstream.NewDataset(ctx, "/cache/webvid",
//	    shardstream.WithRemote(remoteStore),
//	    shardstream.WithShuffle(9176),
//	    shardstream.WithPredownload(512),
//	)
//	it, err := ds.Iterate(ctx, worker)
//	for {
//	    sample, ok, err := it.Next(ctx)
//	    ...
//	}
package shardstream
