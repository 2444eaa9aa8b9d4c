package shard

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/hupe1980/shardstream/blobstore"
	"github.com/hupe1980/shardstream/codec"
	"github.com/hupe1980/shardstream/compression"
	"github.com/hupe1980/shardstream/hashing"
	"golang.org/x/sync/errgroup"
)

// Per-sample overhead reserved by the buffering policy: one uint32 offset
// table entry per sample. The size table of variable columns is already part
// of the encoded sample itself.
const extraBytesPerSample = 4

// WriterOptions configure a shard Writer.
type WriterOptions struct {
	// LocalDir is the local output dataset directory. If empty, a temp
	// directory is used. When Remote is set, this is where shards are staged
	// before uploading.
	LocalDir string

	// Remote is the optional destination store that finished shard files are
	// uploaded to.
	Remote blobstore.Store

	// KeepLocal keeps the local files after a successful upload.
	KeepLocal bool

	// Compression is an optional compression spec ("zstd", "zstd:7", "lz4:3").
	Compression string

	// Hashes lists digest algorithms applied to every shard artifact and
	// recorded in the listing for later validation.
	Hashes []string

	// SizeLimit is the shard size threshold in bytes after which a new shard
	// is started. Zero puts everything in one shard.
	SizeLimit int64

	// UploadConcurrency bounds parallel uploads during Finish.
	UploadConcurrency int
}

// DefaultWriterOptions are the defaults applied by NewWriter.
var DefaultWriterOptions = WriterOptions{
	SizeLimit:         1 << 26,
	UploadConcurrency: 8,
}

// Writer buffers samples, encodes them per the column schema and rolls
// immutable shard files once the size limit is reached.
//
// Writer is not safe for concurrent use.
type Writer struct {
	opts WriterOptions

	columnNames     []string
	columnEncodings []string
	columnSizes     []int
	codecs          []codec.Codec

	meta        *Metadata
	metaBytes   []byte
	compressor  compression.Codec
	shardEstMin int64 // fixed per-shard overhead: 4 + 4 + len(metaBytes)

	samples    [][]byte
	bufBytes   int64
	shardIndex int
	shards     []Descriptor
	finished   bool
}

// NewWriter creates a Writer for the given column schema (column name to
// encoding name). Every encoding is validated against the codec registry
// here; an unregistered encoding fails construction, never a later Write.
func NewWriter(columns map[string]string, optFns ...func(*WriterOptions)) (*Writer, error) {
	opts := DefaultWriterOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("shard writer: empty column schema")
	}
	if opts.LocalDir == "" {
		dir, err := os.MkdirTemp("", "shardstream-*")
		if err != nil {
			return nil, err
		}
		opts.LocalDir = dir
	}
	if err := os.MkdirAll(opts.LocalDir, 0o750); err != nil {
		return nil, err
	}
	for _, algo := range opts.Hashes {
		if !hashing.Supported(algo) {
			return nil, &hashing.ErrUnsupportedHash{Algorithm: algo}
		}
	}

	compressor, err := compression.Parse(opts.Compression)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	encodings := make([]string, len(names))
	sizes := make([]int, len(names))
	codecs := make([]codec.Codec, len(names))
	for i, name := range names {
		enc := columns[name]
		c, ok := codec.ByName(enc)
		if !ok {
			return nil, &codec.ErrUnsupportedEncoding{Encoding: enc}
		}
		encodings[i] = enc
		sizes[i] = c.Size()
		codecs[i] = c
	}

	compSpec := ""
	if compressor != nil {
		compSpec = compressor.Spec()
	}
	meta := &Metadata{
		Format:          Format,
		Version:         FormatVersion,
		ColumnNames:     names,
		ColumnEncodings: encodings,
		ColumnSizes:     sizes,
		Compression:     compSpec,
		Hashes:          opts.Hashes,
		SizeLimit:       opts.SizeLimit,
	}
	metaBytes, err := meta.marshal()
	if err != nil {
		return nil, err
	}

	return &Writer{
		opts:            opts,
		columnNames:     names,
		columnEncodings: encodings,
		columnSizes:     sizes,
		codecs:          codecs,
		meta:            meta,
		metaBytes:       metaBytes,
		compressor:      compressor,
		shardEstMin:     4 + 4 + int64(len(metaBytes)),
	}, nil
}

// Metadata returns the frozen shard metadata descriptor.
func (w *Writer) Metadata() *Metadata { return w.meta }

// LocalDir returns the local staging directory.
func (w *Writer) LocalDir() string { return w.opts.LocalDir }

// EncodeSample encodes a sample to its on-disk byte string: a uint32 size
// table covering the variable-size columns followed by every column's encoded
// bytes, both in schema order.
func (w *Writer) EncodeSample(sample map[string]any) ([]byte, error) {
	var head []byte
	var body []byte
	for i, name := range w.columnNames {
		value, ok := sample[name]
		if !ok {
			return nil, fmt.Errorf("sample is missing column %q", name)
		}
		datum, err := w.codecs[i].Encode(value)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		if size := w.columnSizes[i]; size == SizeVariable {
			head = binary.LittleEndian.AppendUint32(head, uint32(len(datum)))
		} else if size != len(datum) {
			return nil, &ErrSizeMismatch{
				Column:   name,
				Encoding: w.columnEncodings[i],
				Want:     size,
				Got:      len(datum),
			}
		}
		body = append(body, datum...)
	}
	return append(head, body...), nil
}

// EncodeShard serializes buffered sample byte strings into a single shard
// file image: sample count, absolute offset table, metadata block, bodies.
// The offset table is uint32, so a shard image past 4 GiB is rejected rather
// than written with wrapped offsets.
func (w *Writer) EncodeShard(samples [][]byte) ([]byte, error) {
	n := len(samples)
	total := int64(4 + 4*(n+1) + len(w.metaBytes))
	for _, s := range samples {
		total += int64(len(s))
	}
	if total > math.MaxUint32 {
		return nil, fmt.Errorf("shard image is %d bytes, exceeding the uint32 offset range", total)
	}
	base := uint32(4 + 4*(n+1) + len(w.metaBytes))

	out := make([]byte, 0, int(base))
	out = binary.LittleEndian.AppendUint32(out, uint32(n))

	off := base
	out = binary.LittleEndian.AppendUint32(out, off)
	for _, s := range samples {
		off += uint32(len(s))
		out = binary.LittleEndian.AppendUint32(out, off)
	}

	out = append(out, w.metaBytes...)
	for _, s := range samples {
		out = append(out, s...)
	}
	return out, nil
}

// Write encodes and buffers one sample, rolling a shard file once the
// buffered estimate crosses the size limit.
func (w *Writer) Write(sample map[string]any) error {
	if w.finished {
		return fmt.Errorf("shard writer: write after Finish")
	}

	encoded, err := w.EncodeSample(sample)
	if err != nil {
		return err
	}
	w.samples = append(w.samples, encoded)
	w.bufBytes += int64(len(encoded)) + extraBytesPerSample

	if w.opts.SizeLimit > 0 && w.shardEstMin+w.bufBytes >= w.opts.SizeLimit {
		return w.Flush()
	}
	return nil
}

// Flush writes the buffered samples out as one shard file. A Flush with no
// buffered samples is a no-op.
func (w *Writer) Flush() error {
	if len(w.samples) == 0 {
		return nil
	}

	raw, err := w.EncodeShard(w.samples)
	if err != nil {
		return err
	}
	rawName := fmt.Sprintf("shard.%05d.%s", w.shardIndex, Format)

	desc := Descriptor{
		Samples:  len(w.samples),
		RawName:  rawName,
		RawBytes: int64(len(raw)),
	}
	if desc.RawHashes, err = w.digests(raw); err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(w.opts.LocalDir, rawName), raw, 0o640); err != nil {
		return err
	}

	if w.compressor != nil {
		zip, err := w.compressor.Compress(raw)
		if err != nil {
			return err
		}
		desc.Compression = w.compressor.Spec()
		desc.ZipName = rawName + w.compressor.Ext()
		desc.ZipBytes = int64(len(zip))
		if desc.ZipHashes, err = w.digests(zip); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(w.opts.LocalDir, desc.ZipName), zip, 0o640); err != nil {
			return err
		}
	}

	w.shards = append(w.shards, desc)
	w.shardIndex++
	w.samples = nil
	w.bufBytes = 0
	return nil
}

// Finish flushes the tail shard, writes the dataset listing and, when a
// remote store is configured, uploads every produced file. Local staging
// files are removed after a successful upload unless KeepLocal is set.
func (w *Writer) Finish(ctx context.Context) (*Listing, error) {
	if w.finished {
		return nil, fmt.Errorf("shard writer: Finish called twice")
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	w.finished = true

	listing := &Listing{Version: FormatVersion, Shards: w.shards}
	listingBytes, err := listing.marshal()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(w.opts.LocalDir, ListingName), listingBytes, 0o640); err != nil {
		return nil, err
	}

	if w.opts.Remote != nil {
		if err := w.upload(ctx, listingBytes); err != nil {
			return nil, err
		}
	}
	return listing, nil
}

func (w *Writer) upload(ctx context.Context, listingBytes []byte) error {
	names := make([]string, 0, len(w.shards))
	for _, desc := range w.shards {
		if desc.ZipName != "" {
			// Compressed artifact is the transport form; the raw file stays a
			// local staging product only.
			names = append(names, desc.ZipName)
		} else {
			names = append(names, desc.RawName)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.UploadConcurrency)
	for _, name := range names {
		name := name
		g.Go(func() error {
			data, err := os.ReadFile(filepath.Join(w.opts.LocalDir, name))
			if err != nil {
				return err
			}
			return w.opts.Remote.Put(gctx, name, data)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := w.opts.Remote.Put(ctx, ListingName, listingBytes); err != nil {
		return err
	}

	if !w.opts.KeepLocal {
		return os.RemoveAll(w.opts.LocalDir)
	}
	return nil
}

func (w *Writer) digests(data []byte) (map[string]string, error) {
	if len(w.opts.Hashes) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(w.opts.Hashes))
	for _, algo := range w.opts.Hashes {
		sum, err := hashing.Sum(algo, data)
		if err != nil {
			return nil, err
		}
		out[algo] = sum
	}
	return out, nil
}
