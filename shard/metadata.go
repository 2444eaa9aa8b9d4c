// Package shard implements the binary shard format: a writer that buffers
// encoded samples and rolls immutable shard files, and a reader that serves
// random-access sample reads out of them.
//
// # File layout (little-endian)
//
//	offset 0            : uint32 num_samples = N
//	offset 4            : uint32[N+1] offsets (absolute byte positions)
//	offset 4+4(N+1)     : metadata bytes (deterministic JSON, length L)
//	offset 4+4(N+1)+L   : sample[0] bytes ... sample[N-1] bytes
//	file length          = offsets[N]
//
// Each sample is a uint32 size table for the schema's variable-size columns
// (schema order) followed by every column's encoded bytes (schema order).
package shard

import (
	"fmt"

	gojson "github.com/goccy/go-json"
	"github.com/hupe1980/shardstream/codec"
)

// Format identifies the shard file format.
const Format = "sds"

// FormatVersion is bumped on incompatible layout changes.
const FormatVersion = 2

// SizeVariable marks a variable-size column in Metadata.ColumnSizes.
const SizeVariable = codec.SizeVariable

// Metadata is the immutable descriptor embedded verbatim into every shard
// file a writer produces. Field order is fixed, so the goccy/go-json output
// is byte-identical for identical configurations.
type Metadata struct {
	Format          string   `json:"format"`
	Version         int      `json:"version"`
	ColumnNames     []string `json:"column_names"`
	ColumnEncodings []string `json:"column_encodings"`
	ColumnSizes     []int    `json:"column_sizes"`
	Compression     string   `json:"compression"`
	Hashes          []string `json:"hashes"`
	SizeLimit       int64    `json:"size_limit"`
}

func (m *Metadata) marshal() ([]byte, error) {
	return gojson.Marshal(m)
}

func unmarshalMetadata(b []byte) (*Metadata, error) {
	var m Metadata
	if err := gojson.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("shard metadata: %w", err)
	}
	if m.Format != Format {
		return nil, fmt.Errorf("shard metadata: unknown format %q", m.Format)
	}
	if len(m.ColumnNames) != len(m.ColumnEncodings) || len(m.ColumnNames) != len(m.ColumnSizes) {
		return nil, fmt.Errorf("shard metadata: column arrays disagree in length")
	}
	return &m, nil
}

// codecsFor resolves the metadata's encodings against the codec registry.
// Unknown encodings surface here, at open/construction time, never per sample.
func (m *Metadata) codecsFor() ([]codec.Codec, error) {
	codecs := make([]codec.Codec, len(m.ColumnEncodings))
	for i, enc := range m.ColumnEncodings {
		c, ok := codec.ByName(enc)
		if !ok {
			return nil, &codec.ErrUnsupportedEncoding{Encoding: enc}
		}
		codecs[i] = c
	}
	return codecs, nil
}
