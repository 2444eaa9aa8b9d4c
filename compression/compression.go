// Package compression provides whole-shard compression codecs.
//
// A compression spec is a name with an optional level, e.g. "zstd", "zstd:7"
// or "lz4:3". Shard files are compressed as a single block at flush time and
// decompressed after download; the codec name is recorded in the shard
// metadata so readers can pick the matching codec.
package compression

import (
	"fmt"
	"strconv"
	"strings"
)

// Codec compresses and decompresses whole shard files.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Compress returns the compressed form of b.
	Compress(b []byte) ([]byte, error)
	// Decompress returns the original bytes for data produced by Compress.
	Decompress(b []byte) ([]byte, error)
	// Spec returns the canonical "name:level" spec of the codec.
	Spec() string
	// Ext returns the filename extension appended to compressed shards.
	Ext() string
}

// ErrUnsupportedCompression indicates an unknown compression spec.
type ErrUnsupportedCompression struct {
	Spec string
}

func (e *ErrUnsupportedCompression) Error() string {
	return fmt.Sprintf("unsupported compression spec: %q", e.Spec)
}

// Parse resolves a compression spec to a codec. An empty spec returns
// (nil, nil), meaning no compression.
func Parse(spec string) (Codec, error) {
	if spec == "" {
		return nil, nil
	}

	name := spec
	level := -1
	if i := strings.IndexByte(spec, ':'); i >= 0 {
		name = spec[:i]
		l, err := strconv.Atoi(spec[i+1:])
		if err != nil {
			return nil, &ErrUnsupportedCompression{Spec: spec}
		}
		level = l
	}

	switch name {
	case "zstd":
		if level < 0 {
			level = defaultZstdLevel
		}
		return newZstd(level)
	case "lz4":
		if level < 0 {
			level = 0
		}
		return newLZ4(level)
	default:
		return nil, &ErrUnsupportedCompression{Spec: spec}
	}
}
