package compression

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

const defaultZstdLevel = 3

// zstdCodec wraps shared zstd encoder/decoder instances.
// EncodeAll/DecodeAll on shared instances are safe for concurrent use.
type zstdCodec struct {
	level int
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

func newZstd(level int) (*zstdCodec, error) {
	if level < 1 || level > 22 {
		return nil, &ErrUnsupportedCompression{Spec: fmt.Sprintf("zstd:%d", level)}
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}

	return &zstdCodec{level: level, enc: enc, dec: dec}, nil
}

func (c *zstdCodec) Compress(b []byte) ([]byte, error) {
	return c.enc.EncodeAll(b, make([]byte, 0, len(b)/2)), nil
}

func (c *zstdCodec) Decompress(b []byte) ([]byte, error) {
	return c.dec.DecodeAll(b, nil)
}

func (c *zstdCodec) Spec() string { return fmt.Sprintf("zstd:%d", c.level) }

func (c *zstdCodec) Ext() string { return ".zstd" }
