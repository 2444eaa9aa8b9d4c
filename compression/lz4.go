package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// lz4Codec compresses shards with the lz4 frame format.
type lz4Codec struct {
	level lz4.CompressionLevel
	spec  string
}

func newLZ4(level int) (*lz4Codec, error) {
	var cl lz4.CompressionLevel
	switch level {
	case 0:
		cl = lz4.Fast
	case 1:
		cl = lz4.Level1
	case 2:
		cl = lz4.Level2
	case 3:
		cl = lz4.Level3
	case 4:
		cl = lz4.Level4
	case 5:
		cl = lz4.Level5
	case 6:
		cl = lz4.Level6
	case 7:
		cl = lz4.Level7
	case 8:
		cl = lz4.Level8
	case 9:
		cl = lz4.Level9
	default:
		return nil, &ErrUnsupportedCompression{Spec: fmt.Sprintf("lz4:%d", level)}
	}
	return &lz4Codec{level: cl, spec: fmt.Sprintf("lz4:%d", level)}, nil
}

func (c *lz4Codec) Compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if err := w.Apply(lz4.CompressionLevelOption(c.level)); err != nil {
		return nil, err
	}
	if _, err := w.Write(b); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *lz4Codec) Decompress(b []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(b)))
}

func (c *lz4Codec) Spec() string { return c.spec }

func (c *lz4Codec) Ext() string { return ".lz4" }
