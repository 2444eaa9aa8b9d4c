package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		spec     string
		wantSpec string
		wantExt  string
	}{
		{"zstd", "zstd:3", ".zstd"},
		{"zstd:7", "zstd:7", ".zstd"},
		{"lz4", "lz4:0", ".lz4"},
		{"lz4:9", "lz4:9", ".lz4"},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			c, err := Parse(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSpec, c.Spec())
			assert.Equal(t, tt.wantExt, c.Ext())
		})
	}
}

func TestParseNone(t *testing.T) {
	c, err := Parse("")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestParseUnsupported(t *testing.T) {
	for _, spec := range []string{"snappy", "zstd:99", "lz4:17", "zstd:x"} {
		t.Run(spec, func(t *testing.T) {
			_, err := Parse(spec)
			var unsupported *ErrUnsupportedCompression
			require.ErrorAs(t, err, &unsupported)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("shardstream compresses whole shards. "), 1000)

	for _, spec := range []string{"zstd", "zstd:11", "lz4", "lz4:5"} {
		t.Run(spec, func(t *testing.T) {
			c, err := Parse(spec)
			require.NoError(t, err)

			zipped, err := c.Compress(payload)
			require.NoError(t, err)
			assert.Less(t, len(zipped), len(payload))

			unzipped, err := c.Decompress(zipped)
			require.NoError(t, err)
			assert.Equal(t, payload, unzipped)
		})
	}
}

func TestRoundTripEmpty(t *testing.T) {
	for _, spec := range []string{"zstd", "lz4"} {
		c, err := Parse(spec)
		require.NoError(t, err)

		zipped, err := c.Compress(nil)
		require.NoError(t, err)

		unzipped, err := c.Decompress(zipped)
		require.NoError(t, err)
		assert.Empty(t, unzipped)
	}
}
