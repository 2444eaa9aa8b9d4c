package hashing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumKnownVectors(t *testing.T) {
	tests := []struct {
		algorithm string
		want      string
	}{
		{"md5", "900150983cd24fb0d6963f7d28e17f72"},
		{"sha1", "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{"sha256", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{"xxh64", "44bc2cf5ad770999"},
	}

	for _, tt := range tests {
		t.Run(tt.algorithm, func(t *testing.T) {
			got, err := Sum(tt.algorithm, []byte("abc"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSumUnsupported(t *testing.T) {
	_, err := Sum("crc32", []byte("abc"))
	var unsupported *ErrUnsupportedHash
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "crc32", unsupported.Algorithm)
}

func TestValidate(t *testing.T) {
	data := []byte("some shard bytes")

	sum, err := Sum("sha256", data)
	require.NoError(t, err)

	require.NoError(t, Validate("sha256", data, sum))
	require.Error(t, Validate("sha256", append(data, 0), sum))
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Equal(t, []string{"md5", "sha1", "sha256", "xxh64"}, names)
	for _, name := range names {
		assert.True(t, Supported(name))
	}
	assert.False(t, Supported("whirlpool"))
}
