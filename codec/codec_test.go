package codec

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		encoding string
		value    any
	}{
		{"bytes", []byte{0x00, 0x01, 0xff}},
		{"bytes", []byte{}},
		{"str", "hello world"},
		{"str", ""},
		{"str", "héllo wörld ✓"},
		{"int", int64(0)},
		{"int", int64(-1)},
		{"int", int64(1<<62 - 1)},
		{"uint32", uint32(0)},
		{"uint32", uint32(7)},
		{"uint32", uint32(1<<32 - 1)},
		{"uint64", uint64(1 << 63)},
		{"float32", float32(3.25)},
		{"float64", float64(-1e300)},
		{"json", map[string]any{"k": "v", "n": float64(3)}},
	}

	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			c, ok := ByName(tt.encoding)
			require.True(t, ok)

			encoded, err := c.Encode(tt.value)
			require.NoError(t, err)

			decoded, err := c.Decode(encoded)
			require.NoError(t, err)
			require.Equal(t, tt.value, decoded)
		})
	}
}

func TestFixedSizeInvariant(t *testing.T) {
	tests := []struct {
		encoding string
		values   []any
	}{
		{"int", []any{int64(0), int64(-1), int64(123456789)}},
		{"uint32", []any{uint32(0), uint32(1), uint32(1<<32 - 1)}},
		{"uint64", []any{uint64(0), uint64(1 << 40)}},
		{"float32", []any{float32(0), float32(-1.5)}},
		{"float64", []any{float64(0), float64(2.75)}},
	}

	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			c, ok := ByName(tt.encoding)
			require.True(t, ok)
			require.Greater(t, c.Size(), 0)

			for _, v := range tt.values {
				encoded, err := c.Encode(v)
				require.NoError(t, err)
				require.Len(t, encoded, c.Size())
			}
		})
	}
}

func TestIntegerCoercion(t *testing.T) {
	c, ok := ByName("uint32")
	require.True(t, ok)

	encoded, err := c.Encode(7)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 0, 0, 0}, encoded)

	_, err = c.Encode(-1)
	require.Error(t, err)

	_, err = c.Encode(int64(1) << 40)
	require.Error(t, err)

	_, err = c.Encode("7")
	require.Error(t, err)
}

func TestByNameUnknown(t *testing.T) {
	_, ok := ByName("no-such-encoding")
	assert.False(t, ok)

	_, err := EncodedSize("no-such-encoding")
	var unsupported *ErrUnsupportedEncoding
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "no-such-encoding", unsupported.Encoding)
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	require.NotEmpty(t, names)
	assert.True(t, sort.StringsAreSorted(names))
	assert.Contains(t, names, "bytes")
	assert.Contains(t, names, "str")
	assert.Contains(t, names, "int")
}

type upperCodec struct{}

func (upperCodec) Encode(v any) ([]byte, error) { return []byte(v.(string)), nil }
func (upperCodec) Decode(b []byte) (any, error) { return string(b), nil }
func (upperCodec) Size() int                    { return SizeVariable }
func (upperCodec) Name() string                 { return "upper" }

func TestRegisterExtension(t *testing.T) {
	Register(upperCodec{})

	c, ok := ByName("upper")
	require.True(t, ok)
	assert.Equal(t, SizeVariable, c.Size())
}
