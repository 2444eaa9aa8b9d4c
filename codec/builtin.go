package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Bytes is a variable-size passthrough codec for raw byte payloads.
type Bytes struct{}

// Encode returns the byte slice unchanged.
func (Bytes) Encode(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("codec bytes: expected []byte, got %T", v)
	}
	return b, nil
}

// Decode returns the byte slice unchanged.
func (Bytes) Decode(b []byte) (any, error) { return b, nil }

// Size returns SizeVariable.
func (Bytes) Size() int { return SizeVariable }

// Name returns "bytes".
func (Bytes) Name() string { return "bytes" }

// Str is a variable-size UTF-8 string codec.
type Str struct{}

func (Str) Encode(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("codec str: expected string, got %T", v)
	}
	return []byte(s), nil
}

func (Str) Decode(b []byte) (any, error) { return string(b), nil }

func (Str) Size() int { return SizeVariable }

func (Str) Name() string { return "str" }

// Int is a fixed 8-byte signed integer codec (little-endian two's complement).
type Int struct{}

func (Int) Encode(v any) ([]byte, error) {
	i, err := toInt64(v)
	if err != nil {
		return nil, fmt.Errorf("codec int: %w", err)
	}
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(i))
	return b, nil
}

func (Int) Decode(b []byte) (any, error) {
	if len(b) != 8 {
		return nil, fmt.Errorf("codec int: expected 8 bytes, got %d", len(b))
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func (Int) Size() int { return 8 }

func (Int) Name() string { return "int" }

// UInt32 is a fixed 4-byte unsigned integer codec (little-endian).
type UInt32 struct{}

func (UInt32) Encode(v any) ([]byte, error) {
	i, err := toInt64(v)
	if err != nil {
		return nil, fmt.Errorf("codec uint32: %w", err)
	}
	if i < 0 || i > math.MaxUint32 {
		return nil, fmt.Errorf("codec uint32: value %d out of range", i)
	}
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(i))
	return b, nil
}

func (UInt32) Decode(b []byte) (any, error) {
	if len(b) != 4 {
		return nil, fmt.Errorf("codec uint32: expected 4 bytes, got %d", len(b))
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (UInt32) Size() int { return 4 }

func (UInt32) Name() string { return "uint32" }

// UInt64 is a fixed 8-byte unsigned integer codec (little-endian).
type UInt64 struct{}

func (UInt64) Encode(v any) ([]byte, error) {
	var u uint64
	switch x := v.(type) {
	case uint64:
		u = x
	case uint:
		u = uint64(x)
	default:
		i, err := toInt64(v)
		if err != nil {
			return nil, fmt.Errorf("codec uint64: %w", err)
		}
		if i < 0 {
			return nil, fmt.Errorf("codec uint64: value %d out of range", i)
		}
		u = uint64(i)
	}
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, u)
	return b, nil
}

func (UInt64) Decode(b []byte) (any, error) {
	if len(b) != 8 {
		return nil, fmt.Errorf("codec uint64: expected 8 bytes, got %d", len(b))
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (UInt64) Size() int { return 8 }

func (UInt64) Name() string { return "uint64" }

// Float32 is a fixed 4-byte IEEE 754 codec.
type Float32 struct{}

func (Float32) Encode(v any) ([]byte, error) {
	f, ok := v.(float32)
	if !ok {
		return nil, fmt.Errorf("codec float32: expected float32, got %T", v)
	}
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(f))
	return b, nil
}

func (Float32) Decode(b []byte) (any, error) {
	if len(b) != 4 {
		return nil, fmt.Errorf("codec float32: expected 4 bytes, got %d", len(b))
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

func (Float32) Size() int { return 4 }

func (Float32) Name() string { return "float32" }

// Float64 is a fixed 8-byte IEEE 754 codec.
type Float64 struct{}

func (Float64) Encode(v any) ([]byte, error) {
	f, ok := v.(float64)
	if !ok {
		return nil, fmt.Errorf("codec float64: expected float64, got %T", v)
	}
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(f))
	return b, nil
}

func (Float64) Decode(b []byte) (any, error) {
	if len(b) != 8 {
		return nil, fmt.Errorf("codec float64: expected 8 bytes, got %d", len(b))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func (Float64) Size() int { return 8 }

func (Float64) Name() string { return "float64" }

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}
