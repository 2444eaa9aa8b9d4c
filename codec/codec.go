// Package codec centralizes per-column sample encodings.
//
// Every column of a shard schema names a codec. Shardstream intentionally
// treats codec selection as a breaking-change boundary: if you change codecs,
// shards written by older codecs may no longer decode.
package codec

import (
	"fmt"
	"sort"
	"sync"
)

// SizeVariable marks a codec whose encoded length depends on the value.
const SizeVariable = -1

// Codec encodes/decodes a single column value.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Encode encodes the value to bytes.
	Encode(v any) ([]byte, error)
	// Decode decodes bytes back to a value of the codec's canonical type.
	Decode(b []byte) (any, error)
	// Size returns the fixed encoded size in bytes, or SizeVariable.
	Size() int
	// Name returns the unique, stable name of the codec.
	Name() string
}

// ErrUnsupportedEncoding indicates a schema names a codec that is not
// registered. It is raised at schema-validation time, never per sample.
type ErrUnsupportedEncoding struct {
	Encoding string
}

func (e *ErrUnsupportedEncoding) Error() string {
	return fmt.Sprintf("unsupported column encoding: %q (registered: %v)", e.Encoding, Names())
}

var (
	mu       sync.RWMutex
	registry = map[string]Codec{}
)

// Register adds a codec to the registry, replacing any codec with the same
// name. New encodings become usable by every writer and reader without
// touching their code.
func Register(c Codec) {
	mu.Lock()
	defer mu.Unlock()
	registry[c.Name()] = c
}

// ByName returns a registered codec by its stable name.
func ByName(name string) (Codec, bool) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := registry[name]
	return c, ok
}

// Names returns the sorted names of all registered codecs.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EncodedSize returns the declared size of the named codec, or an
// ErrUnsupportedEncoding if it is not registered.
func EncodedSize(name string) (int, error) {
	c, ok := ByName(name)
	if !ok {
		return 0, &ErrUnsupportedEncoding{Encoding: name}
	}
	return c.Size(), nil
}

func init() {
	Register(Bytes{})
	Register(Str{})
	Register(Int{})
	Register(UInt32{})
	Register(UInt64{})
	Register(Float32{})
	Register(Float64{})
	Register(JSON{})
}
