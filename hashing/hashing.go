// Package hashing provides the named digest algorithms used to validate
// shard files after download.
package hashing

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// ErrUnsupportedHash indicates an unknown hash algorithm name.
type ErrUnsupportedHash struct {
	Algorithm string
}

func (e *ErrUnsupportedHash) Error() string {
	return fmt.Sprintf("unsupported hash algorithm: %q (supported: %v)", e.Algorithm, Names())
}

var algorithms = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"xxh64":  func() hash.Hash { return xxhash.New() },
}

// Names returns the sorted names of all supported algorithms.
func Names() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Supported reports whether the named algorithm is available.
func Supported(name string) bool {
	_, ok := algorithms[name]
	return ok
}

// Sum returns the hex digest of data under the named algorithm.
func Sum(name string, data []byte) (string, error) {
	newHash, ok := algorithms[name]
	if !ok {
		return "", &ErrUnsupportedHash{Algorithm: name}
	}
	h := newHash()
	_, _ = h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Validate checks data against an expected hex digest.
func Validate(name string, data []byte, want string) error {
	got, err := Sum(name, data)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%s digest mismatch: got %s, want %s", name, got, want)
	}
	return nil
}
