package shard

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/shardstream/codec"
	"github.com/hupe1980/shardstream/internal/mmap"
)

// Reader serves random-access sample reads out of one local shard file.
// The file is mapped, not copied; SampleBytes slices are valid until Close.
//
// Reader is safe for concurrent use once opened.
type Reader struct {
	path    string
	m       *mmap.Mapping
	meta    *Metadata
	codecs  []codec.Codec
	offsets []uint32
	// variable counts how many columns use a variable-size encoding; each
	// sample starts with that many uint32 size-table entries.
	variable int
}

// Open maps the shard file at path and validates its header, offset table
// and embedded metadata.
func Open(path string) (*Reader, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := newReader(path, m)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	return r, nil
}

func newReader(path string, m *mmap.Mapping) (*Reader, error) {
	data := m.Bytes()
	if len(data) < 8 {
		return nil, &ErrCorrupt{Path: path, Reason: "file shorter than header"}
	}

	n := int(binary.LittleEndian.Uint32(data))
	headerLen := 4 + 4*(n+1)
	if len(data) < headerLen {
		return nil, &ErrCorrupt{Path: path, Reason: "offset table truncated"}
	}

	offsets := make([]uint32, n+1)
	for k := range offsets {
		offsets[k] = binary.LittleEndian.Uint32(data[4+4*k:])
	}
	if int64(offsets[n]) != int64(len(data)) {
		return nil, &ErrCorrupt{
			Path:   path,
			Reason: fmt.Sprintf("last offset %d does not match file length %d", offsets[n], len(data)),
		}
	}
	if int(offsets[0]) < headerLen {
		return nil, &ErrCorrupt{Path: path, Reason: "metadata block overlaps offset table"}
	}
	for k := 0; k < n; k++ {
		if offsets[k] > offsets[k+1] {
			return nil, &ErrCorrupt{Path: path, Reason: fmt.Sprintf("offset table not monotonic at %d", k)}
		}
	}

	meta, err := unmarshalMetadata(data[headerLen:offsets[0]])
	if err != nil {
		return nil, &ErrCorrupt{Path: path, Reason: err.Error()}
	}
	codecs, err := meta.codecsFor()
	if err != nil {
		return nil, err
	}

	variable := 0
	for _, size := range meta.ColumnSizes {
		if size == SizeVariable {
			variable++
		}
	}

	return &Reader{
		path:     path,
		m:        m,
		meta:     meta,
		codecs:   codecs,
		offsets:  offsets,
		variable: variable,
	}, nil
}

// Metadata returns the shard's embedded metadata descriptor.
func (r *Reader) Metadata() *Metadata { return r.meta }

// NumSamples returns the number of samples in the shard.
func (r *Reader) NumSamples() int { return len(r.offsets) - 1 }

// SampleBytes returns the raw encoded bytes of sample k, resolved through the
// offset table without touching any other sample.
func (r *Reader) SampleBytes(k int) ([]byte, error) {
	if k < 0 || k >= r.NumSamples() {
		return nil, fmt.Errorf("sample %d out of range [0,%d)", k, r.NumSamples())
	}
	return r.m.Bytes()[r.offsets[k]:r.offsets[k+1]], nil
}

// DecodeSample decodes sample k to a column name to value mapping.
func (r *Reader) DecodeSample(k int) (map[string]any, error) {
	raw, err := r.SampleBytes(k)
	if err != nil {
		return nil, err
	}

	tableLen := 4 * r.variable
	if len(raw) < tableLen {
		return nil, &ErrCorrupt{Path: r.path, Reason: fmt.Sprintf("sample %d shorter than its size table", k)}
	}
	table := raw[:tableLen]
	body := raw[tableLen:]

	sample := make(map[string]any, len(r.meta.ColumnNames))
	vi := 0
	pos := 0
	for i, name := range r.meta.ColumnNames {
		size := r.meta.ColumnSizes[i]
		if size == SizeVariable {
			size = int(binary.LittleEndian.Uint32(table[4*vi:]))
			vi++
		}
		if pos+size > len(body) {
			return nil, &ErrCorrupt{Path: r.path, Reason: fmt.Sprintf("sample %d column %q overruns sample bytes", k, name)}
		}
		value, err := r.codecs[i].Decode(body[pos : pos+size])
		if err != nil {
			return nil, fmt.Errorf("sample %d column %q: %w", k, name, err)
		}
		sample[name] = value
		pos += size
	}
	return sample, nil
}

// Close unmaps the shard file.
func (r *Reader) Close() error {
	return r.m.Close()
}
