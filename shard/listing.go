package shard

import (
	gojson "github.com/goccy/go-json"
)

// ListingName is the well-known name of the dataset listing file.
const ListingName = "index.json"

// Descriptor describes one produced shard: its sample count, artifacts and
// their digests. The zip fields are present only when compression is on.
type Descriptor struct {
	Samples     int               `json:"samples"`
	RawName     string            `json:"raw_name"`
	RawBytes    int64             `json:"raw_bytes"`
	RawHashes   map[string]string `json:"raw_hashes,omitempty"`
	Compression string            `json:"compression,omitempty"`
	ZipName     string            `json:"zip_name,omitempty"`
	ZipBytes    int64             `json:"zip_bytes,omitempty"`
	ZipHashes   map[string]string `json:"zip_hashes,omitempty"`
}

// Listing enumerates every shard of a written dataset, in order. Sample ids
// are assigned by this order: shard k holds the ids following the samples of
// shards 0..k-1.
type Listing struct {
	Version int          `json:"version"`
	Shards  []Descriptor `json:"shards"`
}

func (l *Listing) marshal() ([]byte, error) {
	return gojson.Marshal(l)
}

// ParseListing decodes a dataset listing.
func ParseListing(b []byte) (*Listing, error) {
	var l Listing
	if err := gojson.Unmarshal(b, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// NumSamples returns the total sample count across all shards.
func (l *Listing) NumSamples() int {
	total := 0
	for _, desc := range l.Shards {
		total += desc.Samples
	}
	return total
}
