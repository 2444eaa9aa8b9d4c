package shardstream

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when operating on a closed dataset.
	ErrClosed = errors.New("dataset is closed")

	// ErrNoSideAsset is returned when a side-asset operation runs on a
	// dataset configured with SideAssetNone.
	ErrNoSideAsset = errors.New("no side-asset roots configured")
)

// ErrShardUnavailable indicates a shard could not be made locally available
// after exhausting the transfer retry budget. It is fatal for the requesting
// call.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrShardUnavailable struct {
	ShardID int
	cause   error
}

func (e *ErrShardUnavailable) Error() string {
	return fmt.Sprintf("shard %d unavailable: %v", e.ShardID, e.cause)
}

func (e *ErrShardUnavailable) Unwrap() error { return e.cause }

// ErrSideAsset indicates out-of-shard content could not be fetched or read.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrSideAsset struct {
	Path  string
	cause error
}

func (e *ErrSideAsset) Error() string {
	return fmt.Sprintf("side asset %q: %v", e.Path, e.cause)
}

func (e *ErrSideAsset) Unwrap() error { return e.cause }
