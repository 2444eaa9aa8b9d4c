package shard

import "fmt"

// ErrSizeMismatch indicates a fixed-size column codec produced output of the
// wrong length. This signals a data/schema bug, never a transient condition;
// the offending sample is rejected outright.
type ErrSizeMismatch struct {
	Column   string
	Encoding string
	Want     int
	Got      int
}

func (e *ErrSizeMismatch) Error() string {
	return fmt.Sprintf("column %q (%s): encoded %d bytes, declared size is %d; was this value typed for the right encoding?",
		e.Column, e.Encoding, e.Got, e.Want)
}

// ErrCorrupt indicates a shard file whose header, offset table or metadata
// block is inconsistent.
type ErrCorrupt struct {
	Path   string
	Reason string
}

func (e *ErrCorrupt) Error() string {
	return fmt.Sprintf("corrupt shard %q: %s", e.Path, e.Reason)
}
