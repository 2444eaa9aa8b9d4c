package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"
)

// DownloadOptions controls the transfer of a single blob to the local disk.
type DownloadOptions struct {
	// Retries is the number of re-attempts after the first failed try.
	Retries int
	// Timeout bounds each individual attempt. Zero means no per-attempt bound
	// beyond the caller's context.
	Timeout time.Duration
	// Limiter optionally throttles download throughput (bytes per second).
	// It is typically shared across all downloads of a dataset.
	Limiter *rate.Limiter
}

// DefaultDownloadOptions mirror the defaults of the dataset configuration.
var DefaultDownloadOptions = DownloadOptions{
	Retries: 2,
	Timeout: 60 * time.Second,
}

const downloadChunkSize = 1 << 20

// Download copies the named blob from src to the local path. The write is
// atomic (temp file + rename) and idempotent: if local already exists, no
// transfer happens. Transient failures are retried per the options; the last
// error is returned once the retry budget is exhausted.
func Download(ctx context.Context, src Store, name, local string, optFns ...func(*DownloadOptions)) error {
	opts := DefaultDownloadOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if _, err := os.Stat(local); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(local), 0o750); err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if attempt > 0 {
			// Brief pause between attempts; transient object-store errors
			// usually clear quickly.
			select {
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = downloadOnce(ctx, src, name, local, opts); lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrNotFound) {
			break // retrying cannot create the object
		}
	}
	return fmt.Errorf("download %q after %d attempts: %w", name, opts.Retries+1, lastErr)
}

func downloadOnce(ctx context.Context, src Store, name, local string, opts DownloadOptions) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	blob, err := src.Open(ctx, name)
	if err != nil {
		return err
	}
	defer blob.Close()

	r, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return err
	}
	defer r.Close()

	tmp, err := os.CreateTemp(filepath.Dir(local), "."+filepath.Base(local)+".tmp*")
	if err != nil {
		return err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	buf := make([]byte, downloadChunkSize)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if opts.Limiter != nil {
				if err := opts.Limiter.WaitN(ctx, n); err != nil {
					return err
				}
			}
			if _, werr := tmp.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}

	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), local)
}
