package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/hyperjump/bookworm/internal/models"
)

// Save streams src through a zstd encoder into store.
func Save(ctx context.Context, store Store, src io.WriterTo) (int64, error) {
	pr, pw := io.Pipe()
	written := make(chan int64, 1)

	go func() {
		enc, err := zstd.NewWriter(pw)
		if err != nil {
			written <- 0
			pw.CloseWithError(err)
			return
		}
		n, err := src.WriteTo(enc)
		written <- n
		if cerr := enc.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	err := store.Put(ctx, pr)
	// unblock the encoder if Put returned early
	pr.CloseWithError(err)
	n := <-written
	if err != nil {
		return n, fmt.Errorf("save snapshot to %s: %w", store.Location(), err)
	}
	return n, nil
}

// Restore loads the snapshot in store into dst. It reports false, nil when there is no snapshot.
func Restore(ctx context.Context, store Store, dst io.ReaderFrom) (bool, error) {
	rc, err := store.Get(ctx)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer rc.Close()

	dec, err := zstd.NewReader(rc)
	if err != nil {
		return false, fmt.Errorf("open zstd stream: %w", err)
	}
	defer dec.Close()

	if _, err := dst.ReadFrom(dec); err != nil {
		return false, fmt.Errorf("restore snapshot from %s: %w", store.Location(), err)
	}
	return true, nil
}
