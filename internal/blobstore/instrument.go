package blobstore

import (
	"context"
	"errors"
	"time"

	"photo-gallery/internal/metrics"
)

type instrumented struct {
	next Store
}

// Instrument wraps store so that every operation is counted and timed.
func Instrument(store Store) Store {
	return &instrumented{next: store}
}

func (i *instrumented) Backend() string {
	return i.next.Backend()
}

func (i *instrumented) Store(ctx context.Context, data []byte, filename, contentType string) (StoredBlob, error) {
	start := time.Now()
	blob, err := i.next.Store(ctx, data, filename, contentType)
	i.record("store", start, err)
	if err == nil {
		metrics.BlobBytesWritten.WithLabelValues(i.next.Backend()).Add(float64(blob.ByteSize))
	}
	return blob, err
}

func (i *instrumented) Retrieve(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	data, err := i.next.Retrieve(ctx, key)
	i.record("retrieve", start, err)
	return data, err
}

func (i *instrumented) Exists(ctx context.Context, key string) (StoredBlob, error) {
	start := time.Now()
	blob, err := i.next.Exists(ctx, key)
	i.record("stat", start, err)
	return blob, err
}

func (i *instrumented) record(op string, start time.Time, err error) {
	backend := i.next.Backend()
	status := "success"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	metrics.BlobOperationsTotal.WithLabelValues(backend, op, status).Inc()
	metrics.BlobOperationDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}
