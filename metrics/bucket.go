package metrics

import (
	"context"
	"io"
	"time"

	"github.com/sagarc03/bucketgate"
)

// Bucket wraps a bucketgate.Bucket and records every call.
type Bucket struct {
	next    bucketgate.Bucket
	metrics *Metrics
	binding string
}

// InstrumentBucket returns bucket wrapped so that each operation is counted
// and timed under the binding label.
func InstrumentBucket(m *Metrics, binding string, bucket bucketgate.Bucket) *Bucket {
	return &Bucket{next: bucket, metrics: m, binding: binding}
}

func (b *Bucket) observe(operation string, start time.Time, err error) {
	b.metrics.Observe(b.binding, operation, err, time.Since(start))
}

func (b *Bucket) List(ctx context.Context, opts bucketgate.ListOptions) (bucketgate.ListResult, error) {
	start := time.Now()
	result, err := b.next.List(ctx, opts)
	b.observe("list", start, err)
	return result, err
}

// Get records the time to open the object, not to stream its body.
func (b *Bucket) Get(ctx context.Context, key string) (*bucketgate.Object, error) {
	start := time.Now()
	obj, err := b.next.Get(ctx, key)
	b.observe("get", start, err)
	return obj, err
}

func (b *Bucket) Head(ctx context.Context, key string) (*bucketgate.Object, error) {
	start := time.Now()
	obj, err := b.next.Head(ctx, key)
	b.observe("head", start, err)
	return obj, err
}

func (b *Bucket) Put(ctx context.Context, key string, body io.Reader, opts bucketgate.PutOptions) (*bucketgate.Object, error) {
	start := time.Now()
	obj, err := b.next.Put(ctx, key, body, opts)
	b.observe("put", start, err)
	return obj, err
}

func (b *Bucket) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := b.next.Delete(ctx, key)
	b.observe("delete", start, err)
	return err
}

// Unwrap returns the instrumented bucket.
func (b *Bucket) Unwrap() bucketgate.Bucket {
	return b.next
}
