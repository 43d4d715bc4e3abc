// Package memory provides an in-process bucketgate.Bucket.
//
// Objects live in a map guarded by a RWMutex and are lost when the process
// exits. It is meant for development and tests.
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sagarc03/bucketgate"
)

type entry struct {
	obj  bucketgate.Object
	data []byte
}

// Bucket is an in-memory bucketgate.Bucket. The zero value is not usable;
// use New.
type Bucket struct {
	mu      sync.RWMutex
	objects map[string]entry
	keys    []string // sorted
	now     func() time.Time
}

// New returns an empty Bucket.
func New() *Bucket {
	return &Bucket{
		objects: make(map[string]entry),
		now:     time.Now,
	}
}

func (b *Bucket) List(ctx context.Context, opts bucketgate.ListOptions) (bucketgate.ListResult, error) {
	result, err := bucketgate.ScanList(ctx, b.scan, opts)
	if err != nil {
		return bucketgate.ListResult{}, fmt.Errorf("memory list: %w", err)
	}
	return result, nil
}

func (b *Bucket) scan(_ context.Context, prefix, after string, n int) ([]bucketgate.Object, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	start := sort.SearchStrings(b.keys, after)
	if start < len(b.keys) && b.keys[start] == after {
		start++
	}
	if prefix > after {
		start = max(start, sort.SearchStrings(b.keys, prefix))
	}

	var out []bucketgate.Object
	for _, key := range b.keys[start:] {
		if !strings.HasPrefix(key, prefix) {
			break
		}
		out = append(out, b.snapshot(b.objects[key]))
		if len(out) == n {
			break
		}
	}
	return out, nil
}

func (b *Bucket) Get(ctx context.Context, key string) (*bucketgate.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("memory get: %w", err)
	}

	b.mu.RLock()
	e, ok := b.objects[key]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("memory get %s: %w", key, bucketgate.ErrNotFound)
	}

	obj := b.snapshot(e)
	obj.Body = io.NopCloser(bytes.NewReader(e.data))
	return &obj, nil
}

func (b *Bucket) Head(ctx context.Context, key string) (*bucketgate.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("memory head: %w", err)
	}

	b.mu.RLock()
	e, ok := b.objects[key]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("memory head %s: %w", key, bucketgate.ErrNotFound)
	}

	obj := b.snapshot(e)
	return &obj, nil
}

// Put reads body fully and replaces any object stored at key.
func (b *Bucket) Put(ctx context.Context, key string, body io.Reader, opts bucketgate.PutOptions) (*bucketgate.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("memory put: %w", err)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("memory put %s: %w", key, err)
	}

	sum := md5.Sum(data)
	obj := bucketgate.Object{
		Key:            key,
		Size:           int64(len(data)),
		Uploaded:       b.now().UTC(),
		ETag:           hex.EncodeToString(sum[:]),
		CustomMetadata: maps.Clone(opts.CustomMetadata),
	}
	if opts.HTTPMetadata != nil {
		obj.HTTPMetadata = *opts.HTTPMetadata
	}

	b.mu.Lock()
	if _, exists := b.objects[key]; !exists {
		i := sort.SearchStrings(b.keys, key)
		b.keys = append(b.keys, "")
		copy(b.keys[i+1:], b.keys[i:])
		b.keys[i] = key
	}
	b.objects[key] = entry{obj: obj, data: data}
	b.mu.Unlock()

	out := b.snapshot(entry{obj: obj})
	return &out, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memory delete: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[key]; !exists {
		return nil
	}
	delete(b.objects, key)

	i := sort.SearchStrings(b.keys, key)
	b.keys = append(b.keys[:i], b.keys[i+1:]...)
	return nil
}

// snapshot copies the record so callers cannot mutate stored state.
func (b *Bucket) snapshot(e entry) bucketgate.Object {
	obj := e.obj
	obj.CustomMetadata = maps.Clone(e.obj.CustomMetadata)
	obj.Writer = obj.HTTPMetadata
	return obj
}
