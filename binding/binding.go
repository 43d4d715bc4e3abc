// Package binding opens the stores named in configuration.
//
// Open turns every configured binding into a bucketgate.Bucket and returns
// them as a Set that owns the underlying resources (database connections,
// storage roots). The gateway looks buckets up in Set.Buckets by binding name.
package binding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/sagarc03/bucketgate"
	"github.com/sagarc03/bucketgate/config"
	"github.com/sagarc03/bucketgate/database"
	"github.com/sagarc03/bucketgate/filesystem"
	"github.com/sagarc03/bucketgate/memory"
	"github.com/sagarc03/bucketgate/metrics"
	"github.com/sagarc03/bucketgate/minio"
	"github.com/sagarc03/bucketgate/s3"
)

// Set is the opened binding table.
type Set struct {
	buckets map[string]bucketgate.Bucket
	closers []func() error
}

// Buckets returns the binding table, keyed by lowercase binding name.
func (s *Set) Buckets() map[string]bucketgate.Bucket {
	return s.buckets
}

// Close releases every resource opened by Open, in reverse order.
func (s *Set) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

type options struct {
	metrics    *metrics.Metrics
	httpClient *http.Client
}

// Option configures Open.
type Option func(*options)

// WithMetrics wraps every opened bucket with metrics.InstrumentBucket.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithHTTPClient sets the HTTP client used by s3 and minio bindings.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// Open opens every binding in cfg. On error, bindings opened so far are
// closed.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Set, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	set := &Set{buckets: make(map[string]bucketgate.Bucket, len(cfg.Bindings))}

	for _, name := range cfg.BindingNames() {
		bucket, closer, err := openOne(ctx, cfg.Bindings[name], &o)
		if err != nil {
			_ = set.Close()
			return nil, fmt.Errorf("open binding %q: %w", name, err)
		}
		if closer != nil {
			set.closers = append(set.closers, closer)
		}
		if o.metrics != nil {
			bucket = metrics.InstrumentBucket(o.metrics, name, bucket)
		}
		set.buckets[name] = bucket

		slog.Debug("binding opened", "binding", name, "type", cfg.Bindings[name].Type)
	}

	return set, nil
}

func openOne(ctx context.Context, b config.BindingConfig, o *options) (bucketgate.Bucket, func() error, error) {
	switch b.Type {
	case config.TypeMemory:
		return memory.New(), nil, nil
	case config.TypeFilesystem:
		store, closer, err := OpenStore(ctx, b)
		if err != nil {
			return nil, nil, err
		}
		return store, closer, nil
	case config.TypeS3:
		bucket, err := s3.New(ctx, s3.Config{
			Bucket:       b.S3.Bucket,
			Region:       b.S3.Region,
			Endpoint:     b.S3.Endpoint,
			AccessKey:    b.S3.AccessKey,
			SecretKey:    b.S3.SecretKey,
			UsePathStyle: b.S3.UsePathStyle,
			HTTPClient:   o.httpClient,
		})
		if err != nil {
			return nil, nil, err
		}
		return bucket, nil, nil
	case config.TypeMinio:
		mcfg := minio.Config{
			Endpoint:  b.Minio.Endpoint,
			Bucket:    b.Minio.Bucket,
			Region:    b.Minio.Region,
			AccessKey: b.Minio.AccessKey,
			SecretKey: b.Minio.SecretKey,
			UseSSL:    b.Minio.UseSSL,
		}
		if o.httpClient != nil {
			mcfg.Transport = o.httpClient.Transport
		}
		bucket, err := minio.New(mcfg)
		if err != nil {
			return nil, nil, err
		}
		return bucket, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported binding type: %s", b.Type)
	}
}

// OpenStore opens a filesystem binding: the storage directory (created if
// missing) and its metadata database. The returned func closes both.
func OpenStore(ctx context.Context, b config.BindingConfig) (*bucketgate.StoreBucket, func() error, error) {
	if b.Type != config.TypeFilesystem {
		return nil, nil, fmt.Errorf("binding type %s has no metadata index", b.Type)
	}

	if err := os.MkdirAll(b.Storage.Path, 0o750); err != nil {
		return nil, nil, fmt.Errorf("create storage directory: %w", err)
	}

	root, err := os.OpenRoot(b.Storage.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage root: %w", err)
	}

	db, err := database.Open(ctx, database.Config{
		Type:   b.Database.Type,
		DSN:    b.Database.DSN,
		Tables: bucketgate.Tables{Objects: b.Database.Table},
	}, b.Database.Migrate())
	if err != nil {
		_ = root.Close()
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	store := bucketgate.NewStoreBucket(db.GetRepo(), filesystem.NewFileStorage(root), bucketgate.StoreConfig{})

	closer := func() error {
		return errors.Join(db.Close(), root.Close())
	}

	return store, closer, nil
}
