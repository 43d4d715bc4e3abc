// Package minio implements bucketgate.Bucket on MinIO and other
// S3-compatible servers through minio-go.
//
// Listings are built by bucketgate.ScanList over a recursive ListObjects
// scan, so any delimiter works and cursors are the gateway's own.
package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sagarc03/bucketgate"
)

// Config describes how to reach one MinIO bucket.
type Config struct {
	Endpoint  string // host[:port], without scheme
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool

	// Transport overrides the client's HTTP transport.
	Transport http.RoundTripper
}

// Bucket is a bucketgate.Bucket backed by one MinIO bucket.
type Bucket struct {
	client *miniogo.Client
	bucket string
}

// New connects a minio-go client and returns a Bucket over cfg.Bucket.
func New(cfg Config) (*Bucket, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("new minio bucket: endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("new minio bucket: bucket name is required")
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("new minio bucket: %w", err)
	}

	return NewWithClient(client, cfg.Bucket), nil
}

// NewWithClient returns a Bucket using an existing client.
func NewWithClient(client *miniogo.Client, bucket string) *Bucket {
	return &Bucket{client: client, bucket: bucket}
}

func (b *Bucket) List(ctx context.Context, opts bucketgate.ListOptions) (bucketgate.ListResult, error) {
	result, err := bucketgate.ScanList(ctx, b.scan, opts)
	if err != nil {
		return bucketgate.ListResult{}, fmt.Errorf("list objects: %w", err)
	}
	return result, nil
}

func (b *Bucket) scan(ctx context.Context, prefix, after string, n int) ([]bucketgate.Object, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	items := make([]bucketgate.Object, 0, min(n, bucketgate.MaxListLimit+1))
	for info := range b.client.ListObjects(ctx, b.bucket, miniogo.ListObjectsOptions{
		Prefix:     prefix,
		StartAfter: after,
		Recursive:  true,
		MaxKeys:    n,
	}) {
		if info.Err != nil {
			return nil, mapError("scan", info.Err)
		}

		items = append(items, bucketgate.Object{
			Key:      info.Key,
			Size:     info.Size,
			ETag:     info.ETag,
			Uploaded: info.LastModified,
		})
		if len(items) >= n {
			break
		}
	}

	return items, nil
}

// Get retrieves the object at key. The caller must close Body.
func (b *Bucket) Get(ctx context.Context, key string) (*bucketgate.Object, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, mapError("get object", err)
	}

	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, mapError("get object", err)
	}

	result := fromInfo(info)
	result.Body = obj
	return result, nil
}

// Head retrieves the object record at key.
func (b *Bucket) Head(ctx context.Context, key string) (*bucketgate.Object, error) {
	info, err := b.client.StatObject(ctx, b.bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, mapError("head object", err)
	}

	return fromInfo(info), nil
}

// Put uploads body to key. A body of unknown size (opts.Size < 0) is sent as
// a multipart upload.
func (b *Bucket) Put(ctx context.Context, key string, body io.Reader, opts bucketgate.PutOptions) (*bucketgate.Object, error) {
	if key == "" {
		return nil, fmt.Errorf("put object: %w", bucketgate.ErrInvalidInput)
	}

	putOpts := miniogo.PutObjectOptions{UserMetadata: opts.CustomMetadata}

	var meta bucketgate.HTTPMetadata
	if opts.HTTPMetadata != nil {
		meta = *opts.HTTPMetadata
		putOpts.ContentType = meta.ContentType
		putOpts.ContentLanguage = meta.ContentLanguage
		putOpts.ContentDisposition = meta.ContentDisposition
		putOpts.CacheControl = meta.CacheControl
		putOpts.ContentEncoding = meta.ContentEncoding
	}

	info, err := b.client.PutObject(ctx, b.bucket, key, body, opts.Size, putOpts)
	if err != nil {
		return nil, mapError("put object "+key, err)
	}

	uploaded := info.LastModified
	if uploaded.IsZero() {
		uploaded = time.Now().UTC()
	}

	return &bucketgate.Object{
		Key:            key,
		Size:           info.Size,
		ETag:           info.ETag,
		Uploaded:       uploaded,
		HTTPMetadata:   meta,
		CustomMetadata: opts.CustomMetadata,
		Writer:         meta,
	}, nil
}

// Delete removes the object at key. Missing keys are not an error.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	err := b.client.RemoveObject(ctx, b.bucket, key, miniogo.RemoveObjectOptions{})
	if err != nil {
		err = mapError("delete object", err)
		if errors.Is(err, bucketgate.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

func fromInfo(info miniogo.ObjectInfo) *bucketgate.Object {
	meta := bucketgate.HTTPMetadata{
		ContentType:        info.ContentType,
		ContentLanguage:    info.Metadata.Get("Content-Language"),
		ContentDisposition: info.Metadata.Get("Content-Disposition"),
		CacheControl:       info.Metadata.Get("Cache-Control"),
		ContentEncoding:    info.Metadata.Get("Content-Encoding"),
	}

	var custom map[string]string
	if len(info.UserMetadata) > 0 {
		custom = make(map[string]string, len(info.UserMetadata))
		for k, v := range info.UserMetadata {
			custom[strings.ToLower(k)] = v
		}
	}

	return &bucketgate.Object{
		Key:            info.Key,
		Size:           info.Size,
		ETag:           info.ETag,
		Uploaded:       info.LastModified,
		HTTPMetadata:   meta,
		CustomMetadata: custom,
		Writer: HeaderWriter{
			HTTPMetadata: meta,
			LastModified: info.LastModified,
			Expires:      info.Expires,
		},
	}
}

// HeaderWriter renders MinIO object metadata, adding Last-Modified and
// Expires when the server reported them.
type HeaderWriter struct {
	bucketgate.HTTPMetadata
	LastModified time.Time
	Expires      time.Time
}

// WriteHTTPMetadata implements bucketgate.MetadataWriter.
func (w HeaderWriter) WriteHTTPMetadata(h http.Header) {
	w.HTTPMetadata.WriteHTTPMetadata(h)
	if !w.LastModified.IsZero() {
		h.Set("Last-Modified", w.LastModified.UTC().Format(http.TimeFormat))
	}
	if !w.Expires.IsZero() {
		h.Set("Expires", w.Expires.UTC().Format(http.TimeFormat))
	}
}

func mapError(op string, err error) error {
	resp := miniogo.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey" || resp.Code == "NotFound":
		return fmt.Errorf("%s: %w", op, bucketgate.ErrNotFound)
	case resp.Code == "InvalidArgument" || resp.Code == "KeyTooLongError" || resp.Code == "XMinioInvalidObjectName":
		return fmt.Errorf("%s: %w: %s", op, bucketgate.ErrInvalidInput, resp.Message)
	case resp.Code == "" && resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, bucketgate.ErrNotFound)
	}

	return fmt.Errorf("%s: %w", op, err)
}
