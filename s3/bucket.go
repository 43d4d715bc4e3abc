// Package s3 implements bucketgate.Bucket on Amazon S3 and S3-compatible
// services through aws-sdk-go-v2.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/sagarc03/bucketgate"
)

// Config describes how to reach one S3 bucket.
type Config struct {
	Bucket   string
	Region   string
	Endpoint string // empty means the AWS endpoint for Region

	// AccessKey and SecretKey are optional. When empty the default AWS
	// credential chain is used.
	AccessKey string
	SecretKey string

	UsePathStyle bool

	// HTTPClient overrides the SDK's HTTP client.
	HTTPClient *http.Client
}

// Bucket is a bucketgate.Bucket backed by one S3 bucket.
type Bucket struct {
	client *s3.Client
	bucket string
}

// New builds an S3 client from cfg and returns a Bucket over cfg.Bucket.
func New(ctx context.Context, cfg Config) (*Bucket, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("new s3 bucket: bucket name is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("new s3 bucket: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
	})

	return NewWithClient(client, cfg.Bucket), nil
}

// NewWithClient returns a Bucket using an existing client.
func NewWithClient(client *s3.Client, bucket string) *Bucket {
	return &Bucket{client: client, bucket: bucket}
}

// List maps opts onto ListObjectsV2. The cursor is S3's continuation token.
func (b *Bucket) List(ctx context.Context, opts bucketgate.ListOptions) (bucketgate.ListResult, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(b.bucket),
		MaxKeys: aws.Int32(int32(bucketgate.NormalizeLimit(opts.Limit))), //nolint:gosec // capped at MaxListLimit
	}
	if opts.Prefix != "" {
		input.Prefix = aws.String(opts.Prefix)
	}
	if opts.Delimiter != "" {
		input.Delimiter = aws.String(opts.Delimiter)
	}
	if opts.Cursor != "" {
		input.ContinuationToken = aws.String(opts.Cursor)
	}

	output, err := b.client.ListObjectsV2(ctx, input)
	if err != nil {
		return bucketgate.ListResult{}, mapError("list objects", err)
	}

	result := bucketgate.ListResult{
		Objects:           make([]bucketgate.Object, 0, len(output.Contents)),
		DelimitedPrefixes: make([]string, 0, len(output.CommonPrefixes)),
		Truncated:         aws.ToBool(output.IsTruncated),
	}

	for _, item := range output.Contents {
		result.Objects = append(result.Objects, bucketgate.Object{
			Key:      aws.ToString(item.Key),
			Size:     aws.ToInt64(item.Size),
			ETag:     trimETag(aws.ToString(item.ETag)),
			Uploaded: aws.ToTime(item.LastModified),
		})
	}

	for _, p := range output.CommonPrefixes {
		result.DelimitedPrefixes = append(result.DelimitedPrefixes, aws.ToString(p.Prefix))
	}

	if result.Truncated {
		result.Cursor = aws.ToString(output.NextContinuationToken)
	}

	return result, nil
}

// Get retrieves the object at key. The caller must close Body.
func (b *Bucket) Get(ctx context.Context, key string) (*bucketgate.Object, error) {
	output, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapError("get object", err)
	}

	obj := newObject(key, objectFields{
		size:         output.ContentLength,
		etag:         output.ETag,
		lastModified: output.LastModified,
		expires:      output.ExpiresString,
		metadata:     output.Metadata,
		http: bucketgate.HTTPMetadata{
			ContentType:        aws.ToString(output.ContentType),
			ContentLanguage:    aws.ToString(output.ContentLanguage),
			ContentDisposition: aws.ToString(output.ContentDisposition),
			CacheControl:       aws.ToString(output.CacheControl),
			ContentEncoding:    aws.ToString(output.ContentEncoding),
		},
	})
	obj.Body = output.Body

	return obj, nil
}

// Head retrieves the object record at key.
func (b *Bucket) Head(ctx context.Context, key string) (*bucketgate.Object, error) {
	output, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapError("head object", err)
	}

	return newObject(key, objectFields{
		size:         output.ContentLength,
		etag:         output.ETag,
		lastModified: output.LastModified,
		expires:      output.ExpiresString,
		metadata:     output.Metadata,
		http: bucketgate.HTTPMetadata{
			ContentType:        aws.ToString(output.ContentType),
			ContentLanguage:    aws.ToString(output.ContentLanguage),
			ContentDisposition: aws.ToString(output.ContentDisposition),
			CacheControl:       aws.ToString(output.CacheControl),
			ContentEncoding:    aws.ToString(output.ContentEncoding),
		},
	}), nil
}

// Put uploads body to key. The payload is sent unsigned so the body can be
// streamed. S3 needs a length up front, so a body of unknown size is spooled
// to a temporary file first.
func (b *Bucket) Put(ctx context.Context, key string, body io.Reader, opts bucketgate.PutOptions) (*bucketgate.Object, error) {
	if key == "" {
		return nil, fmt.Errorf("put object: %w", bucketgate.ErrInvalidInput)
	}

	size := opts.Size
	if size < 0 {
		spooled, n, cleanup, err := spool(body)
		if err != nil {
			return nil, fmt.Errorf("put object %s: %w", key, err)
		}
		defer cleanup()
		body, size = spooled, n
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if len(opts.CustomMetadata) > 0 {
		input.Metadata = opts.CustomMetadata
	}

	var meta bucketgate.HTTPMetadata
	if opts.HTTPMetadata != nil {
		meta = *opts.HTTPMetadata
		input.ContentType = optional(meta.ContentType)
		input.ContentLanguage = optional(meta.ContentLanguage)
		input.ContentDisposition = optional(meta.ContentDisposition)
		input.CacheControl = optional(meta.CacheControl)
		input.ContentEncoding = optional(meta.ContentEncoding)
	}

	output, err := b.client.PutObject(ctx, input,
		s3.WithAPIOptions(v4.SwapComputePayloadSHA256ForUnsignedPayloadMiddleware))
	if err != nil {
		return nil, mapError("put object "+key, err)
	}

	return &bucketgate.Object{
		Key:            key,
		Size:           size,
		ETag:           trimETag(aws.ToString(output.ETag)),
		Uploaded:       time.Now().UTC(),
		HTTPMetadata:   meta,
		CustomMetadata: opts.CustomMetadata,
		Writer:         meta,
	}, nil
}

// Delete removes the object at key. S3 reports success for missing keys.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		err = mapError("delete object", err)
		if errors.Is(err, bucketgate.ErrNotFound) {
			return nil
		}
		return err
	}

	return nil
}

type objectFields struct {
	size         *int64
	etag         *string
	lastModified *time.Time
	expires      *string
	metadata     map[string]string
	http         bucketgate.HTTPMetadata
}

func newObject(key string, f objectFields) *bucketgate.Object {
	size := int64(-1)
	if f.size != nil {
		size = *f.size
	}

	uploaded := aws.ToTime(f.lastModified)

	return &bucketgate.Object{
		Key:            key,
		Size:           size,
		ETag:           trimETag(aws.ToString(f.etag)),
		Uploaded:       uploaded,
		HTTPMetadata:   f.http,
		CustomMetadata: f.metadata,
		Writer: HeaderWriter{
			HTTPMetadata: f.http,
			LastModified: uploaded,
			Expires:      aws.ToString(f.expires),
		},
	}
}

// HeaderWriter renders S3 object metadata. On top of the stored HTTP
// metadata it emits Last-Modified and Expires when S3 reported them.
type HeaderWriter struct {
	bucketgate.HTTPMetadata
	LastModified time.Time
	Expires      string
}

// WriteHTTPMetadata implements bucketgate.MetadataWriter.
func (w HeaderWriter) WriteHTTPMetadata(h http.Header) {
	w.HTTPMetadata.WriteHTTPMetadata(h)
	if !w.LastModified.IsZero() {
		h.Set("Last-Modified", w.LastModified.UTC().Format(http.TimeFormat))
	}
	if w.Expires != "" {
		h.Set("Expires", w.Expires)
	}
}

func mapError(op string, err error) error {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return fmt.Errorf("%s: %w", op, bucketgate.ErrNotFound)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%s: %w", op, bucketgate.ErrNotFound)
		case "InvalidArgument", "InvalidToken", "KeyTooLongError":
			return fmt.Errorf("%s: %w: %s", op, bucketgate.ErrInvalidInput, apiErr.ErrorMessage())
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}

func trimETag(etag string) string {
	return strings.Trim(etag, `"`)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

func spool(r io.Reader) (io.Reader, int64, func(), error) {
	f, err := os.CreateTemp("", "bucketgate-upload-*")
	if err != nil {
		return nil, 0, nil, fmt.Errorf("spool body: %w", err)
	}

	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}

	n, err := io.Copy(f, r)
	if err != nil {
		cleanup()
		return nil, 0, nil, fmt.Errorf("spool body: %w", err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, 0, nil, fmt.Errorf("spool body: %w", err)
	}

	return f, n, cleanup, nil
}
