package minio_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/sagarc03/bucketgate"
	"github.com/sagarc03/bucketgate/minio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func put(t *testing.T, b *minio.Bucket, key, body string, opts bucketgate.PutOptions) *bucketgate.Object {
	t.Helper()
	if opts.Size == 0 {
		opts.Size = int64(len(body))
	}
	obj, err := b.Put(context.Background(), key, strings.NewReader(body), opts)
	require.NoError(t, err)
	return obj
}

func TestNew_Validation(t *testing.T) {
	_, err := minio.New(minio.Config{Bucket: "b"})
	assert.ErrorContains(t, err, "endpoint is required")

	_, err = minio.New(minio.Config{Endpoint: "localhost:9000"})
	assert.ErrorContains(t, err, "bucket name is required")
}

func TestBucket_PutAndGet(t *testing.T) {
	b, client, name := setupBucket(t)
	ctx := context.Background()

	stored := put(t, b, "docs/hello.txt", "hello", bucketgate.PutOptions{
		HTTPMetadata: &bucketgate.HTTPMetadata{
			ContentType:        "text/plain",
			ContentDisposition: "inline",
		},
		CustomMetadata: map[string]string{"owner": "alice"},
	})
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", stored.ETag)

	info, err := client.StatObject(ctx, name, "docs/hello.txt", miniogo.StatObjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, "alice", info.UserMetadata["Owner"])

	obj, err := b.Get(ctx, "docs/hello.txt")
	require.NoError(t, err)
	defer func() { _ = obj.Body.Close() }()

	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "docs/hello.txt", obj.Key)
	assert.Equal(t, int64(5), obj.Size)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", obj.ETag)
	assert.Equal(t, "text/plain", obj.HTTPMetadata.ContentType)
	assert.Equal(t, "inline", obj.HTTPMetadata.ContentDisposition)
	assert.Equal(t, map[string]string{"owner": "alice"}, obj.CustomMetadata)

	h := make(http.Header)
	obj.Writer.WriteHTTPMetadata(h)
	assert.Equal(t, "text/plain", h.Get("Content-Type"))
	assert.Equal(t, "inline", h.Get("Content-Disposition"))
	assert.NotEmpty(t, h.Get("Last-Modified"))
}

func TestBucket_Head(t *testing.T) {
	b, _, _ := setupBucket(t)
	ctx := context.Background()

	put(t, b, "a.txt", "abc", bucketgate.PutOptions{
		HTTPMetadata: &bucketgate.HTTPMetadata{CacheControl: "no-store"},
	})

	obj, err := b.Head(ctx, "a.txt")
	require.NoError(t, err)
	assert.Nil(t, obj.Body)
	assert.Equal(t, int64(3), obj.Size)
	assert.Equal(t, "no-store", obj.HTTPMetadata.CacheControl)
}

func TestBucket_NotFound(t *testing.T) {
	b, _, _ := setupBucket(t)
	ctx := context.Background()

	_, err := b.Get(ctx, "missing")
	assert.ErrorIs(t, err, bucketgate.ErrNotFound)

	_, err = b.Head(ctx, "missing")
	assert.ErrorIs(t, err, bucketgate.ErrNotFound)
}

func TestBucket_Delete(t *testing.T) {
	b, client, name := setupBucket(t)
	ctx := context.Background()

	put(t, b, "gone.txt", "x", bucketgate.PutOptions{})

	require.NoError(t, b.Delete(ctx, "gone.txt"))
	assert.Empty(t, storedKeys(t, client, name))
	assert.NoError(t, b.Delete(ctx, "gone.txt"))
}

func TestBucket_List(t *testing.T) {
	b, _, _ := setupBucket(t)
	ctx := context.Background()

	for _, key := range []string{"b", "a", "dir/x", "dir/y", "dir/sub/z", "c"} {
		put(t, b, key, key, bucketgate.PutOptions{})
	}

	keysOf := func(objs []bucketgate.Object) []string {
		keys := make([]string, 0, len(objs))
		for _, o := range objs {
			keys = append(keys, o.Key)
		}
		return keys
	}

	t.Run("all keys in order", func(t *testing.T) {
		result, err := b.List(ctx, bucketgate.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "dir/sub/z", "dir/x", "dir/y"}, keysOf(result.Objects))
		assert.False(t, result.Truncated)
	})

	t.Run("delimiter", func(t *testing.T) {
		result, err := b.List(ctx, bucketgate.ListOptions{Delimiter: "/"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, keysOf(result.Objects))
		assert.Equal(t, []string{"dir/"}, result.DelimitedPrefixes)
	})

	t.Run("nested delimiter", func(t *testing.T) {
		result, err := b.List(ctx, bucketgate.ListOptions{Prefix: "dir/", Delimiter: "/"})
		require.NoError(t, err)
		assert.Equal(t, []string{"dir/x", "dir/y"}, keysOf(result.Objects))
		assert.Equal(t, []string{"dir/sub/"}, result.DelimitedPrefixes)
	})

	t.Run("pages", func(t *testing.T) {
		first, err := b.List(ctx, bucketgate.ListOptions{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, keysOf(first.Objects))
		assert.True(t, first.Truncated)

		rest, err := b.List(ctx, bucketgate.ListOptions{Limit: 10, Cursor: first.Cursor})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "dir/sub/z", "dir/x", "dir/y"}, keysOf(rest.Objects))
		assert.False(t, rest.Truncated)
	})

	t.Run("invalid cursor", func(t *testing.T) {
		_, err := b.List(ctx, bucketgate.ListOptions{Cursor: "!!!"})
		assert.ErrorIs(t, err, bucketgate.ErrInvalidInput)
	})
}

func TestHeaderWriter(t *testing.T) {
	w := minio.HeaderWriter{
		HTTPMetadata: bucketgate.HTTPMetadata{ContentEncoding: "gzip"},
		LastModified: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Expires:      time.Date(2037, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	h := make(http.Header)
	w.WriteHTTPMetadata(h)

	assert.Equal(t, "gzip", h.Get("Content-Encoding"))
	assert.Equal(t, "Fri, 01 Mar 2024 12:00:00 GMT", h.Get("Last-Modified"))
	assert.Equal(t, "Thu, 01 Jan 2037 00:00:00 GMT", h.Get("Expires"))
}
