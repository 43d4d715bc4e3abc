package s3_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sagarc03/bucketgate"
	"github.com/sagarc03/bucketgate/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func put(t *testing.T, b *s3.Bucket, key, body string, opts bucketgate.PutOptions) *bucketgate.Object {
	t.Helper()
	obj, err := b.Put(context.Background(), key, strings.NewReader(body), opts)
	require.NoError(t, err)
	return obj
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := s3.New(context.Background(), s3.Config{Region: "us-east-1"})
	assert.ErrorContains(t, err, "bucket name is required")
}

func TestBucket_PutAndGet(t *testing.T) {
	b, client, name := setupBucket(t)
	ctx := context.Background()

	stored := put(t, b, "docs/hello.txt", "hello", bucketgate.PutOptions{
		Size: 5,
		HTTPMetadata: &bucketgate.HTTPMetadata{
			ContentType:  "text/plain",
			CacheControl: "max-age=60",
		},
		CustomMetadata: map[string]string{"owner": "alice"},
	})
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", stored.ETag)
	assert.Equal(t, int64(5), stored.Size)

	raw, err := client.HeadObject(ctx, &awss3.HeadObjectInput{Bucket: aws.String(name), Key: aws.String("docs/hello.txt")})
	require.NoError(t, err)
	assert.Equal(t, "alice", raw.Metadata["owner"])

	obj, err := b.Get(ctx, "docs/hello.txt")
	require.NoError(t, err)
	defer func() { _ = obj.Body.Close() }()

	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, int64(5), obj.Size)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", obj.ETag)
	assert.Equal(t, "text/plain", obj.HTTPMetadata.ContentType)
	assert.Equal(t, "max-age=60", obj.HTTPMetadata.CacheControl)
	assert.Equal(t, map[string]string{"owner": "alice"}, obj.CustomMetadata)
	assert.False(t, obj.Uploaded.IsZero())

	h := make(http.Header)
	obj.Writer.WriteHTTPMetadata(h)
	assert.Equal(t, "text/plain", h.Get("Content-Type"))
	assert.Equal(t, "max-age=60", h.Get("Cache-Control"))
	assert.NotEmpty(t, h.Get("Last-Modified"))
}

func TestBucket_PutUnknownSize(t *testing.T) {
	b, _, _ := setupBucket(t)
	ctx := context.Background()

	stored := put(t, b, "stream.bin", "streamed body", bucketgate.PutOptions{Size: -1})
	assert.Equal(t, int64(len("streamed body")), stored.Size)

	obj, err := b.Head(ctx, "stream.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(len("streamed body")), obj.Size)
	assert.Nil(t, obj.Body)
}

func TestBucket_PutReplacesMetadata(t *testing.T) {
	b, _, _ := setupBucket(t)
	ctx := context.Background()

	put(t, b, "a.txt", "one", bucketgate.PutOptions{
		Size:           3,
		HTTPMetadata:   &bucketgate.HTTPMetadata{ContentLanguage: "en"},
		CustomMetadata: map[string]string{"v": "1"},
	})
	put(t, b, "a.txt", "two", bucketgate.PutOptions{Size: 3})

	obj, err := b.Head(ctx, "a.txt")
	require.NoError(t, err)
	assert.Empty(t, obj.HTTPMetadata.ContentLanguage)
	assert.Empty(t, obj.CustomMetadata)
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

	put(t, b, "gone.txt", "x", bucketgate.PutOptions{Size: 1})

	require.NoError(t, b.Delete(ctx, "gone.txt"))
	assert.Empty(t, storedKeys(t, client, name))

	assert.NoError(t, b.Delete(ctx, "gone.txt"), "deleting a missing key is not an error")
}

func TestBucket_List(t *testing.T) {
	b, _, _ := setupBucket(t)
	ctx := context.Background()

	for _, key := range []string{"b", "a", "dir/x", "dir/y", "c"} {
		put(t, b, key, key, bucketgate.PutOptions{Size: int64(len(key))})
	}

	t.Run("all keys in order", func(t *testing.T) {
		result, err := b.List(ctx, bucketgate.ListOptions{})
		require.NoError(t, err)

		keys := make([]string, 0, len(result.Objects))
		for _, o := range result.Objects {
			keys = append(keys, o.Key)
		}
		assert.Equal(t, []string{"a", "b", "c", "dir/x", "dir/y"}, keys)
		assert.Empty(t, result.DelimitedPrefixes)
		assert.False(t, result.Truncated)
		assert.Empty(t, result.Cursor)
		assert.NotContains(t, result.Objects[0].ETag, `"`)
	})

	t.Run("delimiter", func(t *testing.T) {
		result, err := b.List(ctx, bucketgate.ListOptions{Delimiter: "/"})
		require.NoError(t, err)
		assert.Len(t, result.Objects, 3)
		assert.Equal(t, []string{"dir/"}, result.DelimitedPrefixes)
	})

	t.Run("pages", func(t *testing.T) {
		first, err := b.List(ctx, bucketgate.ListOptions{Limit: 2})
		require.NoError(t, err)
		require.Len(t, first.Objects, 2)
		assert.True(t, first.Truncated)
		require.NotEmpty(t, first.Cursor)

		rest, err := b.List(ctx, bucketgate.ListOptions{Limit: 10, Cursor: first.Cursor})
		require.NoError(t, err)
		require.Len(t, rest.Objects, 3)
		assert.Equal(t, "c", rest.Objects[0].Key)
		assert.False(t, rest.Truncated)
	})

	t.Run("prefix", func(t *testing.T) {
		result, err := b.List(ctx, bucketgate.ListOptions{Prefix: "dir/"})
		require.NoError(t, err)
		assert.Len(t, result.Objects, 2)
	})

	t.Run("invalid cursor", func(t *testing.T) {
		_, err := b.List(ctx, bucketgate.ListOptions{Cursor: "!!!"})
		assert.ErrorIs(t, err, bucketgate.ErrInvalidInput)
	})
}

func TestHeaderWriter(t *testing.T) {
	modified := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	w := s3.HeaderWriter{
		HTTPMetadata: bucketgate.HTTPMetadata{ContentType: "image/png"},
		LastModified: modified,
		Expires:      "Thu, 01 Jan 2037 00:00:00 GMT",
	}

	h := make(http.Header)
	w.WriteHTTPMetadata(h)

	assert.Equal(t, "image/png", h.Get("Content-Type"))
	assert.Equal(t, "Fri, 01 Mar 2024 12:00:00 GMT", h.Get("Last-Modified"))
	assert.Equal(t, "Thu, 01 Jan 2037 00:00:00 GMT", h.Get("Expires"))

	h = make(http.Header)
	s3.HeaderWriter{}.WriteHTTPMetadata(h)
	assert.Empty(t, h)
}
