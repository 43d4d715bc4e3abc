package bucketgate_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sagarc03/bucketgate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type SpyMetaDataRepo struct {
	mock.Mock
}

func (s *SpyMetaDataRepo) Get(ctx context.Context, key string) (bucketgate.Object, error) {
	args := s.Called(ctx, key)
	return args.Get(0).(bucketgate.Object), args.Error(1)
}

func (s *SpyMetaDataRepo) Upsert(ctx context.Context, entry bucketgate.ObjectEntry) (bucketgate.Object, error) {
	args := s.Called(ctx, entry)
	return args.Get(0).(bucketgate.Object), args.Error(1)
}

func (s *SpyMetaDataRepo) Delete(ctx context.Context, key string) error {
	args := s.Called(ctx, key)
	return args.Error(0)
}

func (s *SpyMetaDataRepo) Scan(ctx context.Context, prefix, after string, limit int) ([]bucketgate.Object, error) {
	args := s.Called(ctx, prefix, after, limit)
	return args.Get(0).([]bucketgate.Object), args.Error(1)
}

type SpyFileStorage struct {
	mock.Mock
}

func (s *SpyFileStorage) Get(ctx context.Context, key string) (io.ReadSeekCloser, error) {
	args := s.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadSeekCloser), args.Error(1)
}

func (s *SpyFileStorage) Write(ctx context.Context, key string, content io.Reader) (bucketgate.SaveResult, error) {
	args := s.Called(ctx, key, content)
	return args.Get(0).(bucketgate.SaveResult), args.Error(1)
}

func (s *SpyFileStorage) Delete(ctx context.Context, key string) error {
	args := s.Called(ctx, key)
	return args.Error(0)
}

func (s *SpyFileStorage) List(ctx context.Context) ([]bucketgate.ObjectEntry, error) {
	args := s.Called(ctx)
	return args.Get(0).([]bucketgate.ObjectEntry), args.Error(1)
}

type nopReadSeekCloser struct {
	io.ReadSeeker
}

func (nopReadSeekCloser) Close() error { return nil }

func newStoreBucket(t *testing.T) (*bucketgate.StoreBucket, *SpyMetaDataRepo, *SpyFileStorage) {
	t.Helper()
	spyRepo := new(SpyMetaDataRepo)
	spyStorage := new(SpyFileStorage)
	b := bucketgate.NewStoreBucket(spyRepo, spyStorage, bucketgate.StoreConfig{CleanupTimeout: time.Second})
	return b, spyRepo, spyStorage
}

func TestStoreBucket_Put(t *testing.T) {
	t.Run("success - stores body and metadata", func(t *testing.T) {
		bucket, repo, storage := newStoreBucket(t)
		ctx := context.Background()

		content := bytes.NewBufferString("Hello World!")
		meta := &bucketgate.HTTPMetadata{ContentType: "text/plain", CacheControl: "no-cache"}

		storage.On("Write", ctx, "documents/test.txt", content).
			Return(bucketgate.SaveResult{BytesWritten: 12, ETag: "abc123"}, nil)
		repo.On("Upsert", ctx, mock.MatchedBy(func(entry bucketgate.ObjectEntry) bool {
			return entry.Key == "documents/test.txt" &&
				entry.Size == 12 &&
				entry.ETag == "abc123" &&
				entry.HTTPMetadata == *meta
		})).Return(bucketgate.Object{
			Key:          "documents/test.txt",
			Size:         12,
			ETag:         "abc123",
			HTTPMetadata: *meta,
		}, nil)

		obj, err := bucket.Put(ctx, "documents/test.txt", content, bucketgate.PutOptions{HTTPMetadata: meta, Size: 12})
		require.NoError(t, err)
		assert.Equal(t, "documents/test.txt", obj.Key)
		assert.NotNil(t, obj.Writer)

		storage.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("success - absent metadata stores empty metadata", func(t *testing.T) {
		bucket, repo, storage := newStoreBucket(t)
		ctx := context.Background()
		content := strings.NewReader("x")

		storage.On("Write", ctx, "a.bin", content).Return(bucketgate.SaveResult{BytesWritten: 1, ETag: "e"}, nil)
		repo.On("Upsert", ctx, mock.MatchedBy(func(entry bucketgate.ObjectEntry) bool {
			return entry.HTTPMetadata.IsZero()
		})).Return(bucketgate.Object{Key: "a.bin", Size: 1, ETag: "e"}, nil)

		_, err := bucket.Put(ctx, "a.bin", content, bucketgate.PutOptions{Size: -1})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("error - context cancelled before operation", func(t *testing.T) {
		bucket, repo, storage := newStoreBucket(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := bucket.Put(ctx, "test.txt", bytes.NewBufferString("data"), bucketgate.PutOptions{})
		assert.ErrorIs(t, err, context.Canceled)

		storage.AssertNotCalled(t, "Write")
		repo.AssertNotCalled(t, "Upsert")
	})

	t.Run("error - invalid key with path traversal", func(t *testing.T) {
		bucket, repo, storage := newStoreBucket(t)

		_, err := bucket.Put(context.Background(), "../etc/passwd", bytes.NewBufferString("data"), bucketgate.PutOptions{})
		assert.ErrorIs(t, err, bucketgate.ErrInvalidInput)

		storage.AssertNotCalled(t, "Write")
		repo.AssertNotCalled(t, "Upsert")
	})

	t.Run("error - write fails", func(t *testing.T) {
		bucket, repo, storage := newStoreBucket(t)
		ctx := context.Background()
		content := bytes.NewBufferString("data")

		storage.On("Write", ctx, "test.txt", content).Return(bucketgate.SaveResult{}, errors.New("disk full"))

		_, err := bucket.Put(ctx, "test.txt", content, bucketgate.PutOptions{})
		assert.ErrorContains(t, err, "disk full")

		repo.AssertNotCalled(t, "Upsert")
	})

	t.Run("error - upsert fails removes written file", func(t *testing.T) {
		bucket, repo, storage := newStoreBucket(t)
		ctx := context.Background()
		content := bytes.NewBufferString("data")

		storage.On("Write", ctx, "test.txt", content).Return(bucketgate.SaveResult{BytesWritten: 4, ETag: "e"}, nil)
		repo.On("Upsert", ctx, mock.Anything).Return(bucketgate.Object{}, errors.New("db down"))
		storage.On("Delete", mock.Anything, "test.txt").Return(nil)

		_, err := bucket.Put(ctx, "test.txt", content, bucketgate.PutOptions{})
		assert.ErrorContains(t, err, "db down")

		storage.AssertExpectations(t)
	})

	t.Run("error - upsert and cleanup both fail", func(t *testing.T) {
		bucket, repo, storage := newStoreBucket(t)
		ctx := context.Background()
		content := bytes.NewBufferString("data")

		storage.On("Write", ctx, "test.txt", content).Return(bucketgate.SaveResult{BytesWritten: 4, ETag: "e"}, nil)
		repo.On("Upsert", ctx, mock.Anything).Return(bucketgate.Object{}, errors.New("db down"))
		storage.On("Delete", mock.Anything, "test.txt").Return(errors.New("permission denied"))

		_, err := bucket.Put(ctx, "test.txt", content, bucketgate.PutOptions{})
		assert.ErrorContains(t, err, "db down")
		assert.ErrorContains(t, err, "cleanup failed")
	})
}

func TestStoreBucket_Get(t *testing.T) {
	t.Run("success - returns record with body", func(t *testing.T) {
		bucket, repo, storage := newStoreBucket(t)
		ctx := context.Background()

		repo.On("Get", ctx, "a.txt").Return(bucketgate.Object{
			Key:          "a.txt",
			Size:         5,
			ETag:         "abc",
			HTTPMetadata: bucketgate.HTTPMetadata{ContentType: "text/plain"},
		}, nil)
		storage.On("Get", ctx, "a.txt").Return(nopReadSeekCloser{strings.NewReader("hello")}, nil)

		obj, err := bucket.Get(ctx, "a.txt")
		require.NoError(t, err)
		require.NotNil(t, obj.Body)

		data, err := io.ReadAll(obj.Body)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
		assert.Equal(t, bucketgate.HTTPMetadata{ContentType: "text/plain"}, obj.Writer)
	})

	t.Run("not found - missing record", func(t *testing.T) {
		bucket, repo, storage := newStoreBucket(t)
		ctx := context.Background()

		repo.On("Get", ctx, "missing.txt").Return(bucketgate.Object{}, bucketgate.ErrNotFound)

		_, err := bucket.Get(ctx, "missing.txt")
		assert.ErrorIs(t, err, bucketgate.ErrNotFound)
		storage.AssertNotCalled(t, "Get")
	})

	t.Run("not found - record without file", func(t *testing.T) {
		bucket, repo, storage := newStoreBucket(t)
		ctx := context.Background()

		repo.On("Get", ctx, "orphan.txt").Return(bucketgate.Object{Key: "orphan.txt"}, nil)
		storage.On("Get", ctx, "orphan.txt").Return(nil, bucketgate.ErrNotFound)

		_, err := bucket.Get(ctx, "orphan.txt")
		assert.ErrorIs(t, err, bucketgate.ErrNotFound)
	})

	t.Run("not found - key that cannot be stored", func(t *testing.T) {
		bucket, repo, _ := newStoreBucket(t)

		_, err := bucket.Get(context.Background(), "a/../b")
		assert.ErrorIs(t, err, bucketgate.ErrNotFound)
		repo.AssertNotCalled(t, "Get")
	})
}

func TestStoreBucket_Head(t *testing.T) {
	bucket, repo, storage := newStoreBucket(t)
	ctx := context.Background()

	repo.On("Get", ctx, "a.txt").Return(bucketgate.Object{Key: "a.txt", Size: 5}, nil)

	obj, err := bucket.Head(ctx, "a.txt")
	require.NoError(t, err)
	assert.Nil(t, obj.Body)
	assert.Equal(t, int64(5), obj.Size)
	storage.AssertNotCalled(t, "Get")
}

func TestStoreBucket_Delete(t *testing.T) {
	t.Run("success - removes record and file", func(t *testing.T) {
		bucket, repo, storage := newStoreBucket(t)
		ctx := context.Background()

		repo.On("Delete", ctx, "a.txt").Return(nil)
		storage.On("Delete", ctx, "a.txt").Return(nil)

		assert.NoError(t, bucket.Delete(ctx, "a.txt"))
		repo.AssertExpectations(t)
		storage.AssertExpectations(t)
	})

	t.Run("success - missing key is not an error", func(t *testing.T) {
		bucket, repo, storage := newStoreBucket(t)
		ctx := context.Background()

		repo.On("Delete", ctx, "gone.txt").Return(bucketgate.ErrNotFound)
		storage.On("Delete", ctx, "gone.txt").Return(bucketgate.ErrNotFound)

		assert.NoError(t, bucket.Delete(ctx, "gone.txt"))
	})

	t.Run("error - repo failure", func(t *testing.T) {
		bucket, repo, storage := newStoreBucket(t)
		ctx := context.Background()

		repo.On("Delete", ctx, "a.txt").Return(errors.New("db down"))

		assert.ErrorContains(t, bucket.Delete(ctx, "a.txt"), "db down")
		storage.AssertNotCalled(t, "Delete")
	})
}

func TestStoreBucket_List(t *testing.T) {
	bucket, repo, _ := newStoreBucket(t)
	ctx := context.Background()

	repo.On("Scan", ctx, "docs/", "", 3).Return([]bucketgate.Object{
		{Key: "docs/a.txt", HTTPMetadata: bucketgate.HTTPMetadata{ContentType: "text/plain"}},
		{Key: "docs/b.txt"},
	}, nil)

	result, err := bucket.List(ctx, bucketgate.ListOptions{Prefix: "docs/", Limit: 2})
	require.NoError(t, err)
	require.Len(t, result.Objects, 2)
	assert.False(t, result.Truncated)
	assert.Empty(t, result.Cursor)
	assert.Equal(t, bucketgate.HTTPMetadata{ContentType: "text/plain"}, result.Objects[0].Writer)
}

func TestStoreBucket_Reindex(t *testing.T) {
	t.Run("success - upserts every file", func(t *testing.T) {
		bucket, repo, storage := newStoreBucket(t)
		ctx := context.Background()

		files := []bucketgate.ObjectEntry{
			{Key: "a.txt", Size: 1, ETag: "1"},
			{Key: "b/c.png", Size: 2, ETag: "2"},
		}
		storage.On("List", ctx).Return(files, nil)
		repo.On("Upsert", ctx, files[0]).Return(bucketgate.Object{Key: "a.txt"}, nil)
		repo.On("Upsert", ctx, files[1]).Return(bucketgate.Object{Key: "b/c.png"}, nil)

		n, err := bucket.Reindex(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		repo.AssertExpectations(t)
	})

	t.Run("error - stops at first failed upsert", func(t *testing.T) {
		bucket, repo, storage := newStoreBucket(t)
		ctx := context.Background()

		files := []bucketgate.ObjectEntry{{Key: "a.txt"}, {Key: "b.txt"}}
		storage.On("List", ctx).Return(files, nil)
		repo.On("Upsert", ctx, files[0]).Return(bucketgate.Object{}, errors.New("boom"))

		n, err := bucket.Reindex(ctx)
		assert.Error(t, err)
		assert.Equal(t, 0, n)
		repo.AssertNotCalled(t, "Upsert", ctx, files[1])
	})
}
