// Package repotest provides a shared test suite for bucketgate.MetaDataRepo
// implementations.
package repotest

import (
	"context"
	"fmt"
	"testing"

	"github.com/sagarc03/bucketgate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewRepo returns an empty repository for one subtest.
type NewRepo func(t *testing.T) bucketgate.MetaDataRepo

// RunRepoTests runs every repository test against fresh repositories.
func RunRepoTests(t *testing.T, newRepo NewRepo) {
	t.Run("GetNotFound", func(t *testing.T) { testGetNotFound(t, newRepo(t)) })
	t.Run("UpsertAndGet", func(t *testing.T) { testUpsertAndGet(t, newRepo(t)) })
	t.Run("UpsertReplaces", func(t *testing.T) { testUpsertReplaces(t, newRepo(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newRepo(t)) })
	t.Run("DeleteNotFound", func(t *testing.T) { testDeleteNotFound(t, newRepo(t)) })
	t.Run("ScanOrder", func(t *testing.T) { testScanOrder(t, newRepo(t)) })
	t.Run("ScanPrefix", func(t *testing.T) { testScanPrefix(t, newRepo(t)) })
	t.Run("ScanAfterAndLimit", func(t *testing.T) { testScanAfterAndLimit(t, newRepo(t)) })
	t.Run("ScanPastGroup", func(t *testing.T) { testScanPastGroup(t, newRepo(t)) })
	t.Run("ScanList", func(t *testing.T) { testScanList(t, newRepo(t)) })
}

func upsert(t *testing.T, repo bucketgate.MetaDataRepo, keys ...string) {
	t.Helper()
	for i, key := range keys {
		_, err := repo.Upsert(context.Background(), bucketgate.ObjectEntry{
			Key:  key,
			Size: int64(i),
			ETag: fmt.Sprintf("etag-%d", i),
		})
		require.NoError(t, err)
	}
}

func scanKeys(t *testing.T, repo bucketgate.MetaDataRepo, prefix, after string, limit int) []string {
	t.Helper()
	objs, err := repo.Scan(context.Background(), prefix, after, limit)
	require.NoError(t, err)

	keys := make([]string, 0, len(objs))
	for _, o := range objs {
		keys = append(keys, o.Key)
	}
	return keys
}

func testGetNotFound(t *testing.T, repo bucketgate.MetaDataRepo) {
	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, bucketgate.ErrNotFound)
}

func testUpsertAndGet(t *testing.T, repo bucketgate.MetaDataRepo) {
	ctx := context.Background()
	entry := bucketgate.ObjectEntry{
		Key:  "docs/report 2024.pdf",
		Size: 1024,
		ETag: "d41d8cd98f00b204e9800998ecf8427e",
		HTTPMetadata: bucketgate.HTTPMetadata{
			ContentType:        "application/pdf",
			ContentLanguage:    "en",
			ContentDisposition: `attachment; filename="report.pdf"`,
			CacheControl:       "max-age=3600",
			ContentEncoding:    "identity",
		},
		CustomMetadata: map[string]string{"owner": "alice"},
	}

	stored, err := repo.Upsert(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, entry.Key, stored.Key)
	assert.False(t, stored.Uploaded.IsZero())

	got, err := repo.Get(ctx, entry.Key)
	require.NoError(t, err)
	assert.Equal(t, entry.Key, got.Key)
	assert.Equal(t, entry.Size, got.Size)
	assert.Equal(t, entry.ETag, got.ETag)
	assert.Equal(t, entry.HTTPMetadata, got.HTTPMetadata)
	assert.Equal(t, entry.CustomMetadata, got.CustomMetadata)
	assert.WithinDuration(t, stored.Uploaded, got.Uploaded, 1e6)
}

func testUpsertReplaces(t *testing.T, repo bucketgate.MetaDataRepo) {
	ctx := context.Background()

	_, err := repo.Upsert(ctx, bucketgate.ObjectEntry{
		Key:            "a.txt",
		Size:           1,
		ETag:           "one",
		HTTPMetadata:   bucketgate.HTTPMetadata{ContentType: "text/plain", CacheControl: "no-cache"},
		CustomMetadata: map[string]string{"v": "1"},
	})
	require.NoError(t, err)

	_, err = repo.Upsert(ctx, bucketgate.ObjectEntry{Key: "a.txt", Size: 2, ETag: "two"})
	require.NoError(t, err)

	got, err := repo.Get(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Size)
	assert.Equal(t, "two", got.ETag)
	assert.True(t, got.HTTPMetadata.IsZero())
	assert.Empty(t, got.CustomMetadata)

	assert.Len(t, scanKeys(t, repo, "", "", 10), 1)
}

func testDelete(t *testing.T, repo bucketgate.MetaDataRepo) {
	ctx := context.Background()
	upsert(t, repo, "a", "b")

	require.NoError(t, repo.Delete(ctx, "a"))

	_, err := repo.Get(ctx, "a")
	assert.ErrorIs(t, err, bucketgate.ErrNotFound)
	assert.Equal(t, []string{"b"}, scanKeys(t, repo, "", "", 10))
}

func testDeleteNotFound(t *testing.T, repo bucketgate.MetaDataRepo) {
	assert.ErrorIs(t, repo.Delete(context.Background(), "missing"), bucketgate.ErrNotFound)
}

func testScanOrder(t *testing.T, repo bucketgate.MetaDataRepo) {
	upsert(t, repo, "b", "B", "a/x", "a", "é", "_z", "a-b")

	assert.Equal(t, []string{"B", "_z", "a", "a-b", "a/x", "b", "é"}, scanKeys(t, repo, "", "", 100))
}

func testScanPrefix(t *testing.T, repo bucketgate.MetaDataRepo) {
	upsert(t, repo, "docs/a", "docs/b", "Docs/c", "docsx", "img/a", "100%_x/a", "100x/a", "a*b", "ab")

	assert.Equal(t, []string{"docs/a", "docs/b"}, scanKeys(t, repo, "docs/", "", 100))
	assert.Equal(t, []string{"100%_x/a"}, scanKeys(t, repo, "100%_", "", 100))
	assert.Equal(t, []string{"a*b"}, scanKeys(t, repo, "a*", "", 100))
}

func testScanAfterAndLimit(t *testing.T, repo bucketgate.MetaDataRepo) {
	upsert(t, repo, "a", "b", "c", "d", "e")

	assert.Equal(t, []string{"a", "b"}, scanKeys(t, repo, "", "", 2))
	assert.Equal(t, []string{"c", "d"}, scanKeys(t, repo, "", "b", 2))
	assert.Equal(t, []string{"e"}, scanKeys(t, repo, "", "d", 2))
	assert.Empty(t, scanKeys(t, repo, "", "e", 2))
}

func testScanPastGroup(t *testing.T, repo bucketgate.MetaDataRepo) {
	upsert(t, repo, "g/1", "g/2", "g/é", "h")

	assert.Equal(t, []string{"h"}, scanKeys(t, repo, "", "g/\U0010FFFF", 10))
}

func testScanList(t *testing.T, repo bucketgate.MetaDataRepo) {
	upsert(t, repo, "docs/a", "docs/b", "docs/sub/c", "readme")

	result, err := bucketgate.ScanList(context.Background(), repo.Scan, bucketgate.ListOptions{Delimiter: "/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/"}, result.DelimitedPrefixes)
	require.Len(t, result.Objects, 1)
	assert.Equal(t, "readme", result.Objects[0].Key)

	result, err = bucketgate.ScanList(context.Background(), repo.Scan, bucketgate.ListOptions{Prefix: "docs/", Limit: 1})
	require.NoError(t, err)
	require.Len(t, result.Objects, 1)
	assert.True(t, result.Truncated)

	next, err := bucketgate.ScanList(context.Background(), repo.Scan, bucketgate.ListOptions{Prefix: "docs/", Limit: 5, Cursor: result.Cursor})
	require.NoError(t, err)
	require.Len(t, next.Objects, 2)
	assert.Equal(t, "docs/b", next.Objects[0].Key)
	assert.False(t, next.Truncated)
}
