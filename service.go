package bucketgate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// MetaDataRepo defines the interface for persisting object records.
// Implementations must handle concurrent access safely.
//
// All methods accept a context for cancellation and timeout control.
type MetaDataRepo interface {
	// Get retrieves the record for a key.
	//
	// Returns:
	//   - Object: the record, without Body or Writer
	//   - error: ErrNotFound if key doesn't exist, or other database errors
	Get(ctx context.Context, key string) (Object, error)

	// Upsert creates or replaces the record for entry.Key. The upload time is
	// set to the time of the call.
	//
	// Returns:
	//   - Object: the stored record
	//   - error: any database error
	Upsert(ctx context.Context, entry ObjectEntry) (Object, error)

	// Delete removes the record for a key.
	//
	// Returns:
	//   - error: ErrNotFound if key doesn't exist, or other database errors
	Delete(ctx context.Context, key string) error

	// Scan returns up to limit records whose keys start with prefix and sort
	// strictly after after, in ascending byte order. It has the shape of a
	// KeyScanner so listings can be built with ScanList.
	Scan(ctx context.Context, prefix, after string, limit int) ([]Object, error)
}

// FileStorage defines the interface for physical file storage operations.
//
// All methods accept a context for cancellation and timeout control.
type FileStorage interface {
	// Get opens the file stored at key.
	//
	// Returns:
	//   - io.ReadSeekCloser: reader for the content; the caller must close it
	//   - error: ErrNotFound if the file doesn't exist, or other storage errors
	Get(ctx context.Context, key string) (io.ReadSeekCloser, error)

	// Write stores content at key, overwriting an existing file.
	//
	// Implementations should:
	//   - Write atomically (temp file then rename)
	//   - Compute the ETag while writing
	//   - Clean up partial writes on error or cancellation
	//   - Create parent directories as needed
	Write(ctx context.Context, key string, content io.Reader) (SaveResult, error)

	// Delete removes the file stored at key.
	//
	// Returns:
	//   - error: ErrNotFound if the file doesn't exist, or other storage errors
	Delete(ctx context.Context, key string) error

	// List walks the whole storage and returns an entry per file, with the
	// ETag computed and the content type detected from the extension.
	// Used by Reindex; expensive on large trees.
	List(ctx context.Context) ([]ObjectEntry, error)
}

// StoreBucket is a Bucket that keeps object bodies in a FileStorage and
// object records in a MetaDataRepo.
type StoreBucket struct {
	repo           MetaDataRepo
	storage        FileStorage
	cleanupTimeout time.Duration
}

// StoreConfig holds configuration options for StoreBucket.
type StoreConfig struct {
	CleanupTimeout time.Duration // Timeout for removing a file after a failed upsert (default: 30s)
}

// NewStoreBucket creates a StoreBucket over repo and storage.
func NewStoreBucket(repo MetaDataRepo, storage FileStorage, cfg StoreConfig) *StoreBucket {
	cleanupTimeout := cfg.CleanupTimeout
	if cleanupTimeout <= 0 {
		cleanupTimeout = 30 * time.Second
	}
	return &StoreBucket{
		repo:           repo,
		storage:        storage,
		cleanupTimeout: cleanupTimeout,
	}
}

// Reindex synchronizes records from the files in storage. It lists every file
// and upserts a record for it, stopping at the first error.
//
// This is used to adopt an existing directory tree or to recover after the
// metadata database was lost. It is not atomic: on failure some files may
// have been indexed while others were not.
//
// Returns the number of records written.
func (s *StoreBucket) Reindex(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("reindex: %w", err)
	}

	files, listErr := s.storage.List(ctx)
	if listErr != nil {
		return 0, fmt.Errorf("reindex: %w", listErr)
	}

	for i, file := range files {
		if _, upsertErr := s.repo.Upsert(ctx, file); upsertErr != nil {
			return i, fmt.Errorf("reindex '%s': %w", file.Key, upsertErr)
		}
	}

	return len(files), nil
}

// List returns a page of records built by ScanList over the repository.
func (s *StoreBucket) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	result, err := ScanList(ctx, s.repo.Scan, opts)
	if err != nil {
		return ListResult{}, fmt.Errorf("list objects: %w", err)
	}

	for i := range result.Objects {
		result.Objects[i].Writer = result.Objects[i].HTTPMetadata
	}

	return result, nil
}

// Get returns the record for key with its file opened as Body.
// A record whose file is missing is reported as ErrNotFound.
func (s *StoreBucket) Get(ctx context.Context, key string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}

	if !IsValidKey(key) {
		return nil, fmt.Errorf("get object: %w", ErrNotFound)
	}

	obj, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}

	f, err := s.storage.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}

	obj.Body = f
	obj.Writer = obj.HTTPMetadata
	return &obj, nil
}

// Head returns the record for key.
func (s *StoreBucket) Head(ctx context.Context, key string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("head object: %w", err)
	}

	if !IsValidKey(key) {
		return nil, fmt.Errorf("head object: %w", ErrNotFound)
	}

	obj, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("head object: %w", err)
	}

	obj.Writer = obj.HTTPMetadata
	return &obj, nil
}

// Put writes body to storage and then records it. If recording fails, the
// written file is removed so no orphaned data is left behind.
//
// The steps are:
//  1. Validate context and key (IsValidKey, which rejects path traversal)
//  2. Write content to storage and compute the ETag
//  3. Upsert the record with the supplied metadata
//  4. On upsert failure, delete the file using a background context bounded
//     by the cleanup timeout
//
// A nil opts.HTTPMetadata stores an object without HTTP metadata.
func (s *StoreBucket) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	if !IsValidKey(key) {
		return nil, fmt.Errorf("put object %s: %w", key, ErrInvalidInput)
	}

	saveResult, writeErr := s.storage.Write(ctx, key, body)
	if writeErr != nil {
		return nil, fmt.Errorf("put object %s: write failed: %w", key, writeErr)
	}

	entry := ObjectEntry{
		Key:            key,
		Size:           saveResult.BytesWritten,
		ETag:           saveResult.ETag,
		CustomMetadata: opts.CustomMetadata,
	}
	if opts.HTTPMetadata != nil {
		entry.HTTPMetadata = *opts.HTTPMetadata
	}

	obj, upsertErr := s.repo.Upsert(ctx, entry)
	if upsertErr != nil {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
		defer cancel()

		if delErr := s.storage.Delete(cleanupCtx, key); delErr != nil {
			return nil, fmt.Errorf("put object %s: metadata upsert failed (%w) and cleanup failed: %w", key, upsertErr, delErr)
		}
		return nil, fmt.Errorf("put object %s: metadata upsert failed: %w", key, upsertErr)
	}

	obj.Writer = obj.HTTPMetadata
	return &obj, nil
}

// Delete removes the record and then the file. Either being absent already
// is not an error. Keys IsValidKey rejects can never have been stored.
func (s *StoreBucket) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}

	if !IsValidKey(key) {
		return nil
	}

	if err := s.repo.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete object: %w", err)
	}

	if err := s.storage.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete object: %w", err)
	}

	return nil
}
