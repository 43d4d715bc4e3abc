// Package filesystem stores object bodies as files under a sandboxed root
// directory. Writes are atomic (temp file then rename), ETags are the MD5 of
// the content, and reindexing detects content types from file extensions.
package filesystem

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/sagarc03/bucketgate"
)

const tmpPrefix = ".bgtmp-"

// Store implements bucketgate.FileStorage on an os.Root.
type Store struct {
	root *os.Root
}

// NewFileStorage creates a Store over root. The root confines every
// operation to its directory, so keys cannot escape it.
func NewFileStorage(root *os.Root) *Store {
	return &Store{root: root}
}

// Get opens the file for key. Returns bucketgate.ErrNotFound if it does not exist.
func (s *Store) Get(ctx context.Context, key string) (io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, bucketgate.ErrNotFound
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, bucketgate.ErrNotFound
	}

	return f, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Write stores content at key through a temp file renamed into place, creating
// parent directories as needed. The read is aborted when ctx is cancelled.
func (s *Store) Write(ctx context.Context, key string, content io.Reader) (bucketgate.SaveResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return bucketgate.SaveResult{}, ctxErr
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return bucketgate.SaveResult{}, fmt.Errorf("create temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(tmpFile); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	h := md5.New()
	w := io.MultiWriter(h, t)

	written, err := io.Copy(w, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return bucketgate.SaveResult{}, fmt.Errorf("copy contents: %w", err)
	}

	if err := t.Sync(); err != nil {
		return bucketgate.SaveResult{}, fmt.Errorf("sync written file: %w", err)
	}

	if dir := path.Dir(key); dir != "." {
		if err := s.root.MkdirAll(dir, 0o755); err != nil {
			return bucketgate.SaveResult{}, fmt.Errorf("create parent directories: %w", err)
		}
	}

	if renameErr := s.root.Rename(tmpFile, key); renameErr != nil {
		return bucketgate.SaveResult{}, fmt.Errorf("rename into place: %w", renameErr)
	}

	success = true
	return bucketgate.SaveResult{BytesWritten: written, ETag: hex.EncodeToString(h.Sum(nil))}, nil
}

// Delete removes the file for key and prunes parent directories left empty.
// Returns bucketgate.ErrNotFound if the file does not exist.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.root.Remove(key); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return bucketgate.ErrNotFound
		}
		return fmt.Errorf("delete %s: %w", key, err)
	}

	for dir := path.Dir(key); dir != "."; dir = path.Dir(dir) {
		// Remove fails on non-empty directories, which ends the walk.
		if err := s.root.Remove(dir); err != nil {
			break
		}
	}

	return nil
}

// List walks the root and returns an entry for every stored file, with the
// ETag computed from its content and the content type taken from its
// extension. Leftover temp files are skipped.
func (s *Store) List(ctx context.Context) ([]bucketgate.ObjectEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []bucketgate.ObjectEntry

	if err := s.walkDir(ctx, ".", &entries); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	return entries, nil
}

func (s *Store) walkDir(ctx context.Context, dir string, entries *[]bucketgate.ObjectEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dirEntries, err := fs.ReadDir(s.root.FS(), dir)
	if err != nil {
		return err
	}

	for _, entry := range dirEntries {
		if err := ctx.Err(); err != nil {
			return err
		}

		entryPath := path.Join(dir, entry.Name())

		if entry.IsDir() {
			if err := s.walkDir(ctx, entryPath, entries); err != nil {
				return err
			}
			continue
		}

		if strings.HasPrefix(entry.Name(), tmpPrefix) || !bucketgate.IsValidKey(entryPath) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("walk dir: %w", err)
		}

		etag, err := s.hashFile(entryPath)
		if err != nil {
			return fmt.Errorf("walk dir: %w", err)
		}

		*entries = append(*entries, bucketgate.ObjectEntry{
			Key:          entryPath,
			Size:         info.Size(),
			ETag:         etag,
			HTTPMetadata: bucketgate.HTTPMetadata{ContentType: detectContentType(entryPath)},
		})
	}

	return nil
}

func (s *Store) hashFile(name string) (string, error) {
	f, err := s.root.Open(name)
	if err != nil {
		return "", err
	}

	h := md5.New()
	_, copyErr := io.Copy(h, f)

	if closeErr := f.Close(); closeErr != nil {
		slog.Warn("failed to close file", "key", name, "err", closeErr)
	}

	if copyErr != nil {
		return "", copyErr
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func detectContentType(key string) string {
	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}

func tmpFileName() string {
	return tmpPrefix + uuid.New().String()
}
