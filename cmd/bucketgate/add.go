package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sagarc03/bucketgate"
	"github.com/sagarc03/bucketgate/config"
)

var addCmd = &cobra.Command{
	Use:   "add [flags] <file1> [file2] ...",
	Short: "Upload local files into a binding",
	Long: `Upload local files into the selected binding. Keys are the file names,
or paths relative to the given directory with -r, under an optional prefix.

Examples:
  # Add a single file
  bucketgate add --binding assets /path/to/file.txt

  # Add with a key prefix
  bucketgate add --binding assets --dest images/ /path/to/photo.jpg

  # Add a directory recursively
  bucketgate add --binding assets -r /path/to/assets

  # Skip keys that already exist
  bucketgate add --binding assets --no-clobber /path/to/file.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var (
	addDest      string
	addRecursive bool
	addNoClobber bool
	addQuiet     bool
)

func init() {
	addCmd.Flags().StringVarP(&addDest, "dest", "d", "", "key prefix in the binding")
	addCmd.Flags().BoolVarP(&addRecursive, "recursive", "r", false, "recursively add directories")
	addCmd.Flags().BoolVarP(&addNoClobber, "no-clobber", "n", false, "skip existing keys instead of overwriting")
	addCmd.Flags().BoolVarP(&addQuiet, "quiet", "q", false, "suppress per-file output")
	rootCmd.AddCommand(addCmd)
}

// fileEntry is a local file and the key it is stored under.
type fileEntry struct {
	sourcePath string
	key        string
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	var files []fileEntry
	for _, arg := range args {
		entries, collectErr := collectFiles(arg, addRecursive, addDest)
		if collectErr != nil {
			return fmt.Errorf("collect files from %s: %w", arg, collectErr)
		}
		files = append(files, entries...)
	}

	if len(files) == 0 {
		slog.Info("no files to add")
		return nil
	}

	bucket, closer, err := openSelected(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closer() }()

	added := 0
	skipped := 0

	for _, entry := range files {
		if addNoClobber {
			if _, headErr := bucket.Head(ctx, entry.key); headErr == nil {
				skipped++
				if !addQuiet {
					slog.Info("skipped (exists)", "key", entry.key)
				}
				continue
			}
		}

		if putErr := putFile(cmd, bucket, entry); putErr != nil {
			return putErr
		}

		added++
	}

	slog.Info("add complete", "added", added, "skipped", skipped)
	return nil
}

func putFile(cmd *cobra.Command, bucket bucketgate.Bucket, entry fileEntry) error {
	f, err := os.Open(entry.sourcePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", entry.sourcePath, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", entry.sourcePath, err)
	}

	contentType := detectContentType(entry.sourcePath)

	obj, err := bucket.Put(cmd.Context(), entry.key, f, bucketgate.PutOptions{
		Size:         info.Size(),
		HTTPMetadata: &bucketgate.HTTPMetadata{ContentType: contentType},
	})
	if err != nil {
		return fmt.Errorf("add %s: %w", entry.key, err)
	}

	if !addQuiet {
		slog.Info("added", "key", obj.Key, "size", obj.Size, "etag", obj.ETag, "content_type", contentType)
	}
	return nil
}

// collectFiles gathers files from a path, optionally recursively.
func collectFiles(path string, recursive bool, destPrefix string) ([]fileEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	// Normalize dest prefix - ensure it ends with / if non-empty
	destPrefix = strings.TrimPrefix(destPrefix, "/")
	if destPrefix != "" && !strings.HasSuffix(destPrefix, "/") {
		destPrefix += "/"
	}

	if !info.IsDir() {
		return []fileEntry{{sourcePath: path, key: destPrefix + filepath.Base(path)}}, nil
	}

	if !recursive {
		return nil, fmt.Errorf("%s is a directory (use -r to add recursively)", path)
	}

	var entries []fileEntry
	walkErr := filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		relPath, relErr := filepath.Rel(path, walkPath)
		if relErr != nil {
			return relErr
		}

		entries = append(entries, fileEntry{
			sourcePath: walkPath,
			key:        destPrefix + filepath.ToSlash(relPath),
		})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return entries, nil
}

// detectContentType determines the MIME type from a file's extension.
func detectContentType(path string) string {
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}
