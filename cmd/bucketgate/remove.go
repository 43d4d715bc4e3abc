package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/bucketgate"
	"github.com/sagarc03/bucketgate/config"
)

var removeCmd = &cobra.Command{
	Use:   "remove [flags] <key1> [key2] ...",
	Short: "Remove objects from a binding",
	Long: `Delete objects from the selected binding.

Examples:
  # Remove a single object
  bucketgate remove --binding assets myfile.txt

  # Remove every object under a prefix
  bucketgate remove --binding assets --prefix images/

  # Remove quietly (suppress per-object output)
  bucketgate remove --binding assets -q file.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemove,
}

var (
	removePrefix bool
	removeQuiet  bool
)

func init() {
	removeCmd.Flags().BoolVarP(&removePrefix, "prefix", "p", false, "treat arguments as prefixes and remove all matching objects")
	removeCmd.Flags().BoolVarP(&removeQuiet, "quiet", "q", false, "suppress per-object output")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	bucket, closer, err := openSelected(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closer() }()

	removed := 0
	notFound := 0

	for _, arg := range args {
		if removePrefix {
			count, prefixErr := removeByPrefix(ctx, bucket, arg)
			if prefixErr != nil {
				return prefixErr
			}
			removed += count
			continue
		}

		// Delete is idempotent, so Head tells a missing key apart.
		if _, headErr := bucket.Head(ctx, arg); errors.Is(headErr, bucketgate.ErrNotFound) {
			notFound++
			if !removeQuiet {
				slog.Warn("not found", "key", arg)
			}
			continue
		}

		if deleteErr := bucket.Delete(ctx, arg); deleteErr != nil {
			return fmt.Errorf("remove %s: %w", arg, deleteErr)
		}
		removed++
		if !removeQuiet {
			slog.Info("removed", "key", arg)
		}
	}

	slog.Info("remove complete", "removed", removed, "not_found", notFound)
	return nil
}

// removeByPrefix deletes every object whose key starts with prefix.
func removeByPrefix(ctx context.Context, bucket bucketgate.Bucket, prefix string) (int, error) {
	removed := 0
	cursor := ""

	for {
		result, err := bucket.List(ctx, bucketgate.ListOptions{
			Prefix: prefix,
			Limit:  bucketgate.MaxListLimit,
			Cursor: cursor,
		})
		if err != nil {
			return removed, fmt.Errorf("list prefix %s: %w", prefix, err)
		}

		for _, obj := range result.Objects {
			if err := bucket.Delete(ctx, obj.Key); err != nil {
				return removed, fmt.Errorf("remove %s: %w", obj.Key, err)
			}
			removed++
			if !removeQuiet {
				slog.Info("removed", "key", obj.Key)
			}
		}

		if !result.Truncated || result.Cursor == "" {
			break
		}
		cursor = result.Cursor
	}

	return removed, nil
}
