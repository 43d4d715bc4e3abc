package bucketgate

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultListLimit is the page size used when ListOptions.Limit is zero.
	DefaultListLimit = 1000
	// MaxListLimit caps ListOptions.Limit.
	MaxListLimit = 1000
)

// NormalizeLimit applies the default and the cap to a requested page size.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}

// KeyScanner returns up to n objects whose keys start with prefix and sort
// strictly after after, in ascending byte order.
type KeyScanner func(ctx context.Context, prefix, after string, n int) ([]Object, error)

// EncodeCursor encodes a listing position into an opaque cursor.
func EncodeCursor(after string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(after))
}

// DecodeCursor decodes a cursor produced by EncodeCursor. An empty cursor
// decodes to the start of the listing.
func DecodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", fmt.Errorf("decode cursor: %w: %w", ErrInvalidInput, err)
	}

	if !utf8.Valid(decoded) {
		return "", fmt.Errorf("decode cursor: %w: not utf-8", ErrInvalidInput)
	}

	return string(decoded), nil
}

// groupEnd returns a position that sorts after every key starting with prefix
// that the gateway can store.
func groupEnd(prefix string) string {
	return prefix + string(utf8.MaxRune)
}

// ScanList builds a page of results from scan.
//
// When opts.Delimiter is set, keys that contain the delimiter after the prefix
// collapse into one delimited prefix each, and the scan skips past the rest of
// that group. Prefixes and objects both count against the limit.
func ScanList(ctx context.Context, scan KeyScanner, opts ListOptions) (ListResult, error) {
	limit := NormalizeLimit(opts.Limit)

	after, err := DecodeCursor(opts.Cursor)
	if err != nil {
		return ListResult{}, fmt.Errorf("scan list: %w", err)
	}

	result := ListResult{
		Objects:           []Object{},
		DelimitedPrefixes: []string{},
	}

	emitted := 0
	lastGroup := ""

	for {
		if err := ctx.Err(); err != nil {
			return ListResult{}, fmt.Errorf("scan list: %w", err)
		}

		batch, err := scan(ctx, opts.Prefix, after, limit+1)
		if err != nil {
			return ListResult{}, fmt.Errorf("scan list: %w", err)
		}

		for _, obj := range batch {
			group := delimitedGroup(obj.Key, opts.Prefix, opts.Delimiter)
			if group != "" && group == lastGroup {
				continue
			}

			if emitted == limit {
				result.Truncated = true
				result.Cursor = EncodeCursor(after)
				return result, nil
			}

			if group != "" {
				result.DelimitedPrefixes = append(result.DelimitedPrefixes, group)
				lastGroup = group
				after = groupEnd(group)
			} else {
				result.Objects = append(result.Objects, obj)
				after = obj.Key
			}
			emitted++
		}

		if len(batch) <= limit {
			return result, nil
		}
	}
}

func delimitedGroup(key, prefix, delimiter string) string {
	if delimiter == "" {
		return ""
	}

	rest := strings.TrimPrefix(key, prefix)
	i := strings.Index(rest, delimiter)
	if i < 0 {
		return ""
	}

	return prefix + rest[:i+len(delimiter)]
}
