// Package internal holds helpers shared by the SQL metadata repositories.
package internal

import (
	"encoding/json"
	"fmt"
	"strings"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLikePattern escapes s for use in a LIKE pattern with ESCAPE '\'.
func EscapeLikePattern(s string) string {
	return likeEscaper.Replace(s)
}

var globEscaper = strings.NewReplacer(`[`, `[[]`, `*`, `[*]`, `?`, `[?]`)

// EscapeGlobPattern escapes s for use in a SQLite GLOB pattern. GLOB is
// case sensitive, unlike SQLite's LIKE.
func EscapeGlobPattern(s string) string {
	return globEscaper.Replace(s)
}

// EncodeCustomMetadata renders custom metadata as a JSON object. A nil map
// is stored as "{}".
func EncodeCustomMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}

	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode custom metadata: %w", err)
	}

	return string(b), nil
}

// DecodeCustomMetadata parses a JSON object written by EncodeCustomMetadata.
// An empty object decodes to nil.
func DecodeCustomMetadata(data []byte) (map[string]string, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode custom metadata: %w", err)
	}

	if len(m) == 0 {
		return nil, nil
	}

	return m, nil
}
