package bucketgate

import (
	"strings"
	"unicode/utf8"
)

// IsValidKey reports whether key can be stored by a path-addressed backend
// such as the filesystem. It checks that the key:
//   - is not empty, ".", or "/"
//   - is relative (does not start with "/")
//   - does not end with "/"
//   - does not contain ".." (path traversal)
//   - does not contain "//" (empty segments)
//   - does not contain a backslash
//   - is valid UTF-8
//   - does not contain "." segments (/./ or ending with /.)
//   - does not contain null bytes, control characters (< 0x20) or DEL (0x7f)
func IsValidKey(key string) bool {
	if key == "" || key == "/" || key == "." {
		return false
	}

	if key[0] == '/' {
		return false
	}

	if strings.HasSuffix(key, "/") {
		return false
	}

	if strings.Contains(key, "..") {
		return false
	}

	if strings.Contains(key, "//") {
		return false
	}

	if strings.ContainsRune(key, '\\') {
		return false
	}

	if !utf8.ValidString(key) {
		return false
	}

	if strings.HasPrefix(key, "./") || strings.Contains(key, "/./") || strings.HasSuffix(key, "/.") {
		return false
	}

	for _, r := range key {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}

	return true
}
