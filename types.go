package bucketgate

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// HTTPMetadata holds the HTTP-shaped metadata a store keeps with an object.
// Empty fields are treated as unset.
type HTTPMetadata struct {
	ContentType        string `json:"contentType,omitempty"`
	ContentLanguage    string `json:"contentLanguage,omitempty"`
	ContentDisposition string `json:"contentDisposition,omitempty"`
	CacheControl       string `json:"cacheControl,omitempty"`
	ContentEncoding    string `json:"contentEncoding,omitempty"`
}

// IsZero reports whether no field is set.
func (m HTTPMetadata) IsZero() bool {
	return m == HTTPMetadata{}
}

// WriteHTTPMetadata sets every non-empty field on h.
func (m HTTPMetadata) WriteHTTPMetadata(h http.Header) {
	setIfPresent(h, "Content-Type", m.ContentType)
	setIfPresent(h, "Content-Language", m.ContentLanguage)
	setIfPresent(h, "Content-Disposition", m.ContentDisposition)
	setIfPresent(h, "Cache-Control", m.CacheControl)
	setIfPresent(h, "Content-Encoding", m.ContentEncoding)
}

func setIfPresent(h http.Header, name, value string) {
	if value != "" {
		h.Set(name, value)
	}
}

// MetadataWriter renders an object's metadata onto a header set using the
// conventions of the store that produced it.
type MetadataWriter interface {
	WriteHTTPMetadata(h http.Header)
}

// Object is the record a Bucket returns for a stored item.
type Object struct {
	Key            string
	Size           int64
	Uploaded       time.Time
	ETag           string
	CustomMetadata map[string]string
	HTTPMetadata   HTTPMetadata

	// Body is only set on objects returned by Bucket.Get. The caller must close it.
	Body io.ReadCloser

	// Writer is optional. When nil the object has no store-specific header rendering.
	Writer MetadataWriter
}

// HTTPETag returns the ETag in its quoted header form, or "" if the store
// reported none.
func (o *Object) HTTPETag() string {
	if o.ETag == "" {
		return ""
	}
	if strings.HasPrefix(o.ETag, `"`) || strings.HasPrefix(o.ETag, `W/"`) {
		return o.ETag
	}
	return `"` + o.ETag + `"`
}

// ObjectEntry is what a metadata repository persists for one object.
type ObjectEntry struct {
	Key            string
	Size           int64
	ETag           string
	HTTPMetadata   HTTPMetadata
	CustomMetadata map[string]string
}

// ListOptions selects a page of objects.
type ListOptions struct {
	Prefix string
	Cursor string
	// Limit is the page size. Zero means the store default.
	Limit int
	// Delimiter groups keys sharing a prefix up to the delimiter into
	// DelimitedPrefixes. Empty means a flat listing.
	Delimiter string
}

// ListResult is one page of a listing.
type ListResult struct {
	Objects           []Object
	DelimitedPrefixes []string
	Truncated         bool
	// Cursor resumes the listing. Empty when the listing is exhausted.
	Cursor string
}

// PutOptions carries the metadata stored alongside a new object.
type PutOptions struct {
	// HTTPMetadata is nil when the caller supplied none.
	HTTPMetadata   *HTTPMetadata
	CustomMetadata map[string]string
	// Size is the body length in bytes, or -1 when unknown.
	Size int64
}

// SaveResult reports what FileStorage.Write persisted.
type SaveResult struct {
	BytesWritten int64
	ETag         string
}

// Tables holds configurable table names for metadata storage.
// This allows several bindings to share one database.
type Tables struct {
	Objects string `mapstructure:"objects"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Objects == "" {
		return errors.New("validate tables: objects table name cannot be empty")
	}

	if !IsValidTableName(t.Objects) {
		return fmt.Errorf("validate tables: invalid objects table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Objects)
	}

	return nil
}
