package http

import (
	"net/http"
	"strconv"

	"github.com/sagarc03/bucketgate"
)

// MetadataFromHeaders reads the HTTP metadata a client sent with an upload.
// Only content-type, content-language, content-disposition, cache-control and
// content-encoding are recognized. It returns nil when none of them is set.
func MetadataFromHeaders(h http.Header) *bucketgate.HTTPMetadata {
	m := bucketgate.HTTPMetadata{
		ContentType:        h.Get("Content-Type"),
		ContentLanguage:    h.Get("Content-Language"),
		ContentDisposition: h.Get("Content-Disposition"),
		CacheControl:       h.Get("Cache-Control"),
		ContentEncoding:    h.Get("Content-Encoding"),
	}
	if m.IsZero() {
		return nil
	}
	return &m
}

// HeadersFromObject writes obj's metadata onto h. The store's MetadataWriter
// runs first; etag and content-length are set after it and take precedence.
func HeadersFromObject(obj *bucketgate.Object, h http.Header) {
	if obj.Writer != nil {
		obj.Writer.WriteHTTPMetadata(h)
	}
	if etag := obj.HTTPETag(); etag != "" {
		h.Set("ETag", etag)
	}
	if obj.Size >= 0 {
		h.Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
}
