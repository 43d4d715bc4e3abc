package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sagarc03/bucketgate"
)

// Env is the per-request view of the gateway configuration: the name of the
// binding to serve and every binding that was opened.
type Env struct {
	Binding string
	Buckets map[string]bucketgate.Bucket
}

func (e Env) bucket() (bucketgate.Bucket, error) {
	if e.Binding == "" {
		return nil, newError(http.StatusInternalServerError, "Missing environment variable %q", BindingEnvVar)
	}

	b, ok := e.Buckets[e.Binding]
	if !ok || b == nil {
		return nil, newError(http.StatusInternalServerError, "Bucket binding %q not found", e.Binding)
	}

	return b, nil
}

// Serve handles one gateway request against the bucket env selects.
//
// OPTIONS is answered before the binding is resolved. Every response carries
// the cross-origin headers.
func Serve(w http.ResponseWriter, r *http.Request, env Env) {
	w = withCORS(w)

	method := strings.ToUpper(r.Method)
	if method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := dispatch(w, r, method, env); err != nil {
		HandleError(w, r, err)
	}
}

func dispatch(w http.ResponseWriter, r *http.Request, method string, env Env) error {
	bucket, err := env.bucket()
	if err != nil {
		return err
	}

	key, err := objectKey(r.URL)
	if err != nil {
		return err
	}

	if key == "" && method != http.MethodGet {
		return newError(http.StatusBadRequest, "Object key is required")
	}

	switch method {
	case http.MethodGet:
		if key == "" {
			return handleList(w, r, bucket)
		}
		return handleGet(w, r, bucket, key)
	case http.MethodHead:
		return handleHead(w, r, bucket, key)
	case http.MethodPut, http.MethodPost:
		return handlePut(w, r, bucket, key)
	case http.MethodDelete:
		return handleDelete(w, r, bucket, key)
	default:
		return newError(http.StatusMethodNotAllowed, "Method %s not allowed", method)
	}
}

// objectKey percent-decodes the request path after stripping its leading
// slashes. Escapes that decode to invalid UTF-8 are rejected.
func objectKey(u *url.URL) (string, error) {
	key, err := url.PathUnescape(strings.TrimLeft(u.EscapedPath(), "/"))
	if err != nil || !utf8.ValidString(key) {
		return "", newError(http.StatusBadRequest, "Invalid object key")
	}
	return key, nil
}

// uploadedLayout renders list timestamps in UTC with millisecond precision.
const uploadedLayout = "2006-01-02T15:04:05.000Z07:00"

type listObject struct {
	Key            string                  `json:"key"`
	Size           int64                   `json:"size"`
	Uploaded       string                  `json:"uploaded"`
	ETag           string                  `json:"etag,omitempty"`
	CustomMetadata map[string]string       `json:"customMetadata"`
	HTTPMetadata   bucketgate.HTTPMetadata `json:"httpMetadata"`
}

type listResponse struct {
	Objects           []listObject `json:"objects"`
	DelimitedPrefixes []string     `json:"delimitedPrefixes"`
	Truncated         bool         `json:"truncated"`
	Cursor            *string      `json:"cursor"`
}

// parseLimit returns the page size requested by the limit query value.
// A missing, non-numeric or non-positive value leaves the store default.
func parseLimit(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0
	}
	return min(n, bucketgate.MaxListLimit)
}

func handleList(w http.ResponseWriter, r *http.Request, bucket bucketgate.Bucket) error {
	q := r.URL.Query()

	result, err := bucket.List(r.Context(), bucketgate.ListOptions{
		Prefix:    q.Get("prefix"),
		Cursor:    q.Get("cursor"),
		Limit:     parseLimit(q.Get("limit")),
		Delimiter: q.Get("delimiter"),
	})
	if err != nil {
		return err
	}

	resp := listResponse{
		Objects:           make([]listObject, 0, len(result.Objects)),
		DelimitedPrefixes: result.DelimitedPrefixes,
		Truncated:         result.Truncated,
	}
	if resp.DelimitedPrefixes == nil {
		resp.DelimitedPrefixes = []string{}
	}
	if result.Cursor != "" {
		resp.Cursor = &result.Cursor
	}

	for i := range result.Objects {
		obj := &result.Objects[i]
		custom := obj.CustomMetadata
		if custom == nil {
			custom = map[string]string{}
		}
		resp.Objects = append(resp.Objects, listObject{
			Key:            obj.Key,
			Size:           obj.Size,
			Uploaded:       obj.Uploaded.UTC().Format(uploadedLayout),
			ETag:           obj.HTTPETag(),
			CustomMetadata: custom,
			HTTPMetadata:   obj.HTTPMetadata,
		})
	}

	// The status line is out once WriteJSON runs, so a failure here can only
	// be logged.
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		slog.WarnContext(r.Context(), "write list response",
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}

	return nil
}

func handleGet(w http.ResponseWriter, r *http.Request, bucket bucketgate.Bucket, key string) error {
	obj, err := bucket.Get(r.Context(), key)
	if err != nil {
		return err
	}
	if obj.Body == nil {
		obj.Body = http.NoBody
	}
	defer func() { _ = obj.Body.Close() }()

	h := w.Header()
	HeadersFromObject(obj, h)
	if _, ok := h["Content-Type"]; !ok {
		// An object stored without a type is served without one.
		h["Content-Type"] = nil
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, obj.Body); err != nil {
		slog.WarnContext(r.Context(), "stream object body",
			"key", key,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}

	return nil
}

func handleHead(w http.ResponseWriter, r *http.Request, bucket bucketgate.Bucket, key string) error {
	obj, err := bucket.Head(r.Context(), key)
	if err != nil {
		return err
	}

	HeadersFromObject(obj, w.Header())
	w.WriteHeader(http.StatusOK)
	return nil
}

func handlePut(w http.ResponseWriter, r *http.Request, bucket bucketgate.Bucket, key string) error {
	_, err := bucket.Put(r.Context(), key, r.Body, bucketgate.PutOptions{
		HTTPMetadata: MetadataFromHeaders(r.Header),
		Size:         r.ContentLength,
	})
	if err != nil {
		return err
	}

	w.Header().Set("Location", "/"+encodeURIComponent(key))
	w.WriteHeader(http.StatusCreated)
	return nil
}

func handleDelete(w http.ResponseWriter, r *http.Request, bucket bucketgate.Bucket, key string) error {
	if err := bucket.Delete(r.Context(), key); err != nil && !errors.Is(err, bucketgate.ErrNotFound) {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// encodeURIComponent escapes s the way browsers escape a URI component:
// everything except ASCII letters, digits and -_.!~*'() is percent-encoded.
func encodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreservedComponent(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreservedComponent(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

// EnvFunc resolves the Env for a request.
type EnvFunc func(*http.Request) Env

// Handler serves the gateway over a chi router.
type Handler struct {
	env     EnvFunc
	metrics func(http.Handler) http.Handler
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithMetrics adds an instrumentation middleware around the gateway routes.
func WithMetrics(mw func(http.Handler) http.Handler) HandlerOption {
	return func(h *Handler) { h.metrics = mw }
}

// NewHandler creates a Handler that resolves its Env per request through env.
func NewHandler(env EnvFunc, opts ...HandlerOption) *Handler {
	h := &Handler{env: env}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// StaticEnv returns an EnvFunc that always yields env.
func StaticEnv(env Env) EnvFunc {
	return func(*http.Request) Env { return env }
}

// Router returns an http.Handler that routes every path to Serve.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(RequestLogger)
	if h.metrics != nil {
		r.Use(h.metrics)
	}
	r.Use(CORS)
	r.Use(Recoverer)

	serve := func(w http.ResponseWriter, r *http.Request) {
		Serve(w, r, h.env(r))
	}
	r.HandleFunc("/", serve)
	r.HandleFunc("/*", serve)

	r.MethodNotAllowed(serve)
	r.NotFound(serve)

	return r
}
