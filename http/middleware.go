package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

var corsHeaders = [][2]string{
	{"Access-Control-Allow-Origin", "*"},
	{"Access-Control-Allow-Headers", "*"},
	{"Access-Control-Allow-Methods", "GET,HEAD,PUT,POST,DELETE,OPTIONS"},
	{"Access-Control-Max-Age", "86400"},
}

// SetCORSHeaders sets the fixed cross-origin headers on h, replacing any
// existing values.
func SetCORSHeaders(h http.Header) {
	for _, kv := range corsHeaders {
		h.Set(kv[0], kv[1])
	}
}

// corsWriter applies the cross-origin headers when the response header is
// written, after the handler has set its own.
type corsWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func withCORS(w http.ResponseWriter) http.ResponseWriter {
	if _, ok := w.(*corsWriter); ok {
		return w
	}
	return &corsWriter{ResponseWriter: w}
}

func (c *corsWriter) WriteHeader(code int) {
	if !c.wroteHeader {
		SetCORSHeaders(c.Header())
		c.wroteHeader = true
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *corsWriter) Write(b []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	return c.ResponseWriter.Write(b)
}

func (c *corsWriter) Flush() {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	_ = http.NewResponseController(c.ResponseWriter).Flush()
}

func (c *corsWriter) Unwrap() http.ResponseWriter {
	return c.ResponseWriter
}

// CORS applies the cross-origin headers to every response, whether or not
// the request carried an Origin header.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(withCORS(w), r)
	})
}

// RequestID assigns each request an id, taken from the X-Request-Id header
// when the client sent one, and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(middleware.RequestIDHeader, middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r)
	}))
}

// RequestLogger logs one line per request through slog.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}

		slog.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Recoverer turns a panic in a handler into the generic 500 error response.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			HandleError(w, r, fmt.Errorf("panic: %v\n%s", rec, debug.Stack()))
		}()

		next.ServeHTTP(w, r)
	})
}
