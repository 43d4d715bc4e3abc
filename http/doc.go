// Package http exposes a bucketgate.Bucket over a small REST surface.
//
// The request path, with leading slashes stripped and percent-decoding
// applied, is the object key. Methods map onto bucket operations:
//
//	OPTIONS any     204, cross-origin headers only
//	GET     /       list objects (prefix, cursor, limit, delimiter)
//	GET     /<key>  object body with its metadata as headers
//	HEAD    /<key>  metadata headers only
//	PUT     /<key>  store the request body (POST behaves the same)
//	DELETE  /<key>  remove the object; 204 even if it was absent
//
// Every response carries the same permissive CORS headers, errors included.
// Errors are JSON objects of the form {"error":"<message>"}.
//
// # Bindings
//
// Which bucket is served is decided per request from an Env: the binding
// name (BUCKETGATE_BUCKET_BINDING) and the set of opened buckets. A missing
// name or an unknown binding is reported as a 500 naming what is missing.
//
// # Usage
//
//	env := http.Env{
//	    Binding: "assets",
//	    Buckets: map[string]bucketgate.Bucket{"assets": memory.New()},
//	}
//	handler := http.NewHandler(http.StaticEnv(env))
//	http.ListenAndServe(":8787", handler.Router())
//
// Serve can also be called directly from any net/http handler.
package http
