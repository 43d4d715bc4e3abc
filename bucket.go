package bucketgate

import (
	"context"
	"io"
)

// Bucket is the object store contract the gateway depends on.
//
// All methods accept a context for cancellation. Implementations must be safe
// for concurrent use; the gateway calls them from one goroutine per request.
type Bucket interface {
	// List returns one page of objects matching opts.
	//
	// Returns:
	//   - ListResult: objects in ascending key order, delimited prefixes when
	//     opts.Delimiter is set, and a cursor when more results remain
	//   - error: ErrInvalidInput for a malformed cursor, or store errors
	List(ctx context.Context, opts ListOptions) (ListResult, error)

	// Get returns the object at key with its Body set.
	//
	// Returns:
	//   - *Object: the object record; the caller must close Body
	//   - error: ErrNotFound if key doesn't exist, or store errors
	Get(ctx context.Context, key string) (*Object, error)

	// Head returns the object record at key without a body.
	//
	// Returns:
	//   - error: ErrNotFound if key doesn't exist, or store errors
	Head(ctx context.Context, key string) (*Object, error)

	// Put stores body at key, replacing any existing object and its metadata.
	// The body is streamed to the store, not buffered in full.
	//
	// Returns:
	//   - *Object: the stored object record (Body is nil)
	//   - error: ErrInvalidInput if the store rejects the key, or store errors
	Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (*Object, error)

	// Delete removes the object at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
