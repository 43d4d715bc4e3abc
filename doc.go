// Package bucketgate provides the object model and store contracts behind a
// thin HTTP-to-object-storage gateway.
//
// The gateway itself lives in the http package: it maps REST verbs against a
// URL path onto one of five bucket operations (list, get, head, put, delete)
// and translates object metadata to and from HTTP headers. This package holds
// what the gateway and the store backends share.
//
// # Key Components
//
//   - Bucket: the store contract every backend implements
//   - Object, HTTPMetadata: the object record and its HTTP-shaped metadata
//   - MetadataWriter: optional capability a store uses to render headers
//   - ScanList: builds paginated, delimiter-aware listings from a KeyScanner
//   - StoreBucket: a Bucket composed of FileStorage and a MetaDataRepo
//
// # Backends
//
//   - memory: in-process bucket, mostly for tests and local use
//   - StoreBucket with filesystem storage and a sqlite, postgres or badger
//     metadata repo (see the database package)
//   - s3: AWS S3 and S3-compatible services through aws-sdk-go-v2
//   - minio: MinIO through minio-go
//
// # Example Usage
//
//	repo, closeDB, err := database.Connect(ctx, database.Config{Type: "sqlite", DSN: "objects.db"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer closeDB()
//
//	bucket := bucketgate.NewStoreBucket(repo, filesystem.NewFileStorage(root), bucketgate.StoreConfig{})
//
//	obj, err := bucket.Put(ctx, "docs/readme.txt", body, bucketgate.PutOptions{Size: -1})
package bucketgate
