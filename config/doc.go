// Package config provides configuration loading and validation for bucketgate.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (BUCKETGATE_ prefix)
//  4. CLI flags that were set explicitly
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx = config.WithContext(ctx, cfg)
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// Scalar keys map to environment variables with the BUCKETGATE_ prefix:
//   - server.port → BUCKETGATE_SERVER_PORT
//   - bucket.binding → BUCKETGATE_BUCKET_BINDING
//   - log.level → BUCKETGATE_LOG_LEVEL
//
// Bindings are a map and can only be declared in a config file.
//
// # Bindings
//
// Each entry under bindings names one store. Names are case-insensitive and
// are lowercased on load. The type selects which block is read:
//
//	bindings:
//	  assets:
//	    type: filesystem
//	    storage: {path: ./data}
//	    database: {type: sqlite, dsn: bucketgate.db}
//	  mirror:
//	    type: s3
//	    s3: {bucket: mirror, region: eu-west-1}
//
// Filesystem bindings default to a sqlite database, the bucketgate_objects
// table, and auto_migrate true. Bindings sharing one database must use
// distinct tables.
//
// # Validation
//
// Configuration is validated using struct tags plus per-type checks:
//   - Port must be 1-65535
//   - Binding type must be memory, filesystem, s3, or minio
//   - Log level must be debug, info, warn, or error
package config
