// Package database connects to the metadata backends that hold object records
// for filesystem bindings.
//
// # Supported Backends
//
//   - PostgreSQL: pgx connection pool, keys collated "C" for byte order
//   - SQLite: modernc.org/sqlite, suitable for single-node deployments
//   - Badger: embedded key-value store, no external service
//
// # Usage
//
//	cfg := database.Config{
//	    Type:   "sqlite",
//	    DSN:    "bucketgate.db",
//	    Tables: bucketgate.Tables{Objects: "bucketgate_objects"},
//	}
//
//	db, err := database.Open(ctx, cfg, true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	repo := db.GetRepo()
//
// Open connects, pings, runs migrations when asked, and validates the schema.
// Connect only opens the connection.
//
// # Subpackages
//
//   - database/postgres: PostgreSQL implementation using pgx
//   - database/sqlite: SQLite implementation using modernc.org/sqlite
//   - database/badger: Badger implementation using dgraph-io/badger
//   - database/repotest: shared test suite for repository implementations
package database
