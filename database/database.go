package database

import (
	"context"
	"fmt"

	"github.com/sagarc03/bucketgate"
	"github.com/sagarc03/bucketgate/database/badger"
	"github.com/sagarc03/bucketgate/database/postgres"
	"github.com/sagarc03/bucketgate/database/sqlite"
)

// Database is a connected metadata backend.
type Database interface {
	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error
	// Migrate creates the tables the repository needs. It is idempotent.
	Migrate(ctx context.Context) error
	// Validate checks that the schema matches what the repository expects.
	Validate(ctx context.Context) error
	// GetRepo returns the repository backed by this database.
	GetRepo() bucketgate.MetaDataRepo
	// Close releases the connection.
	Close() error
}

// Config holds the configuration for connecting to a metadata backend.
type Config struct {
	// Type is the backend: "sqlite", "postgres" or "badger".
	Type string
	// DSN is the data source name: a file or ":memory:" for SQLite, a
	// connection string for PostgreSQL, a directory or ":memory:" for Badger.
	DSN string
	// Tables names the tables (or key namespaces) the repository uses.
	Tables bucketgate.Tables
}

// Connect opens the configured backend. It does not migrate or validate;
// see Open.
func Connect(ctx context.Context, cfg Config) (Database, error) {
	if err := cfg.Tables.Validate(); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	var (
		db  Database
		err error
	)

	switch cfg.Type {
	case "sqlite":
		db, err = asDatabase(sqlite.Connect(ctx, cfg.DSN, cfg.Tables))
	case "postgres":
		db, err = asDatabase(postgres.Connect(ctx, cfg.DSN, cfg.Tables))
	case "badger":
		db, err = asDatabase(badger.Connect(ctx, cfg.DSN, cfg.Tables))
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	return db, err
}

// asDatabase keeps a failed connect from producing a non-nil interface
// holding a nil pointer.
func asDatabase[T Database](db T, err error) (Database, error) {
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Open connects, pings, optionally migrates, and validates the schema,
// returning a ready database. The caller must Close it.
func Open(ctx context.Context, cfg Config, migrate bool) (Database, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Type, err)
	}

	if migrate {
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate %s: %w", cfg.Type, err)
		}
	}

	if err := db.Validate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("validate %s schema: %w", cfg.Type, err)
	}

	return db, nil
}
