package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/bucketgate"

	_ "modernc.org/sqlite" // SQLite driver
)

// Database provides SQLite database operations.
type Database struct {
	db     *sql.DB
	tables bucketgate.Tables
}

// Connect opens a SQLite database. An in-memory DSN is pinned to a single
// connection so every query sees the same database.
// Tables should be validated before calling Connect.
func Connect(ctx context.Context, dsn string, tables bucketgate.Tables) (*Database, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	if isMemoryDSN(dsn) {
		db.SetMaxOpenConns(1)
	}

	return &Database{
		db:     db,
		tables: tables,
	}, nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || dsn == "file::memory:" || dsn == ""
}

// Ping verifies the database connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate creates the objects table and its indexes if they do not exist.
func (d *Database) Migrate(ctx context.Context) error {
	if err := Migrate(ctx, d.db, d.tables); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the database schema matches expected structure.
func (d *Database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.db, d.tables)
}

// GetRepo returns the MetaDataRepo for database operations.
func (d *Database) GetRepo() bucketgate.MetaDataRepo {
	return &Repo{db: d.db, tableName: d.tables.Objects}
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}
