package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/bucketgate"
)

// Database provides PostgreSQL database operations over a pgx pool.
type Database struct {
	pool   *pgxpool.Pool
	tables bucketgate.Tables
}

// Connect creates a connection pool for dsn.
// Tables should be validated before calling Connect.
func Connect(ctx context.Context, dsn string, tables bucketgate.Tables) (*Database, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &Database{
		pool:   pool,
		tables: tables,
	}, nil
}

// Ping verifies the database connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Migrate creates the objects table and its indexes if they do not exist.
func (d *Database) Migrate(ctx context.Context) error {
	if err := Migrate(ctx, d.pool, d.tables); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the database schema matches expected structure.
func (d *Database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.pool, d.tables)
}

// GetRepo returns the MetaDataRepo for database operations.
func (d *Database) GetRepo() bucketgate.MetaDataRepo {
	return &Repo{pool: d.pool, tableName: d.tables.Objects}
}

// Close closes the database connection pool.
func (d *Database) Close() error {
	d.pool.Close()
	return nil
}
