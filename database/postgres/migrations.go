package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/bucketgate"
)

// Migrate creates every table in tables that does not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables bucketgate.Tables) error {
	if err := createObjectsTable(ctx, pool, tables.Objects); err != nil {
		return fmt.Errorf("migrate up %s: %w", tables.Objects, err)
	}
	return nil
}

// DropTables drops every table in tables.
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables bucketgate.Tables) error {
	sql := fmt.Sprintf("DROP TABLE IF EXISTS %s", pgx.Identifier{tables.Objects}.Sanitize())
	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("migrate down %s: %w", tables.Objects, err)
	}
	return nil
}

// createObjectsTable declares object_key with the "C" collation so the
// primary key orders bytewise regardless of the database locale.
func createObjectsTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	indexUploaded := pgx.Identifier{fmt.Sprintf("idx_%s_uploaded", tableName)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			object_key TEXT COLLATE "C" PRIMARY KEY,
			size BIGINT NOT NULL,
			etag TEXT NOT NULL,
			uploaded TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			content_type TEXT NOT NULL DEFAULT '',
			content_language TEXT NOT NULL DEFAULT '',
			content_disposition TEXT NOT NULL DEFAULT '',
			cache_control TEXT NOT NULL DEFAULT '',
			content_encoding TEXT NOT NULL DEFAULT '',
			custom_metadata JSONB NOT NULL DEFAULT '{}'::jsonb
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (uploaded);
	`,
		quotedTable,
		indexUploaded, quotedTable,
	)

	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create objects table: %w", err)
	}
	return nil
}
