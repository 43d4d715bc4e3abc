package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/bucketgate"
	"github.com/sagarc03/bucketgate/database/internal"
)

// objectsSchema is the layout createObjectsTable produces, with types as
// information_schema names them.
var objectsSchema = internal.Schema{
	Columns: []internal.Column{
		{Name: "object_key", Type: "text"},
		{Name: "size", Type: "bigint"},
		{Name: "etag", Type: "text"},
		{Name: "uploaded", Type: "timestamp with time zone"},
		{Name: "content_type", Type: "text"},
		{Name: "content_language", Type: "text"},
		{Name: "content_disposition", Type: "text"},
		{Name: "cache_control", Type: "text"},
		{Name: "content_encoding", Type: "text"},
		{Name: "custom_metadata", Type: "jsonb"},
	},
	PrimaryKey: []string{"object_key"},
}

const columnsQuery = `
	SELECT column_name, data_type, is_nullable
	FROM information_schema.columns
	WHERE table_schema = current_schema() AND table_name = $1
	ORDER BY ordinal_position
`

const primaryKeyQuery = `
	SELECT kcu.column_name
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
		ON kcu.constraint_schema = tc.constraint_schema
		AND kcu.constraint_name = tc.constraint_name
	WHERE tc.table_schema = current_schema()
		AND tc.table_name = $1
		AND tc.constraint_type = 'PRIMARY KEY'
	ORDER BY kcu.ordinal_position
`

// ValidateSchema checks that the objects table exists in the current schema,
// has the columns the repository reads and writes, and is keyed by
// object_key.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool, tables bucketgate.Tables) error {
	table := tables.Objects
	if !bucketgate.IsValidTableName(table) {
		return fmt.Errorf("validate schema: invalid table name: %s", table)
	}

	found, err := tableColumns(ctx, pool, table)
	if err != nil {
		return fmt.Errorf("validate schema %s: %w", table, err)
	}
	if len(found) == 0 {
		return fmt.Errorf("validate schema %s: table does not exist", table)
	}

	primaryKey, err := tablePrimaryKey(ctx, pool, table)
	if err != nil {
		return fmt.Errorf("validate schema %s: %w", table, err)
	}

	if err := objectsSchema.Check(table, found, primaryKey); err != nil {
		return fmt.Errorf("validate schema %s: %w", table, err)
	}

	return nil
}

func tableColumns(ctx context.Context, pool *pgxpool.Pool, table string) (map[string]internal.Column, error) {
	rows, err := pool.Query(ctx, columnsQuery, table)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	found := make(map[string]internal.Column)
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		found[name] = internal.Column{
			Name:     name,
			Type:     strings.ToLower(dataType),
			Nullable: nullable == "YES",
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	return found, nil
}

func tablePrimaryKey(ctx context.Context, pool *pgxpool.Pool, table string) ([]string, error) {
	rows, err := pool.Query(ctx, primaryKeyQuery, table)
	if err != nil {
		return nil, fmt.Errorf("query primary key: %w", err)
	}
	defer rows.Close()

	var key []string
	for rows.Next() {
		var column string
		if err := rows.Scan(&column); err != nil {
			return nil, fmt.Errorf("scan primary key: %w", err)
		}
		key = append(key, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read primary key: %w", err)
	}

	return key, nil
}
