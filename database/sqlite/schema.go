package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sagarc03/bucketgate"
	"github.com/sagarc03/bucketgate/database/internal"
)

// objectsSchema is the layout createObjectsTable produces. Timestamps and
// custom metadata are stored as text.
var objectsSchema = internal.Schema{
	Columns: []internal.Column{
		{Name: "object_key", Type: "text"},
		{Name: "size", Type: "integer"},
		{Name: "etag", Type: "text"},
		{Name: "uploaded", Type: "text"},
		{Name: "content_type", Type: "text"},
		{Name: "content_language", Type: "text"},
		{Name: "content_disposition", Type: "text"},
		{Name: "cache_control", Type: "text"},
		{Name: "content_encoding", Type: "text"},
		{Name: "custom_metadata", Type: "text"},
	},
	PrimaryKey: []string{"object_key"},
}

// ValidateSchema checks that the objects table exists, has the columns the
// repository reads and writes, and is keyed by object_key.
func ValidateSchema(ctx context.Context, db *sql.DB, tables bucketgate.Tables) error {
	table := tables.Objects
	if !bucketgate.IsValidTableName(table) {
		return fmt.Errorf("validate schema: invalid table name: %s", table)
	}

	found, primaryKey, err := describeTable(ctx, db, table)
	if err != nil {
		return fmt.Errorf("validate schema %s: %w", table, err)
	}
	if len(found) == 0 {
		return fmt.Errorf("validate schema %s: table does not exist", table)
	}

	if err := objectsSchema.Check(table, found, primaryKey); err != nil {
		return fmt.Errorf("validate schema %s: %w", table, err)
	}

	return nil
}

// describeTable reads table_info for table. A missing table yields no
// columns rather than an error.
func describeTable(ctx context.Context, db *sql.DB, table string) (map[string]internal.Column, []string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdentifier(table)))
	if err != nil {
		return nil, nil, fmt.Errorf("query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	found := make(map[string]internal.Column)
	keyed := make(map[int]string)
	for rows.Next() {
		var (
			cid      int
			name     string
			dataType string
			notNull  int
			dflt     sql.NullString
			pk       int
		)
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dflt, &pk); err != nil {
			return nil, nil, fmt.Errorf("scan column: %w", err)
		}

		found[name] = internal.Column{
			Name:     name,
			Type:     strings.ToLower(dataType),
			Nullable: notNull == 0,
		}
		if pk > 0 {
			keyed[pk] = name
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("read columns: %w", err)
	}

	// pk is the 1-based position within the primary key.
	primaryKey := make([]string, 0, len(keyed))
	for i := 1; i <= len(keyed); i++ {
		primaryKey = append(primaryKey, keyed[i])
	}

	return found, primaryKey, nil
}
