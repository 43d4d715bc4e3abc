package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/bucketgate"
)

// quoteIdentifier quotes a SQLite identifier. Names are validated with
// bucketgate.IsValidTableName before they get here.
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

type TableMigration struct {
	TableName string
	Up        func(ctx context.Context, db *sql.DB) error
	Down      func(ctx context.Context, db *sql.DB) error
}

func getTableMigrations(tables bucketgate.Tables) []TableMigration {
	return []TableMigration{
		{
			TableName: tables.Objects,
			Up:        createObjectsTable(tables.Objects),
			Down:      dropTable(tables.Objects),
		},
	}
}

// Migrate creates every table in tables that does not exist yet.
func Migrate(ctx context.Context, db *sql.DB, tables bucketgate.Tables) error {
	for _, migration := range getTableMigrations(tables) {
		if err := migration.Up(ctx, db); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.TableName, err)
		}
	}

	return nil
}

// DropTables drops every table in tables, in reverse creation order.
func DropTables(ctx context.Context, db *sql.DB, tables bucketgate.Tables) error {
	migrations := getTableMigrations(tables)

	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if err := migration.Down(ctx, db); err != nil {
			return fmt.Errorf("migrate down %s: %w", migration.TableName, err)
		}
	}

	return nil
}

// createObjectsTable keys rows by object_key. SQLite's default BINARY
// collation orders the primary key bytewise, which listing relies on.
func createObjectsTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		quotedTable := quoteIdentifier(tableName)
		indexUploaded := quoteIdentifier(fmt.Sprintf("idx_%s_uploaded", tableName))

		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				object_key TEXT NOT NULL PRIMARY KEY,
				size INTEGER NOT NULL,
				etag TEXT NOT NULL,
				uploaded TEXT NOT NULL,
				content_type TEXT NOT NULL DEFAULT '',
				content_language TEXT NOT NULL DEFAULT '',
				content_disposition TEXT NOT NULL DEFAULT '',
				cache_control TEXT NOT NULL DEFAULT '',
				content_encoding TEXT NOT NULL DEFAULT '',
				custom_metadata TEXT NOT NULL DEFAULT '{}'
			)
		`, quotedTable)

		if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		indexSQL := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (uploaded)`, indexUploaded, quotedTable)

		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index uploaded: %w", err)
		}

		return nil
	}
}

func dropTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdentifier(tableName))

		_, err := db.ExecContext(ctx, dropSQL)
		return err
	}
}
