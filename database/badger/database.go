package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/sagarc03/bucketgate"
)

// Database is a Badger key-value store holding object records.
type Database struct {
	db     *badger.DB
	tables bucketgate.Tables
}

// Connect opens the Badger directory named by dsn. An empty dsn or ":memory:"
// opens an in-memory store.
// Tables should be validated before calling Connect.
func Connect(ctx context.Context, dsn string, tables bucketgate.Tables) (*Database, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("connect badger: %w", err)
	}

	opts := badger.DefaultOptions(dsn)
	if dsn == "" || dsn == ":memory:" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(slogLogger{log: slog.Default().With("component", "badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("connect badger: %w", err)
	}

	return &Database{db: db, tables: tables}, nil
}

// Ping reports whether the store is still open.
func (d *Database) Ping(_ context.Context) error {
	if d.db.IsClosed() {
		return errors.New("ping badger: database is closed")
	}
	return nil
}

// Migrate records the schema marker for the objects namespace.
func (d *Database) Migrate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(schemaKey(d.tables.Objects), []byte(schemaVersion))
	})
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the objects namespace was migrated with the current
// record format.
func (d *Database) Validate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}

	var version string
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(schemaKey(d.tables.Objects))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		version = string(val)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("validate schema %s: namespace does not exist", d.tables.Objects)
	}
	if err != nil {
		return fmt.Errorf("validate schema %s: %w", d.tables.Objects, err)
	}

	if version != schemaVersion {
		return fmt.Errorf("validate schema %s: expected version %s, got %s", d.tables.Objects, schemaVersion, version)
	}
	return nil
}

// GetRepo returns the MetaDataRepo for database operations.
func (d *Database) GetRepo() bucketgate.MetaDataRepo {
	return NewRepo(d.db, d.tables)
}

// Close closes the store.
func (d *Database) Close() error {
	return d.db.Close()
}

const schemaVersion = "1"

// schemaKey sits outside every record namespace since table names never
// contain a NUL byte.
func schemaKey(table string) []byte {
	return []byte("\x00schema/" + table)
}

// slogLogger routes badger's logging into slog.
type slogLogger struct {
	log *slog.Logger
}

func (l slogLogger) Errorf(format string, args ...any) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l slogLogger) Warningf(format string, args ...any) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l slogLogger) Infof(format string, args ...any) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l slogLogger) Debugf(format string, args ...any) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
