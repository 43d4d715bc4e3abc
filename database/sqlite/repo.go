// Package sqlite implements bucketgate.MetaDataRepo on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sagarc03/bucketgate"
	"github.com/sagarc03/bucketgate/database/internal"
)

// Repo stores object records in one SQLite table.
type Repo struct {
	db        *sql.DB
	tableName string
}

// NewRepo returns a Repo over db. The objects table must already exist.
func NewRepo(db *sql.DB, tables bucketgate.Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &Repo{db: db, tableName: tables.Objects}, nil
}

const selectColumns = `object_key, size, etag, uploaded, content_type, content_language,
	content_disposition, cache_control, content_encoding, custom_metadata`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObject(row rowScanner) (bucketgate.Object, error) {
	var o bucketgate.Object
	var uploaded, custom string

	err := row.Scan(
		&o.Key, &o.Size, &o.ETag, &uploaded,
		&o.HTTPMetadata.ContentType, &o.HTTPMetadata.ContentLanguage,
		&o.HTTPMetadata.ContentDisposition, &o.HTTPMetadata.CacheControl,
		&o.HTTPMetadata.ContentEncoding, &custom,
	)
	if err != nil {
		return bucketgate.Object{}, err
	}

	o.Uploaded, err = time.Parse(time.RFC3339Nano, uploaded)
	if err != nil {
		return bucketgate.Object{}, fmt.Errorf("parse uploaded: %w", err)
	}

	o.CustomMetadata, err = internal.DecodeCustomMetadata([]byte(custom))
	if err != nil {
		return bucketgate.Object{}, err
	}

	return o, nil
}

func (r *Repo) Get(ctx context.Context, key string) (bucketgate.Object, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s WHERE object_key = ?`, selectColumns, quoteIdentifier(r.tableName))

	o, err := scanObject(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bucketgate.Object{}, bucketgate.ErrNotFound
		}
		return bucketgate.Object{}, fmt.Errorf("get: %w", err)
	}

	return o, nil
}

func (r *Repo) Upsert(ctx context.Context, entry bucketgate.ObjectEntry) (bucketgate.Object, error) {
	custom, err := internal.EncodeCustomMetadata(entry.CustomMetadata)
	if err != nil {
		return bucketgate.Object{}, fmt.Errorf("upsert: %w", err)
	}

	now := time.Now().UTC()
	m := entry.HTTPMetadata

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (object_key, size, etag, uploaded, content_type, content_language,
			content_disposition, cache_control, content_encoding, custom_metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (object_key) DO UPDATE
		SET size = excluded.size,
			etag = excluded.etag,
			uploaded = excluded.uploaded,
			content_type = excluded.content_type,
			content_language = excluded.content_language,
			content_disposition = excluded.content_disposition,
			cache_control = excluded.cache_control,
			content_encoding = excluded.content_encoding,
			custom_metadata = excluded.custom_metadata`, quoteIdentifier(r.tableName))

	_, err = r.db.ExecContext(ctx, query,
		entry.Key, entry.Size, entry.ETag, now.Format(time.RFC3339Nano),
		m.ContentType, m.ContentLanguage, m.ContentDisposition, m.CacheControl, m.ContentEncoding,
		custom,
	)
	if err != nil {
		return bucketgate.Object{}, fmt.Errorf("upsert: %w", err)
	}

	o := bucketgate.Object{
		Key:          entry.Key,
		Size:         entry.Size,
		ETag:         entry.ETag,
		Uploaded:     now,
		HTTPMetadata: m,
	}
	o.CustomMetadata, _ = internal.DecodeCustomMetadata([]byte(custom))

	return o, nil
}

func (r *Repo) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE object_key = ?`, quoteIdentifier(r.tableName)) //nolint:gosec // table name is validated

	result, err := r.db.ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("delete: %w", bucketgate.ErrNotFound)
	}

	return nil
}

// Scan matches the prefix with GLOB, which compares case-sensitively.
func (r *Repo) Scan(ctx context.Context, prefix, after string, limit int) ([]bucketgate.Object, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s
		WHERE object_key > ? AND object_key GLOB ?
		ORDER BY object_key
		LIMIT ?`, selectColumns, quoteIdentifier(r.tableName))

	rows, err := r.db.QueryContext(ctx, query, after, internal.EscapeGlobPattern(prefix)+"*", limit)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]bucketgate.Object, 0, min(limit, bucketgate.MaxListLimit+1))
	for rows.Next() {
		o, scanErr := scanObject(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan: %w", scanErr)
		}
		items = append(items, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan: rows: %w", err)
	}

	return items, nil
}
