// Package postgres implements bucketgate.MetaDataRepo on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/bucketgate"
	"github.com/sagarc03/bucketgate/database/internal"
)

// Tables is an alias for bucketgate.Tables for package compatibility.
type Tables = bucketgate.Tables

// Repo stores object records in one PostgreSQL table.
type Repo struct {
	pool      *pgxpool.Pool
	tableName string
}

// NewRepo returns a Repo over pool. The objects table must already exist.
func NewRepo(pool *pgxpool.Pool, tables Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &Repo{pool: pool, tableName: tables.Objects}, nil
}

// Ping verifies database connectivity
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

const selectColumns = `object_key, size, etag, uploaded, content_type, content_language,
	content_disposition, cache_control, content_encoding, custom_metadata`

func scanObject(row pgx.Row) (bucketgate.Object, error) {
	var o bucketgate.Object
	var custom []byte

	err := row.Scan(
		&o.Key, &o.Size, &o.ETag, &o.Uploaded,
		&o.HTTPMetadata.ContentType, &o.HTTPMetadata.ContentLanguage,
		&o.HTTPMetadata.ContentDisposition, &o.HTTPMetadata.CacheControl,
		&o.HTTPMetadata.ContentEncoding, &custom,
	)
	if err != nil {
		return bucketgate.Object{}, err
	}

	o.Uploaded = o.Uploaded.UTC()
	o.CustomMetadata, err = internal.DecodeCustomMetadata(custom)
	if err != nil {
		return bucketgate.Object{}, err
	}

	return o, nil
}

func (r *Repo) Get(ctx context.Context, key string) (bucketgate.Object, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE object_key = $1`,
		selectColumns, pgx.Identifier{r.tableName}.Sanitize())

	o, err := scanObject(r.pool.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

	query := fmt.Sprintf(`
		INSERT INTO %s (object_key, size, etag, uploaded, content_type, content_language,
			content_disposition, cache_control, content_encoding, custom_metadata)
		VALUES ($1, $2, $3, NOW(), $4, $5, $6, $7, $8, $9::jsonb)
		ON CONFLICT (object_key) DO UPDATE
		SET size = EXCLUDED.size,
			etag = EXCLUDED.etag,
			uploaded = EXCLUDED.uploaded,
			content_type = EXCLUDED.content_type,
			content_language = EXCLUDED.content_language,
			content_disposition = EXCLUDED.content_disposition,
			cache_control = EXCLUDED.cache_control,
			content_encoding = EXCLUDED.content_encoding,
			custom_metadata = EXCLUDED.custom_metadata
		RETURNING %s
	`, pgx.Identifier{r.tableName}.Sanitize(), selectColumns)

	m := entry.HTTPMetadata
	o, err := scanObject(r.pool.QueryRow(ctx, query,
		entry.Key, entry.Size, entry.ETag,
		m.ContentType, m.ContentLanguage, m.ContentDisposition, m.CacheControl, m.ContentEncoding,
		custom,
	))
	if err != nil {
		return bucketgate.Object{}, fmt.Errorf("upsert: %w", err)
	}

	return o, nil
}

func (r *Repo) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE object_key = $1`, pgx.Identifier{r.tableName}.Sanitize())

	result, err := r.pool.Exec(ctx, query, key)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete: %w", bucketgate.ErrNotFound)
	}

	return nil
}

func (r *Repo) Scan(ctx context.Context, prefix, after string, limit int) ([]bucketgate.Object, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE object_key > $1 AND object_key LIKE $2 || '%%' ESCAPE '\'
		ORDER BY object_key
		LIMIT $3
	`, selectColumns, pgx.Identifier{r.tableName}.Sanitize())

	rows, err := r.pool.Query(ctx, query, after, internal.EscapeLikePattern(prefix), limit)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	defer rows.Close()

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
