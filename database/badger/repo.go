// Package badger implements bucketgate.MetaDataRepo on a Badger key-value
// store. Records are JSON values under "<table>:<object key>"; Badger orders
// keys bytewise, which gives listings their order for free.
package badger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sagarc03/bucketgate"
)

// Repo stores object records in one key namespace of a Badger store.
type Repo struct {
	db        *badger.DB
	namespace []byte
}

// NewRepo returns a Repo over db using tables.Objects as the key namespace.
func NewRepo(db *badger.DB, tables bucketgate.Tables) *Repo {
	return &Repo{db: db, namespace: []byte(tables.Objects + ":")}
}

type record struct {
	Size           int64                   `json:"size"`
	ETag           string                  `json:"etag"`
	Uploaded       time.Time               `json:"uploaded"`
	HTTPMetadata   bucketgate.HTTPMetadata `json:"httpMetadata"`
	CustomMetadata map[string]string       `json:"customMetadata,omitempty"`
}

func (r *Repo) dbKey(key string) []byte {
	k := make([]byte, 0, len(r.namespace)+len(key))
	k = append(k, r.namespace...)
	return append(k, key...)
}

func decodeRecord(key string, val []byte) (bucketgate.Object, error) {
	var rec record
	if err := json.Unmarshal(val, &rec); err != nil {
		return bucketgate.Object{}, fmt.Errorf("decode record %s: %w", key, err)
	}

	return bucketgate.Object{
		Key:            key,
		Size:           rec.Size,
		ETag:           rec.ETag,
		Uploaded:       rec.Uploaded,
		HTTPMetadata:   rec.HTTPMetadata,
		CustomMetadata: rec.CustomMetadata,
	}, nil
}

func (r *Repo) Get(ctx context.Context, key string) (bucketgate.Object, error) {
	if err := ctx.Err(); err != nil {
		return bucketgate.Object{}, fmt.Errorf("get: %w", err)
	}

	var obj bucketgate.Object
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(r.dbKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			obj, err = decodeRecord(key, val)
			return err
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return bucketgate.Object{}, bucketgate.ErrNotFound
		}
		return bucketgate.Object{}, fmt.Errorf("get: %w", err)
	}

	return obj, nil
}

func (r *Repo) Upsert(ctx context.Context, entry bucketgate.ObjectEntry) (bucketgate.Object, error) {
	if err := ctx.Err(); err != nil {
		return bucketgate.Object{}, fmt.Errorf("upsert: %w", err)
	}

	rec := record{
		Size:           entry.Size,
		ETag:           entry.ETag,
		Uploaded:       time.Now().UTC(),
		HTTPMetadata:   entry.HTTPMetadata,
		CustomMetadata: entry.CustomMetadata,
	}
	if len(rec.CustomMetadata) == 0 {
		rec.CustomMetadata = nil
	}

	val, err := json.Marshal(rec)
	if err != nil {
		return bucketgate.Object{}, fmt.Errorf("upsert: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(r.dbKey(entry.Key), val)
	})
	if err != nil {
		return bucketgate.Object{}, fmt.Errorf("upsert: %w", err)
	}

	return decodeRecord(entry.Key, val)
}

func (r *Repo) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		k := r.dbKey(key)
		if _, err := txn.Get(k); err != nil {
			return err
		}
		return txn.Delete(k)
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete: %w", bucketgate.ErrNotFound)
		}
		return fmt.Errorf("delete: %w", err)
	}

	return nil
}

func (r *Repo) Scan(ctx context.Context, prefix, after string, limit int) ([]bucketgate.Object, error) {
	items := make([]bucketgate.Object, 0, min(limit, bucketgate.MaxListLimit+1))

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = r.dbKey(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		start := opts.Prefix
		if afterKey := r.dbKey(after); bytes.Compare(afterKey, start) > 0 {
			start = afterKey
		}

		for it.Seek(start); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			key := string(item.Key()[len(r.namespace):])
			if key <= after {
				continue
			}

			err := item.Value(func(val []byte) error {
				obj, err := decodeRecord(key, val)
				if err != nil {
					return err
				}
				items = append(items, obj)
				return nil
			})
			if err != nil {
				return err
			}

			if len(items) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	return items, nil
}
