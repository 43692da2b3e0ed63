// Package sqlitedatastore provides a durable single-file backend on
// SQLite. Entities are stored as gob blobs next to a scalar property
// index, so filters and ordering run as SQL while the payload survives
// restarts. Transactions take the same begin-time snapshot the
// in-memory backend takes and validate per-key versions inside one SQL
// transaction at commit, so the first committer wins.
//
// The backend targets embedded, single-process deployments. The
// connection pool is pinned to one connection, which keeps writes
// serialized and makes ":memory:" databases safe to share across the
// pool.
package sqlitedatastore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/internal"
	"go.kotori.dev/arbor/internal/plainkey"

	_ "modernc.org/sqlite" // database/sql driver
)

//go:embed schema.sql
var schemaSQL string

var _ arbor.Client = &datastoreImpl{}

// New opens the database at path and returns a Client backed by it.
// Pass ":memory:" or an empty path for a throwaway store that vanishes
// on Close.
func New(ctx context.Context, path string, opts ...arbor.ClientOption) (arbor.Client, error) {
	settings := &internal.ClientSettings{}
	for _, opt := range opts {
		opt.Apply(settings)
	}

	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("arbor/sqlitedatastore: open %s: %w", path, err)
	}
	// SQLite takes one writer at a time, and an in-memory database
	// exists per connection. One pooled connection covers both.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("arbor/sqlitedatastore: connect %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("arbor/sqlitedatastore: create schema: %w", err)
	}

	return &datastoreImpl{db: db, namespace: settings.Namespace}, nil
}

type datastoreImpl struct {
	db        *sql.DB
	namespace string
}

func (d *datastoreImpl) Get(ctx context.Context, key arbor.Key) (arbor.PropertyList, error) {
	psList := make([]arbor.PropertyList, 1)
	err := d.GetMulti(ctx, []arbor.Key{key}, psList)
	if merr, ok := err.(arbor.MultiError); ok {
		return nil, merr[0]
	} else if err != nil {
		return nil, err
	}

	return psList[0], nil
}

func (d *datastoreImpl) GetMulti(ctx context.Context, keys []arbor.Key, psList []arbor.PropertyList) error {
	if len(keys) != len(psList) {
		return fmt.Errorf("arbor/sqlitedatastore: keys and psList length mismatch %d != %d", len(keys), len(psList))
	}

	foundErr := false
	merr := make(arbor.MultiError, len(keys))
	for idx, key := range keys {
		var payload []byte
		err := d.db.QueryRowContext(ctx, `SELECT payload FROM entities WHERE name = ?`, rowName(key)).Scan(&payload)
		if err == sql.ErrNoRows {
			merr[idx] = arbor.ErrNoSuchEntity
			foundErr = true
			continue
		} else if err != nil {
			return err
		}

		ps, err := decodeProps(payload)
		if err != nil {
			return err
		}
		psList[idx] = ps
	}

	if foundErr {
		return merr
	}
	return nil
}

func (d *datastoreImpl) Put(ctx context.Context, key arbor.Key, ps arbor.PropertyList) (arbor.Key, error) {
	keys, err := d.PutMulti(ctx, []arbor.Key{key}, []arbor.PropertyList{ps})
	if merr, ok := err.(arbor.MultiError); ok {
		return nil, merr[0]
	} else if err != nil {
		return nil, err
	}

	return keys[0], nil
}

func (d *datastoreImpl) PutMulti(ctx context.Context, keys []arbor.Key, psList []arbor.PropertyList) ([]arbor.Key, error) {
	if len(keys) != len(psList) {
		return nil, fmt.Errorf("arbor/sqlitedatastore: keys and psList length mismatch %d != %d", len(keys), len(psList))
	}

	sqlTx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer sqlTx.Rollback()

	newKeys := make([]arbor.Key, len(keys))
	for idx, key := range keys {
		k := plainkey.FromKey(key)
		if k.Incomplete() {
			id, err := allocateID(ctx, sqlTx)
			if err != nil {
				return nil, err
			}
			k = plainkey.WithID(k, id)
		}
		if err := putRow(ctx, sqlTx, k, psList[idx]); err != nil {
			return nil, err
		}
		newKeys[idx] = k
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, err
	}
	return newKeys, nil
}

func (d *datastoreImpl) Delete(ctx context.Context, key arbor.Key) error {
	err := d.DeleteMulti(ctx, []arbor.Key{key})
	if merr, ok := err.(arbor.MultiError); ok {
		return merr[0]
	}
	return err
}

// DeleteMulti removes the named entities. Deleting an absent key is not
// an error.
func (d *datastoreImpl) DeleteMulti(ctx context.Context, keys []arbor.Key) error {
	sqlTx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer sqlTx.Rollback()

	for _, key := range keys {
		if err := deleteRow(ctx, sqlTx, rowName(key)); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

func (d *datastoreImpl) NewTransaction(ctx context.Context) (arbor.Transaction, error) {
	snapPayloads, snapVersions, err := d.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &transactionImpl{
		ctx:          ctx,
		d:            d,
		snapPayloads: snapPayloads,
		snapVersions: snapVersions,
		accessed:     make(map[string]struct{}),
	}, nil
}

// snapshot loads every row and version inside one SQL transaction so
// the image is stable. Sized for the embedded datasets this backend
// targets.
func (d *datastoreImpl) snapshot(ctx context.Context) (map[string][]byte, map[string]int64, error) {
	sqlTx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer sqlTx.Rollback()

	entityRows, err := sqlTx.QueryContext(ctx, `SELECT name, payload FROM entities`)
	if err != nil {
		return nil, nil, err
	}
	payloads := make(map[string][]byte)
	for entityRows.Next() {
		var name string
		var payload []byte
		if err := entityRows.Scan(&name, &payload); err != nil {
			entityRows.Close()
			return nil, nil, err
		}
		payloads[name] = payload
	}
	if err := entityRows.Err(); err != nil {
		return nil, nil, err
	}
	entityRows.Close()

	versionRows, err := sqlTx.QueryContext(ctx, `SELECT name, version FROM versions`)
	if err != nil {
		return nil, nil, err
	}
	versions := make(map[string]int64)
	for versionRows.Next() {
		var name string
		var version int64
		if err := versionRows.Scan(&name, &version); err != nil {
			versionRows.Close()
			return nil, nil, err
		}
		versions[name] = version
	}
	if err := versionRows.Err(); err != nil {
		return nil, nil, err
	}
	versionRows.Close()

	return payloads, versions, nil
}

func (d *datastoreImpl) RunInTransaction(ctx context.Context, f func(tx arbor.Transaction) error) (arbor.Commit, error) {
	for i := 0; i < 3; i++ {
		tx, err := d.NewTransaction(ctx)
		if err != nil {
			return nil, err
		}

		if err := f(tx); err != nil {
			_ = tx.Rollback()
			return nil, err
		}

		commit, err := tx.Commit()
		if err == arbor.ErrConcurrentTransaction {
			continue
		} else if err != nil {
			return nil, err
		}
		return commit, nil
	}

	return nil, arbor.ErrConcurrentTransaction
}

func (d *datastoreImpl) AllocateIDs(ctx context.Context, keys []arbor.Key) ([]arbor.Key, error) {
	newKeys := make([]arbor.Key, len(keys))
	for idx, key := range keys {
		k := plainkey.FromKey(key)
		if k.Incomplete() {
			id, err := allocateID(ctx, d.db)
			if err != nil {
				return nil, err
			}
			k = plainkey.WithID(k, id)
		}
		newKeys[idx] = k
	}
	return newKeys, nil
}

func (d *datastoreImpl) NewQuery(kind string) arbor.Query {
	return &queryImpl{dump: &arbor.QueryDump{Kind: kind}}
}

func (d *datastoreImpl) IncompleteKey(kind string, parent arbor.Key) arbor.Key {
	return plainkey.IncompleteKey(kind, d.namespace, parent)
}

func (d *datastoreImpl) NameKey(kind, name string, parent arbor.Key) arbor.Key {
	return plainkey.NameKey(kind, name, d.namespace, parent)
}

func (d *datastoreImpl) IDKey(kind string, id int64, parent arbor.Key) arbor.Key {
	return plainkey.IDKey(kind, id, d.namespace, parent)
}

func (d *datastoreImpl) Batch() *arbor.Batch {
	return &arbor.Batch{Client: d}
}

func (d *datastoreImpl) Close() error {
	return d.db.Close()
}
