// Package memdatastore provides an in-process backend. Every entity
// lives in memory, transactions read from a snapshot taken at begin,
// and the first committer wins when two transactions touch the same
// key. That makes it the reference backend for tests and local runs.
package memdatastore

import (
	"context"
	"fmt"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/internal"
	"go.kotori.dev/arbor/internal/plainkey"
)

var _ arbor.Client = &datastoreImpl{}
var _ arbor.ClientGenerator = New

// New returns a Client backed by a fresh empty store.
func New(ctx context.Context, opts ...arbor.ClientOption) (arbor.Client, error) {
	settings := &internal.ClientSettings{}
	for _, opt := range opts {
		opt.Apply(settings)
	}

	return &datastoreImpl{
		store:     newStore(),
		namespace: settings.Namespace,
	}, nil
}

type datastoreImpl struct {
	store     *store
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
		return fmt.Errorf("arbor/memdatastore: keys and psList length mismatch %d != %d", len(keys), len(psList))
	}

	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	foundErr := false
	merr := make(arbor.MultiError, len(keys))
	for idx, key := range keys {
		e, ok := d.store.getLocked(storageName(key))
		if !ok {
			merr[idx] = arbor.ErrNoSuchEntity
			foundErr = true
			continue
		}
		psList[idx] = e.ps.Clone()
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
		return nil, fmt.Errorf("arbor/memdatastore: keys and psList length mismatch %d != %d", len(keys), len(psList))
	}

	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	newKeys := make([]arbor.Key, len(keys))
	for idx, key := range keys {
		k := plainkey.FromKey(key)
		if k.Incomplete() {
			k = plainkey.WithID(k, d.store.allocateIDLocked())
		}
		d.store.putLocked(storageName(k), k, psList[idx])
		newKeys[idx] = k
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
	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	for _, key := range keys {
		d.store.deleteLocked(storageName(key))
	}
	return nil
}

func (d *datastoreImpl) NewTransaction(ctx context.Context) (arbor.Transaction, error) {
	snapEntities, snapVersions := d.store.snapshot()
	return &transactionImpl{
		ctx:          ctx,
		d:            d,
		snapEntities: snapEntities,
		snapVersions: snapVersions,
		accessed:     make(map[string]struct{}),
	}, nil
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
	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	newKeys := make([]arbor.Key, len(keys))
	for idx, key := range keys {
		k := plainkey.FromKey(key)
		if k.Incomplete() {
			k = plainkey.WithID(k, d.store.allocateIDLocked())
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
	return nil
}
