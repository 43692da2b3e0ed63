package clouddatastore

import (
	"context"
	"fmt"

	"cloud.google.com/go/datastore"

	"go.kotori.dev/arbor"
)

var _ arbor.Client = &datastoreImpl{}

type datastoreImpl struct {
	client    *datastore.Client
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
	return getMultiWith(keys, psList, func(keys []*datastore.Key, dst []datastore.PropertyList) error {
		return d.client.GetMulti(ctx, keys, dst)
	})
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
	newKeys, _, err := putMultiWith(keys, psList, func(keys []*datastore.Key, src []datastore.PropertyList) ([]arbor.Key, []arbor.PendingKey, error) {
		respKeys, err := d.client.PutMulti(ctx, keys, src)
		if err != nil {
			return nil, nil, err
		}

		return toWrapperKeys(respKeys), nil, nil
	})
	if err != nil {
		return nil, err
	}

	return newKeys, nil
}

func (d *datastoreImpl) Delete(ctx context.Context, key arbor.Key) error {
	err := d.DeleteMulti(ctx, []arbor.Key{key})
	if merr, ok := err.(arbor.MultiError); ok {
		return merr[0]
	} else if err != nil {
		return err
	}

	return nil
}

func (d *datastoreImpl) DeleteMulti(ctx context.Context, keys []arbor.Key) error {
	return deleteMultiWith(keys, func(keys []*datastore.Key) error {
		return d.client.DeleteMulti(ctx, keys)
	})
}

func (d *datastoreImpl) NewTransaction(ctx context.Context) (arbor.Transaction, error) {
	tx, err := d.client.NewTransaction(ctx)
	if err != nil {
		return nil, toWrapperError(err)
	}

	return &transactionImpl{tx: tx}, nil
}

func (d *datastoreImpl) RunInTransaction(ctx context.Context, f func(tx arbor.Transaction) error) (arbor.Commit, error) {
	commit, err := d.client.RunInTransaction(ctx, func(baseTx *datastore.Transaction) error {
		return f(&transactionImpl{tx: baseTx})
	})
	if err != nil {
		return nil, toWrapperError(err)
	}

	return &commitImpl{commit: commit}, nil
}

// AllocateIDs completes the incomplete keys through the service's id
// allocator. Complete keys pass through at their position untouched.
func (d *datastoreImpl) AllocateIDs(ctx context.Context, keys []arbor.Key) ([]arbor.Key, error) {
	newKeys := make([]arbor.Key, len(keys))
	var origKeys []*datastore.Key
	var idxs []int
	for idx, key := range keys {
		if key.Incomplete() {
			origKeys = append(origKeys, toOriginalKey(key))
			idxs = append(idxs, idx)
			continue
		}
		newKeys[idx] = key
	}
	if len(origKeys) == 0 {
		return newKeys, nil
	}

	respKeys, err := d.client.AllocateIDs(ctx, origKeys)
	if err != nil {
		return nil, toWrapperError(err)
	}
	for i, key := range respKeys {
		newKeys[idxs[i]] = toWrapperKey(key)
	}

	return newKeys, nil
}

func (d *datastoreImpl) NewQuery(kind string) arbor.Query {
	q := datastore.NewQuery(kind)
	if d.namespace != "" {
		q = q.Namespace(d.namespace)
	}
	return &queryImpl{q: q, dump: &arbor.QueryDump{Kind: kind}}
}

func (d *datastoreImpl) GetAll(ctx context.Context, q arbor.Query) ([]arbor.Key, []arbor.PropertyList, error) {
	qi, ok := q.(*queryImpl)
	if !ok {
		return nil, nil, fmt.Errorf("arbor/clouddatastore: unsupported query type %T", q)
	}

	var origPss []datastore.PropertyList
	origKeys, err := d.client.GetAll(ctx, qi.q, &origPss)
	if err != nil {
		return nil, nil, toWrapperError(err)
	}

	keys := toWrapperKeys(origKeys)
	if qi.dump.KeysOnly {
		return keys, nil, nil
	}

	psList := make([]arbor.PropertyList, 0, len(origPss))
	for _, origPs := range origPss {
		psList = append(psList, toWrapperPropertyList(origPs))
	}

	return keys, psList, nil
}

func (d *datastoreImpl) Count(ctx context.Context, q arbor.Query) (int, error) {
	qi, ok := q.(*queryImpl)
	if !ok {
		return 0, fmt.Errorf("arbor/clouddatastore: unsupported query type %T", q)
	}

	count, err := d.client.Count(ctx, qi.q)
	if err != nil {
		return 0, toWrapperError(err)
	}

	return count, nil
}

func (d *datastoreImpl) IncompleteKey(kind string, parent arbor.Key) arbor.Key {
	return &keyImpl{kind: kind, parent: fromKey(parent), namespace: d.namespace}
}

func (d *datastoreImpl) NameKey(kind, name string, parent arbor.Key) arbor.Key {
	return &keyImpl{kind: kind, name: name, parent: fromKey(parent), namespace: d.namespace}
}

func (d *datastoreImpl) IDKey(kind string, id int64, parent arbor.Key) arbor.Key {
	return &keyImpl{kind: kind, id: id, parent: fromKey(parent), namespace: d.namespace}
}

func (d *datastoreImpl) Batch() *arbor.Batch {
	return &arbor.Batch{Client: d}
}

func (d *datastoreImpl) Close() error {
	return d.client.Close()
}
