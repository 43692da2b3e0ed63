// Package rescache is a read-through entity cache in front of a
// Client. Reads outside a transaction consult a Storage first and fill
// it on miss; writes refresh it; deletes drop it. Operations inside a
// transaction never touch the cache until Commit, which invalidates
// every key the transaction touched; Rollback leaves the cache alone.
// Storage failures never fail the datastore path, they are logged and
// the call proceeds uncached.
package rescache

import (
	"context"
	"sync"

	"go.kotori.dev/arbor"
)

// Item is one cached entity.
type Item struct {
	Key          arbor.Key
	PropertyList arbor.PropertyList
}

// Storage is the cache backend. GetMulti returns one slot per key; a
// nil slot is a miss.
type Storage interface {
	SetMulti(ctx context.Context, items []*Item) error
	GetMulti(ctx context.Context, keys []arbor.Key) ([]*Item, error)
	DeleteMulti(ctx context.Context, keys []arbor.Key) error
}

// KeyFilter reports whether a key belongs in the cache. Every
// configured filter must agree.
type KeyFilter func(ctx context.Context, key arbor.Key) bool

// Options tune a cache client.
type Options struct {
	Logf    func(ctx context.Context, format string, args ...any)
	Filters []KeyFilter
}

// NewClient wraps base with the cache held in s.
func NewClient(base arbor.Client, s Storage, opts *Options) arbor.Client {
	c := &cacheClient{Client: base, s: s}
	if opts != nil {
		c.logf = opts.Logf
		c.filters = opts.Filters
	}
	if c.logf == nil {
		c.logf = func(ctx context.Context, format string, args ...any) {}
	}
	return c
}

type cacheClient struct {
	arbor.Client

	s       Storage
	logf    func(ctx context.Context, format string, args ...any)
	filters []KeyFilter
}

var _ arbor.Client = &cacheClient{}

func (c *cacheClient) target(ctx context.Context, key arbor.Key) bool {
	for _, f := range c.filters {
		if !f(ctx, key) {
			return false
		}
	}
	return true
}

func (c *cacheClient) Get(ctx context.Context, key arbor.Key) (arbor.PropertyList, error) {
	psList := make([]arbor.PropertyList, 1)
	if err := c.GetMulti(ctx, []arbor.Key{key}, psList); err != nil {
		if merr, ok := err.(arbor.MultiError); ok {
			return nil, merr[0]
		}
		return nil, err
	}
	return psList[0], nil
}

func (c *cacheClient) GetMulti(ctx context.Context, keys []arbor.Key, psList []arbor.PropertyList) error {
	filled := make([]bool, len(keys))

	var cacheIdx []int
	var cacheKeys []arbor.Key
	for idx, key := range keys {
		if c.target(ctx, key) {
			cacheIdx = append(cacheIdx, idx)
			cacheKeys = append(cacheKeys, key)
		}
	}
	if len(cacheKeys) != 0 {
		items, err := c.s.GetMulti(ctx, cacheKeys)
		if err != nil {
			c.logf(ctx, "rescache.GetMulti: storage.GetMulti err=%s", err.Error())
		} else {
			for i, item := range items {
				if item == nil {
					continue
				}
				psList[cacheIdx[i]] = item.PropertyList
				filled[cacheIdx[i]] = true
			}
		}
	}

	var missIdx []int
	var missKeys []arbor.Key
	for idx := range keys {
		if !filled[idx] {
			missIdx = append(missIdx, idx)
			missKeys = append(missKeys, keys[idx])
		}
	}
	if len(missKeys) == 0 {
		return nil
	}

	missPs := make([]arbor.PropertyList, len(missKeys))
	err := c.Client.GetMulti(ctx, missKeys, missPs)

	var errs []error
	var fills []*Item
	if merr, ok := err.(arbor.MultiError); ok {
		errs = make([]error, len(keys))
		for i, e := range merr {
			baseIdx := missIdx[i]
			if e != nil {
				errs[baseIdx] = e
				continue
			}
			psList[baseIdx] = missPs[i]
			if c.target(ctx, missKeys[i]) {
				fills = append(fills, &Item{Key: missKeys[i], PropertyList: missPs[i]})
			}
		}
	} else if err != nil {
		return err
	} else {
		for i := range missKeys {
			psList[missIdx[i]] = missPs[i]
			if c.target(ctx, missKeys[i]) {
				fills = append(fills, &Item{Key: missKeys[i], PropertyList: missPs[i]})
			}
		}
	}

	if len(fills) != 0 {
		if err := c.s.SetMulti(ctx, fills); err != nil {
			c.logf(ctx, "rescache.GetMulti: storage.SetMulti err=%s", err.Error())
		}
	}

	if errs != nil {
		return arbor.MultiError(errs)
	}
	return nil
}

func (c *cacheClient) Put(ctx context.Context, key arbor.Key, ps arbor.PropertyList) (arbor.Key, error) {
	keys, err := c.PutMulti(ctx, []arbor.Key{key}, []arbor.PropertyList{ps})
	if err != nil {
		if merr, ok := err.(arbor.MultiError); ok {
			return nil, merr[0]
		}
		return nil, err
	}
	return keys[0], nil
}

func (c *cacheClient) PutMulti(ctx context.Context, keys []arbor.Key, psList []arbor.PropertyList) ([]arbor.Key, error) {
	stored, err := c.Client.PutMulti(ctx, keys, psList)
	if err != nil {
		return stored, err
	}

	var fills []*Item
	for idx, key := range stored {
		if key.Incomplete() || !c.target(ctx, key) {
			continue
		}
		fills = append(fills, &Item{Key: key, PropertyList: psList[idx]})
	}
	if len(fills) != 0 {
		if err := c.s.SetMulti(ctx, fills); err != nil {
			c.logf(ctx, "rescache.PutMulti: storage.SetMulti err=%s", err.Error())
		}
	}
	return stored, nil
}

func (c *cacheClient) Delete(ctx context.Context, key arbor.Key) error {
	err := c.DeleteMulti(ctx, []arbor.Key{key})
	if merr, ok := err.(arbor.MultiError); ok {
		return merr[0]
	}
	return err
}

func (c *cacheClient) DeleteMulti(ctx context.Context, keys []arbor.Key) error {
	err := c.Client.DeleteMulti(ctx, keys)

	var drops []arbor.Key
	for _, key := range keys {
		if c.target(ctx, key) {
			drops = append(drops, key)
		}
	}
	if len(drops) != 0 {
		if sErr := c.s.DeleteMulti(ctx, drops); sErr != nil {
			c.logf(ctx, "rescache.DeleteMulti: storage.DeleteMulti err=%s", sErr.Error())
		}
	}
	return err
}

func (c *cacheClient) NewTransaction(ctx context.Context) (arbor.Transaction, error) {
	tx, err := c.Client.NewTransaction(ctx)
	if err != nil {
		return nil, err
	}
	return &cacheTx{Transaction: tx, c: c, ctx: ctx}, nil
}

func (c *cacheClient) RunInTransaction(ctx context.Context, f func(tx arbor.Transaction) error) (arbor.Commit, error) {
	var wrapped *cacheTx
	commit, err := c.Client.RunInTransaction(ctx, func(tx arbor.Transaction) error {
		// fresh per attempt, a retried body must not double-record
		wrapped = &cacheTx{Transaction: tx, c: c, ctx: ctx}
		return f(wrapped)
	})
	if err != nil {
		return nil, err
	}
	wrapped.invalidate(commit)
	return commit, nil
}

func (c *cacheClient) Batch() *arbor.Batch {
	return &arbor.Batch{Client: c}
}

// cacheTx records which keys a transaction touches and drops them from
// the cache once the transaction commits.
type cacheTx struct {
	arbor.Transaction
	c   *cacheClient
	ctx context.Context

	m        sync.Mutex
	touched  []arbor.Key
	pendings []arbor.PendingKey
}

func (tx *cacheTx) record(keys ...arbor.Key) {
	tx.m.Lock()
	defer tx.m.Unlock()
	for _, key := range keys {
		if key.Incomplete() || !tx.c.target(tx.ctx, key) {
			continue
		}
		tx.touched = append(tx.touched, key)
	}
}

func (tx *cacheTx) Get(key arbor.Key) (arbor.PropertyList, error) {
	tx.record(key)
	return tx.Transaction.Get(key)
}

func (tx *cacheTx) GetMulti(keys []arbor.Key, psList []arbor.PropertyList) error {
	tx.record(keys...)
	return tx.Transaction.GetMulti(keys, psList)
}

func (tx *cacheTx) Put(key arbor.Key, ps arbor.PropertyList) (arbor.PendingKey, error) {
	p, err := tx.Transaction.Put(key, ps)
	if err != nil {
		return nil, err
	}
	if key.Incomplete() {
		tx.m.Lock()
		tx.pendings = append(tx.pendings, p)
		tx.m.Unlock()
	} else {
		tx.record(key)
	}
	return p, nil
}

func (tx *cacheTx) PutMulti(keys []arbor.Key, psList []arbor.PropertyList) ([]arbor.PendingKey, error) {
	ps, err := tx.Transaction.PutMulti(keys, psList)
	if err != nil {
		return nil, err
	}
	for idx, key := range keys {
		if key.Incomplete() {
			tx.m.Lock()
			tx.pendings = append(tx.pendings, ps[idx])
			tx.m.Unlock()
		} else {
			tx.record(key)
		}
	}
	return ps, nil
}

func (tx *cacheTx) Delete(key arbor.Key) error {
	tx.record(key)
	return tx.Transaction.Delete(key)
}

func (tx *cacheTx) DeleteMulti(keys []arbor.Key) error {
	tx.record(keys...)
	return tx.Transaction.DeleteMulti(keys)
}

func (tx *cacheTx) Commit() (arbor.Commit, error) {
	commit, err := tx.Transaction.Commit()
	if err != nil {
		return nil, err
	}
	tx.invalidate(commit)
	return commit, nil
}

func (tx *cacheTx) Batch() *arbor.TransactionBatch {
	return &arbor.TransactionBatch{Transaction: tx}
}

func (tx *cacheTx) invalidate(commit arbor.Commit) {
	tx.m.Lock()
	defer tx.m.Unlock()

	keys := tx.touched
	for _, p := range tx.pendings {
		key := commit.Key(p)
		if key == nil || !tx.c.target(tx.ctx, key) {
			continue
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return
	}
	if err := tx.c.s.DeleteMulti(tx.ctx, keys); err != nil {
		tx.c.logf(tx.ctx, "rescache: storage.DeleteMulti err=%s", err.Error())
	}
}
