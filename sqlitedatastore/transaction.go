package sqlitedatastore

import (
	"context"
	"errors"
	"fmt"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/internal/plainkey"
)

var errTxDone = errors.New("arbor/sqlitedatastore: transaction expired")

var _ arbor.Transaction = &transactionImpl{}
var _ arbor.Commit = &commitImpl{}
var _ arbor.PendingKey = &pendingKey{}

// transactionImpl reads from the snapshot loaded at begin and buffers
// writes until Commit. Own writes are not visible to later reads, the
// same as the real services.
type transactionImpl struct {
	ctx context.Context
	d   *datastoreImpl

	snapPayloads map[string][]byte
	snapVersions map[string]int64

	done     bool
	accessed map[string]struct{}
	writes   []txWrite
}

type txWrite struct {
	name    string
	key     *plainkey.Key
	ps      arbor.PropertyList
	delete  bool
	pending *pendingKey
}

type pendingKey struct {
	ctx context.Context
	key *plainkey.Key
}

func (p *pendingKey) StoredContext() context.Context {
	return p.ctx
}

type commitImpl struct{}

func (c *commitImpl) Key(p arbor.PendingKey) arbor.Key {
	pk, ok := p.(*pendingKey)
	if !ok || pk.key == nil {
		return nil
	}
	return pk.key
}

func (tx *transactionImpl) Get(key arbor.Key) (arbor.PropertyList, error) {
	psList := make([]arbor.PropertyList, 1)
	err := tx.GetMulti([]arbor.Key{key}, psList)
	if merr, ok := err.(arbor.MultiError); ok {
		return nil, merr[0]
	} else if err != nil {
		return nil, err
	}

	return psList[0], nil
}

func (tx *transactionImpl) GetMulti(keys []arbor.Key, psList []arbor.PropertyList) error {
	if tx.done {
		return errTxDone
	}
	if len(keys) != len(psList) {
		return fmt.Errorf("arbor/sqlitedatastore: keys and psList length mismatch %d != %d", len(keys), len(psList))
	}

	foundErr := false
	merr := make(arbor.MultiError, len(keys))
	for idx, key := range keys {
		name := rowName(key)
		tx.accessed[name] = struct{}{}

		payload, ok := tx.snapPayloads[name]
		if !ok {
			merr[idx] = arbor.ErrNoSuchEntity
			foundErr = true
			continue
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

func (tx *transactionImpl) Put(key arbor.Key, ps arbor.PropertyList) (arbor.PendingKey, error) {
	pKeys, err := tx.PutMulti([]arbor.Key{key}, []arbor.PropertyList{ps})
	if merr, ok := err.(arbor.MultiError); ok {
		return nil, merr[0]
	} else if err != nil {
		return nil, err
	}

	return pKeys[0], nil
}

func (tx *transactionImpl) PutMulti(keys []arbor.Key, psList []arbor.PropertyList) ([]arbor.PendingKey, error) {
	if tx.done {
		return nil, errTxDone
	}
	if len(keys) != len(psList) {
		return nil, fmt.Errorf("arbor/sqlitedatastore: keys and psList length mismatch %d != %d", len(keys), len(psList))
	}

	pKeys := make([]arbor.PendingKey, len(keys))
	for idx, key := range keys {
		k := plainkey.FromKey(key)
		if k.Incomplete() {
			id, err := allocateID(tx.ctx, tx.d.db)
			if err != nil {
				return nil, err
			}
			k = plainkey.WithID(k, id)
		}

		name := rowName(k)
		tx.accessed[name] = struct{}{}

		p := &pendingKey{ctx: tx.ctx}
		tx.writes = append(tx.writes, txWrite{
			name:    name,
			key:     k,
			ps:      psList[idx].Clone(),
			pending: p,
		})
		pKeys[idx] = p
	}

	return pKeys, nil
}

func (tx *transactionImpl) Delete(key arbor.Key) error {
	err := tx.DeleteMulti([]arbor.Key{key})
	if merr, ok := err.(arbor.MultiError); ok {
		return merr[0]
	}
	return err
}

func (tx *transactionImpl) DeleteMulti(keys []arbor.Key) error {
	if tx.done {
		return errTxDone
	}

	for _, key := range keys {
		k := plainkey.FromKey(key)
		name := rowName(k)
		tx.accessed[name] = struct{}{}
		tx.writes = append(tx.writes, txWrite{name: name, key: k, delete: true})
	}
	return nil
}

// Commit validates that no key this transaction read or wrote changed
// since the snapshot, then applies the write buffer in order inside one
// SQL transaction. A lost race returns ErrConcurrentTransaction.
func (tx *transactionImpl) Commit() (arbor.Commit, error) {
	if tx.done {
		return nil, errTxDone
	}
	tx.done = true

	sqlTx, err := tx.d.db.BeginTx(tx.ctx, nil)
	if err != nil {
		return nil, err
	}
	defer sqlTx.Rollback()

	for name := range tx.accessed {
		current, err := readVersion(tx.ctx, sqlTx, name)
		if err != nil {
			return nil, err
		}
		if current != tx.snapVersions[name] {
			return nil, arbor.ErrConcurrentTransaction
		}
	}

	for _, w := range tx.writes {
		if w.delete {
			err = deleteRow(tx.ctx, sqlTx, w.name)
		} else {
			err = putRow(tx.ctx, sqlTx, w.key, w.ps)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, err
	}

	for _, w := range tx.writes {
		if w.pending != nil {
			w.pending.key = w.key
		}
	}
	return &commitImpl{}, nil
}

func (tx *transactionImpl) Rollback() error {
	if tx.done {
		return errTxDone
	}
	tx.done = true
	return nil
}

func (tx *transactionImpl) Batch() *arbor.TransactionBatch {
	return &arbor.TransactionBatch{Transaction: tx}
}
