package clouddatastore

import (
	"cloud.google.com/go/datastore"

	"go.kotori.dev/arbor"
)

var _ arbor.Transaction = &transactionImpl{}
var _ arbor.Commit = &commitImpl{}

// transactionImpl wraps one service transaction. Reads share one
// consistent snapshot and writes stay buffered service-side until
// Commit.
type transactionImpl struct {
	tx *datastore.Transaction
}

type commitImpl struct {
	commit *datastore.Commit
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
	return getMultiWith(keys, psList, func(keys []*datastore.Key, dst []datastore.PropertyList) error {
		return tx.tx.GetMulti(keys, dst)
	})
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
	_, pKeys, err := putMultiWith(keys, psList, func(keys []*datastore.Key, src []datastore.PropertyList) ([]arbor.Key, []arbor.PendingKey, error) {
		origPKeys, err := tx.tx.PutMulti(keys, src)
		if err != nil {
			return nil, nil, err
		}

		return nil, toWrapperPendingKeys(origPKeys), nil
	})
	if err != nil {
		return nil, err
	}

	return pKeys, nil
}

func (tx *transactionImpl) Delete(key arbor.Key) error {
	err := tx.DeleteMulti([]arbor.Key{key})
	if merr, ok := err.(arbor.MultiError); ok {
		return merr[0]
	} else if err != nil {
		return err
	}

	return nil
}

func (tx *transactionImpl) DeleteMulti(keys []arbor.Key) error {
	return deleteMultiWith(keys, func(keys []*datastore.Key) error {
		return tx.tx.DeleteMulti(keys)
	})
}

func (tx *transactionImpl) Commit() (arbor.Commit, error) {
	commit, err := tx.tx.Commit()
	if err != nil {
		return nil, toWrapperError(err)
	}

	return &commitImpl{commit: commit}, nil
}

func (tx *transactionImpl) Rollback() error {
	return toWrapperError(tx.tx.Rollback())
}

func (tx *transactionImpl) Batch() *arbor.TransactionBatch {
	return &arbor.TransactionBatch{Transaction: tx}
}

// Key resolves a pending key issued by a Put inside the committed
// transaction.
func (c *commitImpl) Key(p arbor.PendingKey) arbor.Key {
	pk := toOriginalPendingKey(p)
	if pk == nil {
		return nil
	}
	return toWrapperKey(c.commit.Key(pk))
}
