package arbor

import (
	"sync"
)

// TransactionBatch accumulates operations against one open transaction and
// dispatches each queue as a single multi call. Results come back on the
// channel returned at enqueue time, so callers can fan out dependent work
// and gather it before Commit.
type TransactionBatch struct {
	Transaction Transaction

	put    txBatchPut
	get    txBatchGet
	delete txBatchDelete
}

type txBatchPut struct {
	m      sync.Mutex
	keys   []Key
	psList []PropertyList
	cs     []chan *TransactionPutResult
}

// TransactionPutResult is the outcome of one batched transactional Put.
type TransactionPutResult struct {
	PendingKey PendingKey
	Err        error
}

type txBatchGet struct {
	m    sync.Mutex
	keys []Key
	cs   []chan *TransactionGetResult
}

// TransactionGetResult is the outcome of one batched transactional Get.
type TransactionGetResult struct {
	PropertyList PropertyList
	Err          error
}

type txBatchDelete struct {
	m    sync.Mutex
	keys []Key
	cs   []chan error
}

func (b *TransactionBatch) Put(key Key, ps PropertyList) chan *TransactionPutResult {
	return b.put.Put(key, ps)
}

// UnwrapPutResult splits a TransactionPutResult into its parts.
func (b *TransactionBatch) UnwrapPutResult(r *TransactionPutResult) (PendingKey, error) {
	if r.Err != nil {
		return nil, r.Err
	}

	return r.PendingKey, nil
}

func (b *TransactionBatch) Get(key Key) chan *TransactionGetResult {
	return b.get.Get(key)
}

func (b *TransactionBatch) Delete(key Key) chan error {
	return b.delete.Delete(key)
}

// Exec dispatches the queued operations. It returns immediately; receive
// from the enqueued channels to gather outcomes.
func (b *TransactionBatch) Exec() {
	go b.put.Exec(b.Transaction)
	go b.get.Exec(b.Transaction)
	go b.delete.Exec(b.Transaction)
}

func (b *txBatchPut) Put(key Key, ps PropertyList) chan *TransactionPutResult {
	b.m.Lock()
	defer b.m.Unlock()

	c := make(chan *TransactionPutResult)

	b.keys = append(b.keys, key)
	b.psList = append(b.psList, ps)
	b.cs = append(b.cs, c)

	return c
}

func (b *txBatchPut) Exec(tx Transaction) {
	if len(b.keys) == 0 {
		return
	}

	b.m.Lock()
	defer func() {
		b.keys = nil
		b.psList = nil
		b.cs = nil
	}()
	defer b.m.Unlock()

	newPendingKeys, err := tx.PutMulti(b.keys, b.psList)

	if merr, ok := err.(MultiError); ok {
		for idx, err := range merr {
			c := b.cs[idx]
			if err != nil {
				c <- &TransactionPutResult{Err: err}
			} else {
				c <- &TransactionPutResult{PendingKey: newPendingKeys[idx]}
			}
		}
		return
	} else if err != nil {
		for _, c := range b.cs {
			c <- &TransactionPutResult{Err: err}
		}
		return
	}

	for idx, newKey := range newPendingKeys {
		c := b.cs[idx]
		c <- &TransactionPutResult{PendingKey: newKey}
	}
}

func (b *txBatchGet) Get(key Key) chan *TransactionGetResult {
	b.m.Lock()
	defer b.m.Unlock()

	c := make(chan *TransactionGetResult)

	b.keys = append(b.keys, key)
	b.cs = append(b.cs, c)

	return c
}

func (b *txBatchGet) Exec(tx Transaction) {
	if len(b.keys) == 0 {
		return
	}

	b.m.Lock()
	defer func() {
		b.keys = nil
		b.cs = nil
	}()
	defer b.m.Unlock()

	psList := make([]PropertyList, len(b.keys))
	err := tx.GetMulti(b.keys, psList)

	if merr, ok := err.(MultiError); ok {
		for idx, err := range merr {
			c := b.cs[idx]
			if err != nil {
				c <- &TransactionGetResult{Err: err}
			} else {
				c <- &TransactionGetResult{PropertyList: psList[idx]}
			}
		}
		return
	} else if err != nil {
		for _, c := range b.cs {
			c <- &TransactionGetResult{Err: err}
		}
		return
	}

	for idx, c := range b.cs {
		c <- &TransactionGetResult{PropertyList: psList[idx]}
	}
}

func (b *txBatchDelete) Delete(key Key) chan error {
	b.m.Lock()
	defer b.m.Unlock()

	c := make(chan error)

	b.keys = append(b.keys, key)
	b.cs = append(b.cs, c)

	return c
}

func (b *txBatchDelete) Exec(tx Transaction) {
	if len(b.keys) == 0 {
		return
	}

	b.m.Lock()
	defer func() {
		b.keys = nil
		b.cs = nil
	}()
	defer b.m.Unlock()

	err := tx.DeleteMulti(b.keys)

	if merr, ok := err.(MultiError); ok {
		for idx, err := range merr {
			c := b.cs[idx]
			if err != nil {
				c <- err
			} else {
				c <- nil
			}
		}
		return
	} else if err != nil {
		for _, c := range b.cs {
			c <- err
		}
		return
	}

	for _, c := range b.cs {
		c <- nil
	}
}
