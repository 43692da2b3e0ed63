package arbor

import (
	"context"
	"sync"
)

// Batch accumulates single put/get/delete calls and flushes them as multi
// operations. Handlers receive per-element outcomes, so one failed element
// does not hide the rest.
type Batch struct {
	Client Client

	put    batchPut
	get    batchGet
	delete batchDelete
}

// BatchPutHandler is called once per batched Put with the stored key.
// Returning a non-nil error makes Exec report it.
type BatchPutHandler func(key Key, err error) error

// BatchGetHandler is called once per batched Get with the fetched properties.
type BatchGetHandler func(ps PropertyList, err error) error

// BatchErrHandler is called once per batched Delete.
type BatchErrHandler func(err error) error

type batchPut struct {
	m      sync.Mutex
	keys   []Key
	psList []PropertyList
	hs     []BatchPutHandler
}

type batchGet struct {
	m    sync.Mutex
	keys []Key
	hs   []BatchGetHandler
}

type batchDelete struct {
	m    sync.Mutex
	keys []Key
	hs   []BatchErrHandler
}

func (b *Batch) Put(key Key, ps PropertyList, h BatchPutHandler) {
	b.put.Put(key, ps, h)
}

func (b *Batch) Get(key Key, h BatchGetHandler) {
	b.get.Get(key, h)
}

func (b *Batch) Delete(key Key, h BatchErrHandler) {
	b.delete.Delete(key, h)
}

// Exec flushes the three queues concurrently and keeps flushing until
// handlers stop enqueueing follow-up work.
func (b *Batch) Exec(ctx context.Context) error {
	var wg sync.WaitGroup
	var errors []error
	var m sync.Mutex
	wg.Add(3)

	go func() {
		defer wg.Done()
		errs := b.put.Exec(ctx, b.Client)
		if len(errs) != 0 {
			m.Lock()
			errors = append(errors, errs...)
			m.Unlock()
		}
	}()
	go func() {
		defer wg.Done()
		errs := b.get.Exec(ctx, b.Client)
		if len(errs) != 0 {
			m.Lock()
			errors = append(errors, errs...)
			m.Unlock()
		}
	}()
	go func() {
		defer wg.Done()
		errs := b.delete.Exec(ctx, b.Client)
		if len(errs) != 0 {
			m.Lock()
			errors = append(errors, errs...)
			m.Unlock()
		}
	}()

	wg.Wait()

	if len(errors) != 0 {
		return MultiError(errors)
	}

	// Handlers may enqueue more batch work; drain until everything settles.
	if len(b.put.keys) != 0 || len(b.get.keys) != 0 || len(b.delete.keys) != 0 {
		return b.Exec(ctx)
	}

	return nil
}

func (b *batchPut) Put(key Key, ps PropertyList, h BatchPutHandler) {
	b.m.Lock()
	defer b.m.Unlock()

	b.keys = append(b.keys, key)
	b.psList = append(b.psList, ps)
	b.hs = append(b.hs, h)
}

func (b *batchPut) Exec(ctx context.Context, client Client) []error {
	if len(b.keys) == 0 {
		return nil
	}

	b.m.Lock()
	keys := b.keys
	psList := b.psList
	hs := b.hs
	b.keys = nil
	b.psList = nil
	b.hs = nil
	b.m.Unlock()

	newKeys, err := client.PutMulti(ctx, keys, psList)

	if merr, ok := err.(MultiError); ok {
		trimmedError := make([]error, 0, len(merr))
		for idx, err := range merr {
			h := hs[idx]
			if h != nil {
				var key Key
				if newKeys != nil {
					key = newKeys[idx]
				}
				err = h(key, err)
			}
			if err != nil {
				trimmedError = append(trimmedError, err)
			}
		}
		return trimmedError
	} else if err != nil {
		for _, h := range hs {
			if h != nil {
				h(nil, err)
			}
		}
		return []error{err}
	}

	errs := make([]error, 0, len(newKeys))
	for idx, newKey := range newKeys {
		h := hs[idx]
		if h != nil {
			err := h(newKey, nil)
			if err != nil {
				errs = append(errs, err)
			}
		}
	}

	if len(errs) != 0 {
		return errs
	}

	return nil
}

func (b *batchGet) Get(key Key, h BatchGetHandler) {
	b.m.Lock()
	defer b.m.Unlock()

	b.keys = append(b.keys, key)
	b.hs = append(b.hs, h)
}

func (b *batchGet) Exec(ctx context.Context, client Client) []error {
	if len(b.keys) == 0 {
		return nil
	}

	b.m.Lock()
	keys := b.keys
	hs := b.hs
	b.keys = nil
	b.hs = nil
	b.m.Unlock()

	psList := make([]PropertyList, len(keys))
	err := client.GetMulti(ctx, keys, psList)

	if merr, ok := err.(MultiError); ok {
		trimmedError := make([]error, 0, len(merr))
		for idx, err := range merr {
			h := hs[idx]
			if h != nil {
				err = h(psList[idx], err)
			}
			if err != nil {
				trimmedError = append(trimmedError, err)
			}
		}
		return trimmedError
	} else if err != nil {
		for _, h := range hs {
			if h != nil {
				h(nil, err)
			}
		}
		return []error{err}
	}

	errs := make([]error, 0, len(hs))
	for idx, h := range hs {
		if h != nil {
			err := h(psList[idx], nil)
			if err != nil {
				errs = append(errs, err)
			}
		}
	}

	if len(errs) != 0 {
		return errs
	}

	return nil
}

func (b *batchDelete) Delete(key Key, h BatchErrHandler) {
	b.m.Lock()
	defer b.m.Unlock()

	b.keys = append(b.keys, key)
	b.hs = append(b.hs, h)
}

func (b *batchDelete) Exec(ctx context.Context, client Client) []error {
	if len(b.keys) == 0 {
		return nil
	}

	b.m.Lock()
	keys := b.keys
	hs := b.hs
	b.keys = nil
	b.hs = nil
	b.m.Unlock()

	err := client.DeleteMulti(ctx, keys)

	if merr, ok := err.(MultiError); ok {
		trimmedError := make([]error, 0, len(merr))
		for idx, err := range merr {
			h := hs[idx]
			if h != nil {
				err = h(err)
			}
			if err != nil {
				trimmedError = append(trimmedError, err)
			}
		}
		return trimmedError
	} else if err != nil {
		for _, h := range hs {
			if h != nil {
				h(err)
			}
		}
		return []error{err}
	}

	errs := make([]error, 0, len(hs))
	for _, h := range hs {
		if h != nil {
			err := h(nil)
			if err != nil {
				errs = append(errs, err)
			}
		}
	}

	if len(errs) != 0 {
		return errs
	}

	return nil
}
