package spi

import "sync"

// Future is the handle of an Invoke call. Wait blocks until the result
// is in; it can be called any number of times and always reports the
// same outcome.
type Future struct {
	c    chan futureResult
	once sync.Once

	value any
	err   error
}

type futureResult struct {
	value any
	err   error
}

func newFuture() *Future {
	return &Future{c: make(chan futureResult, 1)}
}

func (f *Future) resolve(value any, err error) {
	f.c <- futureResult{value: value, err: err}
}

// Wait blocks until the call finished and returns its result.
func (f *Future) Wait() (any, error) {
	f.once.Do(func() {
		r := <-f.c
		f.value, f.err = r.value, r.err
	})
	return f.value, f.err
}
