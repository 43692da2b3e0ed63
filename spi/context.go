package spi

import (
	"context"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/unique"
)

type contextTx struct{}
type contextState struct{}

// callState travels with one dispatch through its hook chain.
type callState struct {
	tx      arbor.Transaction
	locks   []unique.Pair
	stale   []unique.Pair
	current *arbor.Resource
}

func withCallState(ctx context.Context, cs *callState) context.Context {
	ctx = context.WithValue(ctx, contextState{}, cs)
	if cs.tx != nil {
		ctx = ContextWithTransaction(ctx, cs.tx)
	}
	return ctx
}

func stateFromContext(ctx context.Context) *callState {
	cs, ok := ctx.Value(contextState{}).(*callState)
	if !ok {
		return &callState{}
	}
	return cs
}

// ContextWithTransaction returns a context carrying an open
// transaction. Dispatch installs the ambient transaction this way
// before any hook fires.
func ContextWithTransaction(ctx context.Context, tx arbor.Transaction) context.Context {
	return context.WithValue(ctx, contextTx{}, tx)
}

// TransactionFromContext reports the ambient transaction of a promoted
// call. Hook receivers that write must join it so their writes commit
// or roll back together with the operation.
func TransactionFromContext(ctx context.Context) (arbor.Transaction, bool) {
	tx, ok := ctx.Value(contextTx{}).(arbor.Transaction)
	return tx, ok
}
