package spi

import (
	"context"
	"time"
)

// CallObservation describes one finished method call.
type CallObservation struct {
	// Method is the qualified action name, "api.v1.files.insert".
	Method string
	// Code is the bare method code, "insert".
	Code string
	// Promoted reports whether the call ran inside a transaction.
	Promoted bool
	// Err is the call's error, nil on success.
	Err error
	// Duration covers planning through commit.
	Duration time.Duration
}

// CallObserver receives the outcome of every call on an instrumented
// method. It runs on the caller's goroutine after the call finished,
// outside any transaction, so it never joins or promotes one.
// Implementations must be safe for concurrent use.
type CallObserver interface {
	ObserveCall(ctx context.Context, o CallObservation)
}
