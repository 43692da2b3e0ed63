// Package guard wires one access check onto every pre hook of an API
// tree. The check itself is pluggable; the package owns the wiring.
// Installing a guard gives every method a pre receiver, which promotes
// every call into a transaction.
package guard

import (
	"context"

	"go.kotori.dev/arbor/api"
	"go.kotori.dev/arbor/signal"
)

// CheckFunc decides whether one call may proceed. path is the owning
// node path, code the method code; a non-nil error aborts the call
// before its operation runs.
type CheckFunc func(ctx context.Context, path, code string, ev *signal.Event) error

// AllowAll lets every call through.
func AllowAll(ctx context.Context, path, code string, ev *signal.Event) error {
	return nil
}

// Guard is a blanket pre hook subscriber.
type Guard struct {
	check CheckFunc
}

// New returns a guard running check. A nil check allows everything.
func New(check CheckFunc) *Guard {
	if check == nil {
		check = AllowAll
	}
	return &Guard{check: check}
}

// Install connects the guard to the pre signal of every method in the
// tree and returns the number of hooks observed.
func (g *Guard) Install(root *api.Root) int {
	n := 0
	root.Walk(func(node *api.ResourceAPI) {
		path := node.Path()
		for _, m := range node.Methods() {
			code := m.Code()
			m.Pre().Connect(func(ctx context.Context, ev *signal.Event) (any, error) {
				return nil, g.check(ctx, path, code, ev)
			})
			n++
		}
	})
	return n
}
