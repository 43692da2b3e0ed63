package rescache

import (
	"context"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/api"
	"go.kotori.dev/arbor/signal"
)

// Invalidator drops cache entries after a resource method rewrites
// them. A client built by NewClient already invalidates through its
// own write path; the hook form covers deployments where several
// processes share one Storage and writes arrive through methods bound
// to other clients. Storage errors never fail the observed call, the
// write has already landed.
type Invalidator struct {
	s       Storage
	client  arbor.Client
	logf    func(ctx context.Context, format string, args ...any)
	filters []KeyFilter
}

// NewInvalidator builds an invalidator over s. The client only mints
// keys, no entity traffic goes through it.
func NewInvalidator(client arbor.Client, s Storage, opts *Options) *Invalidator {
	iv := &Invalidator{s: s, client: client}
	if opts != nil {
		iv.logf = opts.Logf
		iv.filters = opts.Filters
	}
	if iv.logf == nil {
		iv.logf = func(ctx context.Context, format string, args ...any) {}
	}
	return iv
}

// Observe connects the invalidator to node's update and delete hooks.
func (iv *Invalidator) Observe(node *api.ResourceAPI) {
	kind := node.Schema().Kind
	for _, m := range node.Methods() {
		switch m.Code() {
		case "update", "delete":
			m.Post().Connect(iv.receiver(kind))
		}
	}
}

// ObserveTree connects the invalidator below every resource under root.
func (iv *Invalidator) ObserveTree(root *api.Root) {
	root.Walk(func(node *api.ResourceAPI) {
		iv.Observe(node)
	})
}

func (iv *Invalidator) receiver(kind string) signal.Receiver {
	return func(ctx context.Context, ev *signal.Event) (any, error) {
		uid, _ := ev.Result.(string)
		if uid == "" {
			return nil, nil
		}
		key := iv.client.NameKey(kind, uid, nil)
		for _, f := range iv.filters {
			if !f(ctx, key) {
				return nil, nil
			}
		}
		if err := iv.s.DeleteMulti(ctx, []arbor.Key{key}); err != nil {
			iv.logf(ctx, "rescache.Invalidator: storage.DeleteMulti err=%s", err.Error())
		}
		return nil, nil
	}
}
