// Package searchsync mirrors resource lifecycles into a search index
// through post hooks: insert and update put a document projection,
// delete removes it. The index write runs in the call path, so a
// transaction that rolls back after its post hooks can leave the index
// ahead of the store; the store stays authoritative and search results
// are advisory.
package searchsync

import (
	"context"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/api"
	"go.kotori.dev/arbor/search"
	"go.kotori.dev/arbor/signal"
	"go.kotori.dev/arbor/spi"
)

// Syncer maintains one index from the hooks it observes.
type Syncer struct {
	index search.Index
	async bool
}

// An Option customizes a Syncer.
type Option interface {
	Apply(*Syncer)
}

// Async connects the receivers asynchronously. The index write then
// overlaps the other post receivers of the same delivery; the call
// still waits for it and an index error still aborts the call.
func Async() Option {
	return asyncOption{}
}

type asyncOption struct{}

func (asyncOption) Apply(s *Syncer) {
	s.async = true
}

// New returns a syncer writing to index.
func New(index search.Index, opts ...Option) *Syncer {
	s := &Syncer{index: index}
	for _, opt := range opts {
		opt.Apply(s)
	}
	return s
}

// Observe connects the syncer to the insert, update and delete post
// hooks of node. Methods the node does not carry are skipped.
func (s *Syncer) Observe(node *api.ResourceAPI) {
	for _, code := range []string{"insert", "update"} {
		if m, ok := node.Method(code); ok {
			s.connect(m.Post(), s.onWrite(node.Schema()))
		}
	}
	if m, ok := node.Method("delete"); ok {
		s.connect(m.Post(), s.onDelete(node.Schema()))
	}
}

func (s *Syncer) connect(sig *signal.Signal, fn signal.Receiver) {
	if s.async {
		sig.ConnectAsync(fn)
		return
	}
	sig.Connect(fn)
}

// ObserveTree connects the syncer to every resource API in the tree.
func (s *Syncer) ObserveTree(root *api.Root) {
	root.Walk(s.Observe)
}

func (s *Syncer) onWrite(schema *arbor.Schema) signal.Receiver {
	return func(ctx context.Context, ev *signal.Event) (any, error) {
		res, ok := ev.Args[spi.ArgResource].(*arbor.Resource)
		if !ok || res == nil || res.UID() == "" {
			return nil, nil
		}
		return nil, s.index.Put(ctx, Project(schema, res))
	}
}

func (s *Syncer) onDelete(schema *arbor.Schema) signal.Receiver {
	return func(ctx context.Context, ev *signal.Event) (any, error) {
		uid, ok := ev.Result.(string)
		if !ok || uid == "" {
			return nil, nil
		}
		return nil, s.index.Delete(ctx, schema.Kind, uid)
	}
}

// Project builds the index document of r: every non-empty string
// property becomes a searchable field.
func Project(s *arbor.Schema, r *arbor.Resource) search.Document {
	doc := search.Document{Kind: s.Kind, UID: r.UID(), Fields: map[string]string{}}
	for _, p := range s.Properties {
		v, ok := r.Get(p.Name)
		if !ok {
			continue
		}
		if sv, ok := v.(string); ok && sv != "" {
			doc.Fields[p.Name] = sv
		}
	}
	return doc
}
