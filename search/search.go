// Package search defines the secondary index contract that resource
// APIs maintain through post hooks, plus an in-memory implementation
// for tests and local runs.
package search

import "context"

// Document is one indexed resource projection. Fields hold the
// searchable text by property name.
type Document struct {
	Kind   string
	UID    string
	Fields map[string]string
}

// Index is the index contract. Implementations must tolerate repeated
// Put calls for the same (kind, uid) by replacing the old document.
type Index interface {
	Put(ctx context.Context, doc Document) error
	Delete(ctx context.Context, kind, uid string) error
	Search(ctx context.Context, kind, query string) ([]Document, error)
}
