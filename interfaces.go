package arbor

import (
	"context"
)

// ClientGenerator is the signature of each backend's New function.
type ClientGenerator func(ctx context.Context, opts ...ClientOption) (Client, error)

// Client is the backend-neutral datastore contract the method layer runs on.
// Multi operations report per-element failures as MultiError; a missing
// entity surfaces as ErrNoSuchEntity in the corresponding slot.
type Client interface {
	Get(ctx context.Context, key Key) (PropertyList, error)
	// GetMulti fills psList, which must have the same length as keys.
	GetMulti(ctx context.Context, keys []Key, psList []PropertyList) error
	Put(ctx context.Context, key Key, ps PropertyList) (Key, error)
	PutMulti(ctx context.Context, keys []Key, psList []PropertyList) ([]Key, error)
	Delete(ctx context.Context, key Key) error
	DeleteMulti(ctx context.Context, keys []Key) error

	NewTransaction(ctx context.Context) (Transaction, error)
	RunInTransaction(ctx context.Context, f func(tx Transaction) error) (Commit, error)
	AllocateIDs(ctx context.Context, keys []Key) ([]Key, error)

	NewQuery(kind string) Query
	GetAll(ctx context.Context, q Query) ([]Key, []PropertyList, error)
	Count(ctx context.Context, q Query) (int, error)

	IncompleteKey(kind string, parent Key) Key
	NameKey(kind, name string, parent Key) Key
	IDKey(kind string, id int64, parent Key) Key

	Batch() *Batch

	Close() error
}

// Key is one entity's identity. Implementations are backend-specific;
// the method layer treats them as opaque except for equality and encoding.
type Key interface {
	Kind() string
	ID() int64
	Name() string
	ParentKey() Key
	Namespace() string

	String() string
	Encode() string
	Equal(o Key) bool
	Incomplete() bool
}

// PendingKey is the not-yet-final key of an entity written inside an open
// transaction. Commit resolves it.
type PendingKey interface {
	StoredContext() context.Context
}

// Transaction is an atomic unit of reads and writes with at least snapshot
// isolation on the keys it touches. When two transactions race on the same
// key, the first committer wins and the loser's Commit returns
// ErrConcurrentTransaction.
type Transaction interface {
	Get(key Key) (PropertyList, error)
	GetMulti(keys []Key, psList []PropertyList) error
	Put(key Key, ps PropertyList) (PendingKey, error)
	PutMulti(keys []Key, psList []PropertyList) ([]PendingKey, error)
	Delete(key Key) error
	DeleteMulti(keys []Key) error

	Commit() (Commit, error)
	Rollback() error

	Batch() *TransactionBatch
}

// Commit resolves PendingKeys produced inside the committed transaction.
type Commit interface {
	Key(p PendingKey) Key
}

// Query selects entities of one kind. The surface is deliberately small:
// equality filters, a single sort order, keys-only projection and limits.
// Anything richer belongs to a dedicated query layer, not this contract.
type Query interface {
	Filter(property string, value any) Query
	Order(property string) Query
	KeysOnly() Query
	Limit(limit int) Query

	Dump() *QueryDump
}
