/*
Package arbor builds trees of CRUD-style resource APIs on top of a document
datastore, with every method wrapped in subscribable pre/operation/post hooks
and with unique-value constraints enforced transactionally on stores that have
no native unique index.

Layering, bottom to top:

	1. A backend-neutral datastore contract (Client, Transaction, Key) with
	   in-memory, SQLite and Cloud Datastore implementations.
	2. Resources: schema-described documents with per-instance change tracking.
	3. The method layer (package spi): pre/op/post hook dispatch, per-call
	   transaction promotion, and the two-phase unique-lock protocol
	   (package unique).
	4. The API tree (package api): a declarative hierarchy of resource APIs
	   whose hook names are discoverable for blanket tooling such as access
	   control (package hooks/guard).

Hooks

Every method owns three signals: a pre signal fired before the operation, an
action signal fired by the operation itself, and a post signal fired with the
operation result attached. Receivers connect to exactly the methods they care
about; nothing is process-global. The packages under hooks/ are ready-made
receivers: logging, read-through caching (in-process, memcached or Redis
backed), search index maintenance, access control and Prometheus counters.

Unique constraints

A property flagged unique in a schema is guarded by a lock entity whose key
name is "<Kind>.<property>.<value>". Writers create missing locks inside the
same transaction as the entity write, so the first committer wins and every
loser receives a *UniqueConstraintError naming the contested properties. See
package unique for the protocol details, including the non-transactional
fail-fast pre-check.

Choosing a backend

Use memdatastore for tests and prototyping, sqlitedatastore for single-node
persistence, and clouddatastore against Google Cloud Datastore. All three are
exercised by the shared testsuite package, so behavior relevant to the method
layer (snapshot transactions, first-committer-wins commits, MultiError
batching) is uniform.
*/
package arbor // import "go.kotori.dev/arbor"
