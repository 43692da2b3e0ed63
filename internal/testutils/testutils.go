package testutils

import (
	"context"
	"strings"
	"sync"
	"testing"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/memdatastore"
)

var EmitCleanUpLog = false

// SetupMemStore returns a fresh in-memory client. Every caller gets
// its own store, no cross-test state survives the cleanup closure.
func SetupMemStore(t *testing.T) (context.Context, arbor.Client, func()) {
	ctx := context.Background()
	client, err := memdatastore.New(ctx)
	if err != nil {
		t.Fatal(err)
	}

	return ctx, client, func() {
		if err := client.Close(); err != nil {
			t.Fatal(err)
		}
	}
}

// CleanUpAllEntities removes every entity of the given kinds. Shared
// backends need this between tests; the in-memory store does not.
func CleanUpAllEntities(ctx context.Context, t *testing.T, client arbor.Client, kinds ...string) {
	if EmitCleanUpLog {
		t.Logf("remove %s", strings.Join(kinds, ", "))
	}

	for _, kind := range kinds {
		cnt := 0
		for {
			q := client.NewQuery(kind).Limit(1000).KeysOnly()
			keys, _, err := client.GetAll(ctx, q)
			if err != nil {
				t.Fatal(err)
			}
			if err := client.DeleteMulti(ctx, keys); err != nil {
				t.Fatal(err)
			}

			cnt += len(keys)

			if len(keys) != 1000 {
				if EmitCleanUpLog {
					t.Logf("remove %s entity: %d", kind, cnt)
				}
				break
			}
		}
	}
}

// TxCountClient wraps a Client and counts how many transactions it
// opened. Tests use it to observe whether a call path promoted.
type TxCountClient struct {
	arbor.Client

	mu  sync.Mutex
	cnt int
}

// NewTxCountClient wraps client with a transaction counter.
func NewTxCountClient(client arbor.Client) *TxCountClient {
	return &TxCountClient{Client: client}
}

func (c *TxCountClient) NewTransaction(ctx context.Context) (arbor.Transaction, error) {
	c.mu.Lock()
	c.cnt++
	c.mu.Unlock()
	return c.Client.NewTransaction(ctx)
}

func (c *TxCountClient) RunInTransaction(ctx context.Context, f func(tx arbor.Transaction) error) (arbor.Commit, error) {
	c.mu.Lock()
	c.cnt++
	c.mu.Unlock()
	return c.Client.RunInTransaction(ctx, f)
}

// TxCount reports the number of transactions opened so far.
func (c *TxCountClient) TxCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cnt
}
