package testsuite

import (
	"context"
	"testing"

	"go.kotori.dev/arbor"
)

func transactionCommit(ctx context.Context, t *testing.T, client arbor.Client) {
	defer func() {
		err := client.Close()
		if err != nil {
			t.Fatal(err)
		}
	}()

	key := client.NameKey("Data", "tx", nil)

	tx, err := client.NewTransaction(ctx)
	if err != nil {
		t.Fatal(err)
	}

	pKey, err := tx.Put(key, arbor.PropertyList{{Name: "A", Value: int64(1)}})
	if err != nil {
		t.Fatal(err)
	}

	// nothing lands before commit
	if _, err := client.Get(ctx, key); err != arbor.ErrNoSuchEntity {
		t.Errorf("unexpected: %v", err)
	}

	commit, err := tx.Commit()
	if err != nil {
		t.Fatal(err)
	}

	storedKey := commit.Key(pKey)
	if storedKey == nil || !storedKey.Equal(key) {
		t.Errorf("unexpected: %v", storedKey)
	}

	got, err := client.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := got.Value("A"); !ok || v != int64(1) {
		t.Errorf("unexpected: %v", v)
	}
}

func transactionRollback(ctx context.Context, t *testing.T, client arbor.Client) {
	defer func() {
		err := client.Close()
		if err != nil {
			t.Fatal(err)
		}
	}()

	key := client.NameKey("Data", "rollback", nil)

	tx, err := client.NewTransaction(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tx.Put(key, arbor.PropertyList{{Name: "A", Value: int64(1)}}); err != nil {
		t.Fatal(err)
	}

	if err := tx.Rollback(); err != nil {
		t.Fatal(err)
	}

	if _, err := client.Get(ctx, key); err != arbor.ErrNoSuchEntity {
		t.Errorf("unexpected: %v", err)
	}
}

func transactionSnapshotIsolation(ctx context.Context, t *testing.T, client arbor.Client) {
	defer func() {
		err := client.Close()
		if err != nil {
			t.Fatal(err)
		}
	}()

	key := client.NameKey("Data", "snap", nil)
	if _, err := client.Put(ctx, key, arbor.PropertyList{{Name: "N", Value: int64(1)}}); err != nil {
		t.Fatal(err)
	}

	tx, err := client.NewTransaction(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// the first read pins the snapshot
	got, err := tx.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := got.Value("N"); !ok || v != int64(1) {
		t.Errorf("unexpected: %v", v)
	}

	// an outside write after that read stays invisible
	if _, err := client.Put(ctx, key, arbor.PropertyList{{Name: "N", Value: int64(2)}}); err != nil {
		t.Fatal(err)
	}

	got, err = tx.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := got.Value("N"); !ok || v != int64(1) {
		t.Errorf("unexpected: %v", v)
	}

	if err := tx.Rollback(); err != nil {
		t.Fatal(err)
	}
}

func transactionOwnWritesInvisible(ctx context.Context, t *testing.T, client arbor.Client) {
	defer func() {
		err := client.Close()
		if err != nil {
			t.Fatal(err)
		}
	}()

	key := client.NameKey("Data", "own", nil)

	tx, err := client.NewTransaction(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tx.Put(key, arbor.PropertyList{{Name: "A", Value: int64(1)}}); err != nil {
		t.Fatal(err)
	}

	// reads stay on the snapshot, the buffered write is not visible
	if _, err := tx.Get(key); err != arbor.ErrNoSuchEntity {
		t.Errorf("unexpected: %v", err)
	}

	if err := tx.Rollback(); err != nil {
		t.Fatal(err)
	}
}

func transactionFirstCommitterWins(ctx context.Context, t *testing.T, client arbor.Client) {
	defer func() {
		err := client.Close()
		if err != nil {
			t.Fatal(err)
		}
	}()

	key := client.NameKey("Counter", "c", nil)
	if _, err := client.Put(ctx, key, arbor.PropertyList{{Name: "N", Value: int64(0)}}); err != nil {
		t.Fatal(err)
	}

	tx1, err := client.NewTransaction(ctx)
	if err != nil {
		t.Fatal(err)
	}
	tx2, err := client.NewTransaction(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tx1.Get(key); err != nil {
		t.Fatal(err)
	}
	if _, err := tx2.Get(key); err != nil {
		t.Fatal(err)
	}

	if _, err := tx1.Put(key, arbor.PropertyList{{Name: "N", Value: int64(1)}}); err != nil {
		t.Fatal(err)
	}
	if _, err := tx2.Put(key, arbor.PropertyList{{Name: "N", Value: int64(2)}}); err != nil {
		t.Fatal(err)
	}

	if _, err := tx1.Commit(); err != nil {
		t.Fatal(err)
	}
	if _, err := tx2.Commit(); err != arbor.ErrConcurrentTransaction {
		t.Errorf("unexpected: %v", err)
	}

	got, err := client.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := got.Value("N"); !ok || v != int64(1) {
		t.Errorf("unexpected: %v", v)
	}
}

func runInTransactionRetry(ctx context.Context, t *testing.T, client arbor.Client) {
	defer func() {
		err := client.Close()
		if err != nil {
			t.Fatal(err)
		}
	}()

	key := client.NameKey("Counter", "retry", nil)
	if _, err := client.Put(ctx, key, arbor.PropertyList{{Name: "N", Value: int64(0)}}); err != nil {
		t.Fatal(err)
	}

	attempts := 0
	_, err := client.RunInTransaction(ctx, func(tx arbor.Transaction) error {
		attempts++

		ps, err := tx.Get(key)
		if err != nil {
			return err
		}

		if attempts == 1 {
			// interfere from outside so the first commit loses
			if _, err := client.Put(ctx, key, arbor.PropertyList{{Name: "N", Value: int64(100)}}); err != nil {
				return err
			}
		}

		idx := ps.Index("N")
		ps[idx].Value = ps[idx].Value.(int64) + 1
		_, err = tx.Put(key, ps)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if attempts < 2 {
		t.Errorf("unexpected: %v", attempts)
	}

	got, err := client.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := got.Value("N"); !ok || v != int64(101) {
		t.Errorf("unexpected: %v", v)
	}
}
