package testsuite

import (
	"context"
	"testing"

	"go.kotori.dev/arbor"
)

func batchPutGetDelete(ctx context.Context, t *testing.T, client arbor.Client) {
	defer func() {
		err := client.Close()
		if err != nil {
			t.Fatal(err)
		}
	}()

	b := client.Batch()

	var putKeys []arbor.Key
	for _, name := range []string{"a", "b", "c"} {
		ps := arbor.PropertyList{{Name: "Name", Value: name}}
		b.Put(client.NameKey("Data", name, nil), ps, func(key arbor.Key, err error) error {
			if err != nil {
				return err
			}
			putKeys = append(putKeys, key)
			return nil
		})
	}
	if err := b.Exec(ctx); err != nil {
		t.Fatal(err)
	}
	if v := len(putKeys); v != 3 {
		t.Fatalf("unexpected: %v", v)
	}

	b = client.Batch()
	var got []arbor.PropertyList
	for _, key := range putKeys {
		b.Get(key, func(ps arbor.PropertyList, err error) error {
			if err != nil {
				return err
			}
			got = append(got, ps)
			return nil
		})
	}
	if err := b.Exec(ctx); err != nil {
		t.Fatal(err)
	}
	if v := len(got); v != 3 {
		t.Fatalf("unexpected: %v", v)
	}

	b = client.Batch()
	for _, key := range putKeys {
		b.Delete(key, nil)
	}
	if err := b.Exec(ctx); err != nil {
		t.Fatal(err)
	}

	for _, key := range putKeys {
		if _, err := client.Get(ctx, key); err != arbor.ErrNoSuchEntity {
			t.Errorf("unexpected: %v", err)
		}
	}
}

func transactionBatchPutGetDelete(ctx context.Context, t *testing.T, client arbor.Client) {
	defer func() {
		err := client.Close()
		if err != nil {
			t.Fatal(err)
		}
	}()

	keyE := client.NameKey("Data", "existing", nil)
	keyD := client.NameKey("Data", "doomed", nil)
	for _, key := range []arbor.Key{keyE, keyD} {
		if _, err := client.Put(ctx, key, arbor.PropertyList{{Name: "Name", Value: key.Name()}}); err != nil {
			t.Fatal(err)
		}
	}

	tx, err := client.NewTransaction(ctx)
	if err != nil {
		t.Fatal(err)
	}

	keyP := client.NameKey("Data", "fresh", nil)
	b := tx.Batch()
	putC := b.Put(keyP, arbor.PropertyList{{Name: "Name", Value: "fresh"}})
	getC := b.Get(keyE)
	delC := b.Delete(keyD)
	b.Exec()

	putR := <-putC
	pKey, err := b.UnwrapPutResult(putR)
	if err != nil {
		t.Fatal(err)
	}
	getR := <-getC
	if getR.Err != nil {
		t.Fatal(getR.Err)
	}
	if v, ok := getR.PropertyList.Value("Name"); !ok || v != "existing" {
		t.Errorf("unexpected: %v", v)
	}
	if err := <-delC; err != nil {
		t.Fatal(err)
	}

	commit, err := tx.Commit()
	if err != nil {
		t.Fatal(err)
	}
	if storedKey := commit.Key(pKey); storedKey == nil || !storedKey.Equal(keyP) {
		t.Errorf("unexpected: %v", storedKey)
	}

	if _, err := client.Get(ctx, keyP); err != nil {
		t.Errorf("unexpected: %v", err)
	}
	if _, err := client.Get(ctx, keyD); err != arbor.ErrNoSuchEntity {
		t.Errorf("unexpected: %v", err)
	}
}
