package testsuite

import (
	"context"
	"reflect"
	"sort"
	"testing"

	"go.kotori.dev/arbor"
)

func putAndGet(ctx context.Context, t *testing.T, client arbor.Client) {
	defer func() {
		err := client.Close()
		if err != nil {
			t.Fatal(err)
		}
	}()

	key := client.NameKey("Data", "a", nil)
	ps := arbor.PropertyList{
		{Name: "Str", Value: "Str"},
		{Name: "Int", Value: int64(42)},
		{Name: "Secret", Value: "hidden", NoIndex: true},
	}

	storedKey, err := client.Put(ctx, key, ps)
	if err != nil {
		t.Fatal(err)
	}
	if !storedKey.Equal(key) {
		t.Errorf("unexpected: %v", storedKey)
	}

	got, err := client.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	// backends do not promise property order
	sort.Slice(got, func(i, j int) bool { return got[i].Name < got[j].Name })
	sort.Slice(ps, func(i, j int) bool { return ps[i].Name < ps[j].Name })
	if !reflect.DeepEqual(got, ps) {
		t.Errorf("unexpected: %v", got)
	}

	_, err = client.Get(ctx, client.NameKey("Data", "missing", nil))
	if err != arbor.ErrNoSuchEntity {
		t.Errorf("unexpected: %v", err)
	}
}

func putAndGetIncompleteKey(ctx context.Context, t *testing.T, client arbor.Client) {
	defer func() {
		err := client.Close()
		if err != nil {
			t.Fatal(err)
		}
	}()

	key, err := client.Put(ctx, client.IncompleteKey("Data", nil), arbor.PropertyList{
		{Name: "A", Value: int64(1)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if key.Incomplete() {
		t.Fatalf("unexpected: %v", key)
	}
	if v := key.ID(); v == 0 {
		t.Errorf("unexpected: %v", v)
	}

	got, err := client.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := got.Value("A"); !ok || v != int64(1) {
		t.Errorf("unexpected: %v", v)
	}
}

func getMultiMixedResults(ctx context.Context, t *testing.T, client arbor.Client) {
	defer func() {
		err := client.Close()
		if err != nil {
			t.Fatal(err)
		}
	}()

	keyA := client.NameKey("Data", "a", nil)
	if _, err := client.Put(ctx, keyA, arbor.PropertyList{{Name: "A", Value: int64(1)}}); err != nil {
		t.Fatal(err)
	}

	keys := []arbor.Key{keyA, client.NameKey("Data", "missing", nil)}
	psList := make([]arbor.PropertyList, len(keys))
	err := client.GetMulti(ctx, keys, psList)

	merr, ok := err.(arbor.MultiError)
	if !ok {
		t.Fatalf("unexpected: %v", err)
	}
	if merr[0] != nil {
		t.Errorf("unexpected: %v", merr[0])
	}
	if merr[1] != arbor.ErrNoSuchEntity {
		t.Errorf("unexpected: %v", merr[1])
	}
	// hits fill their slots even when siblings miss
	if v, ok := psList[0].Value("A"); !ok || v != int64(1) {
		t.Errorf("unexpected: %v", v)
	}
}

func putAndDelete(ctx context.Context, t *testing.T, client arbor.Client) {
	defer func() {
		err := client.Close()
		if err != nil {
			t.Fatal(err)
		}
	}()

	key := client.NameKey("Data", "a", nil)
	if _, err := client.Put(ctx, key, arbor.PropertyList{{Name: "A", Value: int64(1)}}); err != nil {
		t.Fatal(err)
	}

	if err := client.Delete(ctx, key); err != nil {
		t.Fatal(err)
	}

	if _, err := client.Get(ctx, key); err != arbor.ErrNoSuchEntity {
		t.Errorf("unexpected: %v", err)
	}

	// deleting an absent key is not an error
	if err := client.Delete(ctx, key); err != nil {
		t.Errorf("unexpected: %v", err)
	}
}

func allocateIDs(ctx context.Context, t *testing.T, client arbor.Client) {
	defer func() {
		err := client.Close()
		if err != nil {
			t.Fatal(err)
		}
	}()

	keys, err := client.AllocateIDs(ctx, []arbor.Key{
		client.IncompleteKey("Data", nil),
		client.IncompleteKey("Data", nil),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Fatalf("unexpected: %v", len(keys))
	}
	for _, key := range keys {
		if key.Incomplete() {
			t.Errorf("unexpected: %v", key)
		}
	}
	if keys[0].Equal(keys[1]) {
		t.Errorf("unexpected: %v", keys)
	}
}
