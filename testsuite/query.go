package testsuite

import (
	"context"
	"testing"

	"go.kotori.dev/arbor"
)

func seedSites(ctx context.Context, t *testing.T, client arbor.Client) {
	entities := []struct {
		name string
		site string
		rank int64
	}{
		{"a", "x", 0},
		{"b", "x", 1},
		{"c", "y", 2},
	}
	for _, e := range entities {
		ps := arbor.PropertyList{
			{Name: "Site", Value: e.site},
			{Name: "Rank", Value: e.rank},
		}
		if _, err := client.Put(ctx, client.NameKey("Data", e.name, nil), ps); err != nil {
			t.Fatal(err)
		}
	}
}

func queryFilterAndOrder(ctx context.Context, t *testing.T, client arbor.Client) {
	defer func() {
		err := client.Close()
		if err != nil {
			t.Fatal(err)
		}
	}()

	seedSites(ctx, t, client)

	q := client.NewQuery("Data").Filter("Site", "x").Order("-Rank")
	keys, psList, err := client.GetAll(ctx, q)
	if err != nil {
		t.Fatal(err)
	}

	if v := len(keys); v != 2 {
		t.Fatalf("unexpected: %v", v)
	}
	if v := keys[0].Name(); v != "b" {
		t.Errorf("unexpected: %v", v)
	}
	if v := keys[1].Name(); v != "a" {
		t.Errorf("unexpected: %v", v)
	}
	if v, ok := psList[0].Value("Rank"); !ok || v != int64(1) {
		t.Errorf("unexpected: %v", v)
	}
}

func queryKeysOnlyAndLimit(ctx context.Context, t *testing.T, client arbor.Client) {
	defer func() {
		err := client.Close()
		if err != nil {
			t.Fatal(err)
		}
	}()

	seedSites(ctx, t, client)

	q := client.NewQuery("Data").Order("Rank").KeysOnly().Limit(2)
	keys, psList, err := client.GetAll(ctx, q)
	if err != nil {
		t.Fatal(err)
	}

	if v := len(keys); v != 2 {
		t.Fatalf("unexpected: %v", v)
	}
	if psList != nil {
		t.Errorf("unexpected: %v", psList)
	}
	if v := keys[0].Name(); v != "a" {
		t.Errorf("unexpected: %v", v)
	}
}

func queryNoIndexExcluded(ctx context.Context, t *testing.T, client arbor.Client) {
	defer func() {
		err := client.Close()
		if err != nil {
			t.Fatal(err)
		}
	}()

	ps := arbor.PropertyList{
		{Name: "Secret", Value: "s", NoIndex: true},
	}
	if _, err := client.Put(ctx, client.NameKey("Data", "a", nil), ps); err != nil {
		t.Fatal(err)
	}

	q := client.NewQuery("Data").Filter("Secret", "s")
	keys, _, err := client.GetAll(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if v := len(keys); v != 0 {
		t.Errorf("unexpected: %v", v)
	}
}

func queryCount(ctx context.Context, t *testing.T, client arbor.Client) {
	defer func() {
		err := client.Close()
		if err != nil {
			t.Fatal(err)
		}
	}()

	seedSites(ctx, t, client)

	cnt, err := client.Count(ctx, client.NewQuery("Data"))
	if err != nil {
		t.Fatal(err)
	}
	if cnt != 3 {
		t.Errorf("unexpected: %v", cnt)
	}

	cnt, err = client.Count(ctx, client.NewQuery("Data").Filter("Site", "y"))
	if err != nil {
		t.Fatal(err)
	}
	if cnt != 1 {
		t.Errorf("unexpected: %v", cnt)
	}
}
