package spi

import (
	"context"
	"testing"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/internal/testutils"
	"go.kotori.dev/arbor/memdatastore"
	"go.kotori.dev/arbor/search"
	"go.kotori.dev/arbor/signal"
)

func seedFiles(ctx context.Context, t *testing.T, client arbor.Client) map[string]string {
	t.Helper()

	s := fileSchema()
	insert := NewInsertMethod(client, s, "", nil)

	uids := map[string]string{}
	for _, f := range []struct {
		name   string
		size   int64
		folder string
	}{
		{"a.txt", 1, "docs"},
		{"b.txt", 2, "docs"},
		{"c.png", 3, "img"},
	} {
		res := arbor.NewResource(s)
		res.Set("file_name", f.name)
		res.Set("size", f.size)
		res.Set("folder", f.folder)
		v, err := insert.Call(ctx, map[string]any{ArgResource: res})
		if err != nil {
			t.Fatal(err)
		}
		uids[f.name] = v.(string)
	}
	return uids
}

func TestQueryMethod(t *testing.T) {
	ctx, client, cleanUp := testutils.SetupMemStore(t)
	defer cleanUp()

	uids := seedFiles(ctx, t, client)

	query := NewQueryMethod(client, fileSchema(), "", nil)
	v, err := query.Call(ctx, map[string]any{
		ArgFilters: map[string]any{"folder": "docs"},
		ArgOrder:   "-file_name",
	})
	if err != nil {
		t.Fatal(err)
	}

	files := v.([]*arbor.Resource)
	if v := len(files); v != 2 {
		t.Fatalf("unexpected: %v", v)
	}
	if v, _ := files[0].Get("file_name"); v != "b.txt" {
		t.Errorf("unexpected: %v", v)
	}
	if v, _ := files[1].Get("file_name"); v != "a.txt" {
		t.Errorf("unexpected: %v", v)
	}
	if v := files[0].UID(); v != uids["b.txt"] {
		t.Errorf("unexpected: %v", v)
	}
}

func TestQueryMethod_Limit(t *testing.T) {
	ctx, client, cleanUp := testutils.SetupMemStore(t)
	defer cleanUp()

	seedFiles(ctx, t, client)

	query := NewQueryMethod(client, fileSchema(), "", nil)
	v, err := query.Call(ctx, map[string]any{
		ArgOrder: "file_name",
		ArgLimit: 2,
	})
	if err != nil {
		t.Fatal(err)
	}

	files := v.([]*arbor.Resource)
	if v := len(files); v != 2 {
		t.Fatalf("unexpected: %v", v)
	}
	if v, _ := files[0].Get("file_name"); v != "a.txt" {
		t.Errorf("unexpected: %v", v)
	}
}

func TestQueryMethod_NeverPromotesItself(t *testing.T) {
	ctx := context.Background()
	base, err := memdatastore.New(ctx)
	if err != nil {
		t.Fatal(err)
	}
	client := testutils.NewTxCountClient(base)
	defer func() {
		if err := client.Close(); err != nil {
			t.Fatal(err)
		}
	}()

	key := client.NameKey("File", "u1", nil)
	if _, err := client.Put(ctx, key, arbor.PropertyList{
		{Name: "file_name", Value: "a.txt"},
		{Name: "folder", Value: "docs"},
	}); err != nil {
		t.Fatal(err)
	}

	query := NewQueryMethod(client, fileSchema(), "", nil)
	if _, err := query.Call(ctx, map[string]any{
		ArgFilters: map[string]any{"folder": "docs"},
	}); err != nil {
		t.Fatal(err)
	}
	if v := client.TxCount(); v != 0 {
		t.Errorf("unexpected: %v", v)
	}

	// receivers still promote; the scan itself stays outside the
	// transaction and keeps working
	query.Pre().Connect(func(ctx context.Context, ev *signal.Event) (any, error) {
		return nil, nil
	})
	result, err := query.Call(ctx, map[string]any{
		ArgFilters: map[string]any{"folder": "docs"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if v := client.TxCount(); v != 1 {
		t.Errorf("unexpected: %v", v)
	}
	if v := len(result.([]*arbor.Resource)); v != 1 {
		t.Errorf("unexpected: %v", v)
	}
}

func TestSearchMethod(t *testing.T) {
	ctx, client, cleanUp := testutils.SetupMemStore(t)
	defer cleanUp()

	idx := search.NewMemory()
	for uid, text := range map[string]string{
		"u1": "quarterly report",
		"u2": "weekly report",
		"u3": "holiday plan",
	} {
		err := idx.Put(ctx, search.Document{
			Kind:   "File",
			UID:    uid,
			Fields: map[string]string{"file_name": text},
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	m := NewSearchMethod(client, fileSchema(), "", nil, idx)
	v, err := m.Call(ctx, map[string]any{ArgQuery: "report"})
	if err != nil {
		t.Fatal(err)
	}

	docs := v.([]search.Document)
	if v := len(docs); v != 2 {
		t.Fatalf("unexpected: %v", v)
	}
	if docs[0].UID != "u1" || docs[1].UID != "u2" {
		t.Errorf("unexpected: %v, %v", docs[0].UID, docs[1].UID)
	}
}
