package search

import (
	"context"
	"testing"
)

func TestMemory_PutAndSearch(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory()

	docs := []Document{
		{Kind: "Article", UID: "a", Fields: map[string]string{"title": "Go concurrency patterns"}},
		{Kind: "Article", UID: "b", Fields: map[string]string{"title": "Go error handling"}},
		{Kind: "Article", UID: "c", Fields: map[string]string{"title": "Datastore transactions"}},
	}
	for _, doc := range docs {
		if err := idx.Put(ctx, doc); err != nil {
			t.Fatal(err)
		}
	}

	got, err := idx.Search(ctx, "Article", "go")
	if err != nil {
		t.Fatal(err)
	}
	if v := len(got); v != 2 {
		t.Fatalf("unexpected: %v", v)
	}
	if got[0].UID != "a" || got[1].UID != "b" {
		t.Errorf("unexpected: %v", got)
	}

	// every term must match
	got, err = idx.Search(ctx, "Article", "go patterns")
	if err != nil {
		t.Fatal(err)
	}
	if v := len(got); v != 1 {
		t.Fatalf("unexpected: %v", v)
	}
	if got[0].UID != "a" {
		t.Errorf("unexpected: %v", got)
	}

	// empty query matches everything of the kind
	got, err = idx.Search(ctx, "Article", "")
	if err != nil {
		t.Fatal(err)
	}
	if v := len(got); v != 3 {
		t.Errorf("unexpected: %v", v)
	}
}

func TestMemory_PutReplaces(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory()

	if err := idx.Put(ctx, Document{Kind: "Article", UID: "a", Fields: map[string]string{"title": "old title"}}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Put(ctx, Document{Kind: "Article", UID: "a", Fields: map[string]string{"title": "new title"}}); err != nil {
		t.Fatal(err)
	}

	got, err := idx.Search(ctx, "Article", "old")
	if err != nil {
		t.Fatal(err)
	}
	if v := len(got); v != 0 {
		t.Errorf("unexpected: %v", got)
	}

	got, err = idx.Search(ctx, "Article", "new")
	if err != nil {
		t.Fatal(err)
	}
	if v := len(got); v != 1 {
		t.Errorf("unexpected: %v", got)
	}
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory()

	if err := idx.Put(ctx, Document{Kind: "Article", UID: "a", Fields: map[string]string{"title": "doomed"}}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Delete(ctx, "Article", "a"); err != nil {
		t.Fatal(err)
	}
	// deleting twice is fine
	if err := idx.Delete(ctx, "Article", "a"); err != nil {
		t.Fatal(err)
	}

	got, err := idx.Search(ctx, "Article", "doomed")
	if err != nil {
		t.Fatal(err)
	}
	if v := len(got); v != 0 {
		t.Errorf("unexpected: %v", got)
	}
}
