package localcache

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/hooks/rescache"
	"go.kotori.dev/arbor/internal/testutils"
)

func TestLocalCache_Basic(t *testing.T) {
	ctx, base, cleanUp := testutils.SetupMemStore(t)
	defer cleanUp()

	var logs []string
	logf := func(ctx context.Context, format string, args ...any) {
		t.Logf(format, args...)
		logs = append(logs, fmt.Sprintf(format, args...))
	}

	ch := New(WithLogger(logf))
	client := rescache.NewClient(base, ch, nil)

	// Put. add to cache.
	key := base.NameKey("Memo", "a", nil)
	if _, err := client.Put(ctx, key, arbor.PropertyList{{Name: "body", Value: "hello"}}); err != nil {
		t.Fatal(err)
	}

	if v := ch.HasCache(key); !v {
		t.Fatalf("unexpected: %v", v)
	}

	// Get. from cache.
	ps, err := client.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := ps.Value("body"); v != "hello" {
		t.Errorf("unexpected: %v", v)
	}

	// Delete.
	if err := client.Delete(ctx, key); err != nil {
		t.Fatal(err)
	}

	if v := ch.HasCache(key); v {
		t.Fatalf("unexpected: %v", v)
	}

	expected := heredoc.Doc(`
		localcache.SetMulti: len=1
		localcache.SetMulti: idx=0 key=/Memo,a len(ps)=1
		localcache.GetMulti: len=1
		localcache.GetMulti: idx=0, hit key=/Memo,a len(ps)=1
		localcache.DeleteMulti: len=1
		localcache.DeleteMulti: idx=0 key=/Memo,a
	`)

	if v := strings.Join(logs, "\n") + "\n"; v != expected {
		t.Errorf("unexpected: %v", v)
	}
}

func TestLocalCache_Expired(t *testing.T) {
	ctx, base, cleanUp := testutils.SetupMemStore(t)
	defer cleanUp()

	var logs []string
	logf := func(ctx context.Context, format string, args ...any) {
		t.Logf(format, args...)
		logs = append(logs, fmt.Sprintf(format, args...))
	}

	ch := New(
		WithLogger(logf),
		WithExpireDuration(-1*time.Second),
	)
	client := rescache.NewClient(base, ch, nil)

	key := base.NameKey("Memo", "a", nil)
	if _, err := client.Put(ctx, key, arbor.PropertyList{{Name: "body", Value: "hello"}}); err != nil {
		t.Fatal(err)
	}

	// entry is already past its expiration, the read sweeps it and
	// falls through to the datastore, which refills.
	ps, err := client.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := ps.Value("body"); v != "hello" {
		t.Errorf("unexpected: %v", v)
	}

	expected := heredoc.Doc(`
		localcache.SetMulti: len=1
		localcache.SetMulti: idx=0 key=/Memo,a len(ps)=1
		localcache.GetMulti: len=1
		localcache.GetMulti: idx=0, expired key=/Memo,a
		localcache.SetMulti: len=1
		localcache.SetMulti: idx=0 key=/Memo,a len(ps)=1
	`)

	if v := strings.Join(logs, "\n") + "\n"; v != expected {
		t.Errorf("unexpected: %v", v)
	}
}

func TestLocalCache_Flush(t *testing.T) {
	ctx, base, cleanUp := testutils.SetupMemStore(t)
	defer cleanUp()

	ch := New()
	client := rescache.NewClient(base, ch, nil)

	keyA := base.NameKey("Memo", "a", nil)
	keyB := base.NameKey("Memo", "b", nil)
	if _, err := client.Put(ctx, keyA, arbor.PropertyList{{Name: "body", Value: "a"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Put(ctx, keyB, arbor.PropertyList{{Name: "body", Value: "b"}}); err != nil {
		t.Fatal(err)
	}

	if v := ch.CacheLen(); v != 2 {
		t.Fatalf("unexpected: %v", v)
	}
	if v := len(ch.CacheKeys()); v != 2 {
		t.Fatalf("unexpected: %v", v)
	}

	ch.DeleteCache(ctx, keyA)
	if v := ch.HasCache(keyA); v {
		t.Errorf("unexpected: %v", v)
	}
	if v := ch.CacheLen(); v != 1 {
		t.Errorf("unexpected: %v", v)
	}

	ch.FlushLocalCache()
	if v := ch.CacheLen(); v != 0 {
		t.Errorf("unexpected: %v", v)
	}
}
