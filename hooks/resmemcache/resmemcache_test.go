package resmemcache

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/bradfitz/gomemcache/memcache"
	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/hooks/rescache"
	"go.kotori.dev/arbor/internal/testutils"
)

func memcacheClient(t *testing.T) *memcache.Client {
	addr := os.Getenv("MEMCACHE_ADDR")
	if addr == "" {
		t.Skip("MEMCACHE_ADDR is not set")
	}
	return memcache.New(addr)
}

func inCache(ctx context.Context, ch rescache.Storage, key arbor.Key) (bool, error) {
	resp, err := ch.GetMulti(ctx, []arbor.Key{key})
	if err != nil {
		return false, err
	} else if v := len(resp); v != 1 {
		return false, nil
	} else if v := resp[0]; v == nil {
		return false, nil
	}

	return true, nil
}

func TestMemcache_Basic(t *testing.T) {
	ctx, base, cleanUp := testutils.SetupMemStore(t)
	defer cleanUp()

	var logs []string
	logf := func(ctx context.Context, format string, args ...any) {
		t.Logf(format, args...)
		logs = append(logs, fmt.Sprintf(format, args...))
	}

	mc := memcacheClient(t)
	defer func() {
		if err := mc.FlushAll(); err != nil {
			t.Fatal(err)
		}
	}()

	ch := New(
		mc,
		WithLogger(logf),
	)
	client := rescache.NewClient(base, ch, nil)

	// Put. add to cache.
	key := base.NameKey("Memo", "a", nil)
	if _, err := client.Put(ctx, key, arbor.PropertyList{{Name: "body", Value: "hello"}}); err != nil {
		t.Fatal(err)
	}

	hit, err := inCache(ctx, ch, key)
	if err != nil {
		t.Fatal(err)
	} else if v := hit; !v {
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

	hit, err = inCache(ctx, ch, key)
	if err != nil {
		t.Fatal(err)
	} else if v := hit; v {
		t.Fatalf("unexpected: %v", v)
	}

	expected := heredoc.Doc(`
		resmemcache.SetMulti: incoming len=1
		resmemcache.GetMulti: incoming len=1
		resmemcache.GetMulti: hit=1 miss=0
		resmemcache.GetMulti: incoming len=1
		resmemcache.GetMulti: hit=1 miss=0
		resmemcache.DeleteMulti: incoming len=1
		resmemcache.GetMulti: incoming len=1
		resmemcache.GetMulti: hit=0 miss=1
	`)

	if v := strings.Join(logs, "\n") + "\n"; v != expected {
		t.Errorf("unexpected: %v", v)
	}
}

func TestMemcache_WithCacheKey(t *testing.T) {
	ctx, base, cleanUp := testutils.SetupMemStore(t)
	defer cleanUp()

	mc := memcacheClient(t)
	defer func() {
		if err := mc.FlushAll(); err != nil {
			t.Fatal(err)
		}
	}()

	ch := New(
		mc,
		WithCacheKey(func(key arbor.Key) string {
			return "custom:" + key.Kind() + "," + key.Name()
		}),
	)
	client := rescache.NewClient(base, ch, nil)

	key := base.NameKey("Memo", "a", nil)
	if _, err := client.Put(ctx, key, arbor.PropertyList{{Name: "body", Value: "hello"}}); err != nil {
		t.Fatal(err)
	}

	if _, err := mc.Get("custom:Memo,a"); err != nil {
		t.Fatal(err)
	}

	hit, err := inCache(ctx, ch, key)
	if err != nil {
		t.Fatal(err)
	} else if v := hit; !v {
		t.Fatalf("unexpected: %v", v)
	}
}
