package rediscache

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/gomodule/redigo/redis"
	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/hooks/rescache"
	"go.kotori.dev/arbor/internal/testutils"
)

func redisConn(t *testing.T) redis.Conn {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		t.Skip("REDIS_HOST is not set")
	}
	dial, err := net.Dial("tcp", host+":"+os.Getenv("REDIS_PORT"))
	if err != nil {
		t.Fatal(err)
	}
	conn := redis.NewConn(dial, 100*time.Millisecond, 100*time.Millisecond)
	t.Cleanup(func() {
		conn.Close()
		dial.Close()
	})
	return conn
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

func TestRedisCache_Basic(t *testing.T) {
	ctx, base, cleanUp := testutils.SetupMemStore(t)
	defer cleanUp()

	var logs []string
	logf := func(ctx context.Context, format string, args ...any) {
		t.Logf(format, args...)
		logs = append(logs, fmt.Sprintf(format, args...))
	}

	conn := redisConn(t)
	defer func() {
		if _, err := conn.Do("FLUSHALL"); err != nil {
			t.Fatal(err)
		}
	}()

	ch := New(
		conn,
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
		rediscache.SetMulti: incoming len=1
		rediscache.SetMulti: len=1
		rediscache.GetMulti: incoming len=1
		rediscache.GetMulti: hit=1 miss=0
		rediscache.GetMulti: incoming len=1
		rediscache.GetMulti: hit=1 miss=0
		rediscache.DeleteMulti: incoming len=1
		rediscache.GetMulti: incoming len=1
		rediscache.GetMulti: hit=0 miss=1
	`)

	if v := strings.Join(logs, "\n") + "\n"; v != expected {
		t.Errorf("unexpected: %v", v)
	}
}

func TestRedisCache_WithCacheKey(t *testing.T) {
	ctx, base, cleanUp := testutils.SetupMemStore(t)
	defer cleanUp()

	conn := redisConn(t)
	defer func() {
		if _, err := conn.Do("FLUSHALL"); err != nil {
			t.Fatal(err)
		}
	}()

	ch := New(
		conn,
		WithCacheKey(func(key arbor.Key) string {
			return "custom:" + key.Kind() + "," + key.Name()
		}),
	)
	client := rescache.NewClient(base, ch, nil)

	key := base.NameKey("Memo", "a", nil)
	if _, err := client.Put(ctx, key, arbor.PropertyList{{Name: "body", Value: "hello"}}); err != nil {
		t.Fatal(err)
	}

	b, err := redis.Bytes(conn.Do("GET", "custom:Memo,a"))
	if err != nil {
		t.Fatal(err)
	}
	if v := len(b); v == 0 {
		t.Fatalf("unexpected: %v", v)
	}

	hit, err := inCache(ctx, ch, key)
	if err != nil {
		t.Fatal(err)
	} else if v := hit; !v {
		t.Fatalf("unexpected: %v", v)
	}
}
