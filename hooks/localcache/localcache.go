// Package localcache keeps entities in process memory. It implements
// rescache.Storage, so it plugs into rescache.NewClient as the fastest
// cache tier. Entries expire a fixed duration after they were set and
// are swept lazily on the next read that touches them.
package localcache

import (
	"context"
	"sync"
	"time"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/hooks/rescache"
)

var _ rescache.Storage = &Cache{}

const defaultExpiration = 3 * time.Minute

// New builds an empty cache.
func New(opts ...CacheOption) *Cache {
	c := &Cache{
		cache: make(map[string]cacheItem),
	}

	for _, opt := range opts {
		opt.Apply(c)
	}

	if c.expireDuration == 0 {
		c.expireDuration = defaultExpiration
	}
	if c.logf == nil {
		c.logf = func(ctx context.Context, format string, args ...any) {}
	}

	return c
}

// Cache is a process-local rescache.Storage.
type Cache struct {
	cache map[string]cacheItem
	m     sync.Mutex

	expireDuration time.Duration
	logf           func(ctx context.Context, format string, args ...any)
}

// CacheOption customizes a Cache.
type CacheOption interface {
	Apply(*Cache)
}

type cacheItem struct {
	key          arbor.Key
	propertyList arbor.PropertyList
	setAt        time.Time
	expiration   time.Duration
}

// HasCache reports whether key has an entry. Expired entries count
// until a read sweeps them.
func (c *Cache) HasCache(key arbor.Key) bool {
	c.m.Lock()
	defer c.m.Unlock()
	_, ok := c.cache[key.Encode()]
	return ok
}

// DeleteCache drops key's entry.
func (c *Cache) DeleteCache(ctx context.Context, key arbor.Key) {
	c.m.Lock()
	defer c.m.Unlock()
	c.logf(ctx, "localcache.DeleteCache: key=%s", key.String())
	delete(c.cache, key.Encode())
}

// CacheKeys returns the encoded key of every entry.
func (c *Cache) CacheKeys() []string {
	c.m.Lock()
	defer c.m.Unlock()
	list := make([]string, 0, len(c.cache))
	for keyStr := range c.cache {
		list = append(list, keyStr)
	}

	return list
}

// CacheLen returns the number of entries.
func (c *Cache) CacheLen() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.cache)
}

// FlushLocalCache drops every entry.
func (c *Cache) FlushLocalCache() {
	c.m.Lock()
	defer c.m.Unlock()
	c.cache = make(map[string]cacheItem)
}

func (c *Cache) SetMulti(ctx context.Context, items []*rescache.Item) error {
	c.m.Lock()
	defer c.m.Unlock()

	c.logf(ctx, "localcache.SetMulti: len=%d", len(items))
	for idx, item := range items {
		c.logf(ctx, "localcache.SetMulti: idx=%d key=%s len(ps)=%d", idx, item.Key.String(), len(item.PropertyList))
	}

	now := time.Now()
	for _, item := range items {
		if item.Key.Incomplete() {
			continue
		}
		c.cache[item.Key.Encode()] = cacheItem{
			key:          item.Key,
			propertyList: item.PropertyList,
			setAt:        now,
			expiration:   c.expireDuration,
		}
	}

	return nil
}

func (c *Cache) GetMulti(ctx context.Context, keys []arbor.Key) ([]*rescache.Item, error) {
	c.m.Lock()
	defer c.m.Unlock()

	now := time.Now()

	c.logf(ctx, "localcache.GetMulti: len=%d", len(keys))

	items := make([]*rescache.Item, len(keys))
	for idx, key := range keys {
		if key.Incomplete() {
			c.logf(ctx, "localcache.GetMulti: idx=%d, incomplete key=%s", idx, key.String())
			continue
		}
		cItem, ok := c.cache[key.Encode()]
		if !ok {
			c.logf(ctx, "localcache.GetMulti: idx=%d, missed key=%s", idx, key.String())
			continue
		}

		if cItem.setAt.Add(cItem.expiration).After(now) {
			c.logf(ctx, "localcache.GetMulti: idx=%d, hit key=%s len(ps)=%d", idx, key.String(), len(cItem.propertyList))
			items[idx] = &rescache.Item{
				Key:          key,
				PropertyList: cItem.propertyList,
			}
		} else {
			c.logf(ctx, "localcache.GetMulti: idx=%d, expired key=%s", idx, key.String())
			delete(c.cache, key.Encode())
		}
	}

	return items, nil
}

func (c *Cache) DeleteMulti(ctx context.Context, keys []arbor.Key) error {
	c.m.Lock()
	defer c.m.Unlock()

	c.logf(ctx, "localcache.DeleteMulti: len=%d", len(keys))
	for idx, key := range keys {
		c.logf(ctx, "localcache.DeleteMulti: idx=%d key=%s", idx, key.String())
	}

	for _, key := range keys {
		delete(c.cache, key.Encode())
	}

	return nil
}
