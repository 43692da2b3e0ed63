// Package resmemcache stores entities in memcached through
// github.com/bradfitz/gomemcache. It implements rescache.Storage, so a
// fleet of processes can share one cache tier through
// rescache.NewClient. Values are gob encoded PropertyLists.
package resmemcache

import (
	"bytes"
	"context"
	"encoding/gob"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/hooks/rescache"
)

var _ rescache.Storage = &cacheHandler{}

// New builds a Storage over client.
func New(client *memcache.Client, opts ...CacheOption) rescache.Storage {
	ch := &cacheHandler{
		client: client,
	}

	for _, opt := range opts {
		opt.Apply(ch)
	}

	if ch.logf == nil {
		ch.logf = func(ctx context.Context, format string, args ...any) {}
	}
	if ch.cacheKey == nil {
		ch.cacheKey = func(key arbor.Key) string {
			return "arbor:resmemcache:" + key.Encode()
		}
	}

	return ch
}

type cacheHandler struct {
	client         *memcache.Client
	expireDuration time.Duration
	logf           func(ctx context.Context, format string, args ...any)
	cacheKey       func(key arbor.Key) string
}

// A CacheOption is a cache option for a resmemcache storage.
type CacheOption interface {
	Apply(*cacheHandler)
}

func (ch *cacheHandler) SetMulti(ctx context.Context, items []*rescache.Item) error {

	ch.logf(ctx, "resmemcache.SetMulti: incoming len=%d", len(items))

	for _, item := range items {
		if item.Key.Incomplete() {
			panic("incomplete key incoming")
		}
		var buf bytes.Buffer
		enc := gob.NewEncoder(&buf)
		if err := enc.Encode(item.PropertyList); err != nil {
			ch.logf(ctx, "resmemcache.SetMulti: gob.Encode error key=%s err=%s", item.Key.String(), err.Error())
			continue
		}
		mItem := &memcache.Item{
			Key:        ch.cacheKey(item.Key),
			Value:      buf.Bytes(),
			Expiration: int32(ch.expireDuration.Seconds()),
		}
		if err := ch.client.Set(mItem); err != nil {
			return err
		}
	}

	return nil
}

func (ch *cacheHandler) GetMulti(ctx context.Context, keys []arbor.Key) ([]*rescache.Item, error) {
	ch.logf(ctx, "resmemcache.GetMulti: incoming len=%d", len(keys))

	resultList := make([]*rescache.Item, len(keys))

	cacheKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		cacheKeys = append(cacheKeys, ch.cacheKey(key))
	}
	itemMap, err := ch.client.GetMulti(cacheKeys)

	if err != nil {
		ch.logf(ctx, "resmemcache: error on memcache.GetMulti %s", err.Error())
	}

	hit, miss := 0, 0
	for idx, key := range keys {
		mItem, ok := itemMap[ch.cacheKey(key)]
		if !ok {
			resultList[idx] = nil
			miss++
			continue
		}
		buf := bytes.NewBuffer(mItem.Value)
		dec := gob.NewDecoder(buf)
		var ps arbor.PropertyList
		err = dec.Decode(&ps)
		if err != nil {
			resultList[idx] = nil
			ch.logf(ctx, "resmemcache.GetMulti: gob.Decode error key=%s err=%s", key.String(), err.Error())
			miss++
			continue
		}

		resultList[idx] = &rescache.Item{
			Key:          key,
			PropertyList: ps,
		}
		hit++
	}

	ch.logf(ctx, "resmemcache.GetMulti: hit=%d miss=%d", hit, miss)

	return resultList, nil
}

func (ch *cacheHandler) DeleteMulti(ctx context.Context, keys []arbor.Key) error {
	ch.logf(ctx, "resmemcache.DeleteMulti: incoming len=%d", len(keys))
	for _, key := range keys {
		err := ch.client.Delete(ch.cacheKey(key))
		if err != nil {
			ch.logf(ctx, "resmemcache: error on memcache.DeleteMulti %s", err.Error())
		}
	}

	return nil
}
