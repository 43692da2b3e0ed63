// Package rediscache stores entities in Redis through
// github.com/gomodule/redigo. It implements rescache.Storage, so a
// fleet of processes can share one cache tier through
// rescache.NewClient. Values are gob encoded PropertyLists written
// with a millisecond TTL.
package rediscache

import (
	"bytes"
	"context"
	"encoding/gob"
	"time"

	"github.com/gomodule/redigo/redis"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/hooks/rescache"
)

var _ rescache.Storage = &cacheHandler{}

const defaultExpiration = 15 * time.Minute

// New builds a Storage over conn.
func New(conn redis.Conn, opts ...CacheOption) rescache.Storage {
	ch := &cacheHandler{
		conn:           conn,
		expireDuration: defaultExpiration,
	}

	for _, opt := range opts {
		opt.Apply(ch)
	}

	if ch.logf == nil {
		ch.logf = func(ctx context.Context, format string, args ...any) {}
	}
	if ch.cacheKey == nil {
		ch.cacheKey = func(key arbor.Key) string {
			return "arbor:rediscache:" + key.Encode()
		}
	}

	return ch
}

type cacheHandler struct {
	conn           redis.Conn
	expireDuration time.Duration
	logf           func(ctx context.Context, format string, args ...any)
	cacheKey       func(key arbor.Key) string
}

type CacheOption interface {
	Apply(*cacheHandler)
}

func (ch *cacheHandler) SetMulti(ctx context.Context, items []*rescache.Item) error {

	ch.logf(ctx, "rediscache.SetMulti: incoming len=%d", len(items))

	err := ch.conn.Send("MULTI")
	if err != nil {
		ch.logf(ctx, `rediscache.SetMulti: conn.Send("MULTI") err=%s`, err.Error())
		return err
	}

	cnt := 0
	for _, item := range items {
		if item.Key.Incomplete() {
			panic("incomplete key incoming")
		}
		var buf bytes.Buffer
		enc := gob.NewEncoder(&buf)
		err := enc.Encode(item.PropertyList)
		if err != nil {
			ch.logf(ctx, "rediscache.SetMulti: gob.Encode error key=%s err=%s", item.Key.String(), err.Error())
			continue
		}
		cacheKey := ch.cacheKey(item.Key)
		cacheValue := buf.Bytes()

		if ch.expireDuration <= 0 {
			err = ch.conn.Send("SET", cacheKey, cacheValue)
			if err != nil {
				ch.logf(ctx, `rediscache.SetMulti: conn.Send("SET", "%s", ...) err=%s`, cacheKey, err.Error())
				return err
			}
		} else {
			err = ch.conn.Send("SET", cacheKey, cacheValue, "PX", int64(ch.expireDuration/time.Millisecond))
			if err != nil {
				ch.logf(ctx, `rediscache.SetMulti: conn.Send("SET", "%s", ..., "PX", %d) err=%s`, cacheKey, ch.expireDuration/time.Millisecond, err.Error())
				return err
			}
		}
		cnt++
	}

	ch.logf(ctx, "rediscache.SetMulti: len=%d", cnt)

	_, err = ch.conn.Do("EXEC")
	if err != nil {
		ch.logf(ctx, `rediscache.SetMulti: conn.Do("EXEC") err=%s`, err.Error())
		return err
	}

	return nil
}

func (ch *cacheHandler) GetMulti(ctx context.Context, keys []arbor.Key) ([]*rescache.Item, error) {

	ch.logf(ctx, "rediscache.GetMulti: incoming len=%d", len(keys))

	err := ch.conn.Send("MULTI")
	if err != nil {
		ch.logf(ctx, `rediscache.GetMulti: conn.Send("MULTI") err=%s`, err.Error())
		return nil, err
	}

	for _, key := range keys {
		cacheKey := ch.cacheKey(key)
		err := ch.conn.Send("GET", cacheKey)
		if err != nil {
			ch.logf(ctx, `rediscache.GetMulti: conn.Send("GET", "%s") err=%s`, cacheKey, err.Error())
			return nil, err
		}
	}

	resp, err := ch.conn.Do("EXEC")
	if err != nil {
		ch.logf(ctx, `rediscache.GetMulti: conn.Do("EXEC") err=%s`, err.Error())
		return nil, err
	}
	bs, err := redis.ByteSlices(resp, nil)
	if err != nil {
		ch.logf(ctx, `rediscache.GetMulti: redis.ByteSlices err=%s`, err.Error())
		return nil, err
	}

	resultList := make([]*rescache.Item, len(keys))
	hit := 0
	miss := 0
	for idx, b := range bs {
		if len(b) == 0 {
			miss++
			continue
		}
		buf := bytes.NewBuffer(b)
		dec := gob.NewDecoder(buf)
		var ps arbor.PropertyList
		err = dec.Decode(&ps)
		if err != nil {
			ch.logf(ctx, "rediscache.GetMulti: gob.Decode error key=%s err=%s", keys[idx].String(), err.Error())
			miss++
			continue
		}

		resultList[idx] = &rescache.Item{
			Key:          keys[idx],
			PropertyList: ps,
		}
		hit++
	}

	ch.logf(ctx, "rediscache.GetMulti: hit=%d miss=%d", hit, miss)

	return resultList, nil
}

func (ch *cacheHandler) DeleteMulti(ctx context.Context, keys []arbor.Key) error {
	ch.logf(ctx, "rediscache.DeleteMulti: incoming len=%d", len(keys))

	err := ch.conn.Send("MULTI")
	if err != nil {
		ch.logf(ctx, `rediscache.DeleteMulti: conn.Send("MULTI") err=%s`, err.Error())
		return err
	}

	for _, key := range keys {
		cacheKey := ch.cacheKey(key)

		err = ch.conn.Send("DEL", cacheKey)
		if err != nil {
			ch.logf(ctx, `rediscache.DeleteMulti: conn.Send("DEL", "%s") err=%s`, cacheKey, err.Error())
			return err
		}
	}

	_, err = ch.conn.Do("EXEC")
	if err != nil {
		ch.logf(ctx, `rediscache.DeleteMulti: conn.Do("EXEC") err=%s`, err.Error())
		return err
	}

	return nil
}
