package resmemcache

import (
	"context"
	"time"

	"go.kotori.dev/arbor"
)

func WithLogger(logf func(ctx context.Context, format string, args ...any)) CacheOption {
	return &withLogger{logf}
}

type withLogger struct {
	logf func(ctx context.Context, format string, args ...any)
}

func (w *withLogger) Apply(ch *cacheHandler) {
	ch.logf = w.logf
}

func WithExpireDuration(d time.Duration) CacheOption {
	return &withExpireDuration{d}
}

type withExpireDuration struct{ d time.Duration }

func (w *withExpireDuration) Apply(ch *cacheHandler) {
	ch.expireDuration = w.d
}

func WithCacheKey(f func(key arbor.Key) string) CacheOption {
	return &withCacheKey{f}
}

type withCacheKey struct {
	cacheKey func(key arbor.Key) string
}

func (w *withCacheKey) Apply(ch *cacheHandler) {
	ch.cacheKey = w.cacheKey
}
