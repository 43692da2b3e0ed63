package localcache

import (
	"context"
	"time"
)

func WithLogger(logf func(ctx context.Context, format string, args ...any)) CacheOption {
	return &withLogger{logf}
}

type withLogger struct {
	logf func(ctx context.Context, format string, args ...any)
}

func (w *withLogger) Apply(c *Cache) {
	c.logf = w.logf
}

func WithExpireDuration(d time.Duration) CacheOption {
	return &withExpireDuration{d}
}

type withExpireDuration struct{ d time.Duration }

func (w *withExpireDuration) Apply(c *Cache) {
	c.expireDuration = w.d
}
