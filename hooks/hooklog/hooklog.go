// Package hooklog logs every hook event it observes. Connect a Logger
// to the pre and post signals of the methods under scrutiny and each
// delivery prints one numbered line.
package hooklog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.kotori.dev/arbor/signal"
)

// NewLogger returns a Logger writing through logf with the given line
// prefix.
func NewLogger(prefix string, logf func(ctx context.Context, format string, args ...any)) *Logger {
	return &Logger{Prefix: prefix, Logf: logf, counter: 1}
}

// Logger numbers and prints observed hook events. One Logger may watch
// any number of signals; the counter is shared across them.
type Logger struct {
	Prefix string
	Logf   func(ctx context.Context, format string, args ...any)

	m       sync.Mutex
	counter int
}

// Receiver returns the logging receiver. It never contributes a result
// and never fails, observed deliveries proceed unchanged.
func (l *Logger) Receiver() signal.Receiver {
	return func(ctx context.Context, ev *signal.Event) (any, error) {
		l.m.Lock()
		cnt := l.counter
		l.counter++
		l.m.Unlock()

		if ev.Result != nil {
			l.Logf(ctx, l.Prefix+"%s #%d, args=[%s], result=%T", ev.Name, cnt, argNames(ev), ev.Result)
		} else {
			l.Logf(ctx, l.Prefix+"%s #%d, args=[%s]", ev.Name, cnt, argNames(ev))
		}
		return nil, nil
	}
}

// Observe connects the logging receiver to each signal.
func (l *Logger) Observe(sigs ...*signal.Signal) {
	for _, sig := range sigs {
		sig.Connect(l.Receiver())
	}
}

func argNames(ev *signal.Event) string {
	names := make([]string, 0, len(ev.Args))
	for name := range ev.Args {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
