// Package signal provides named observer registries. A Signal carries
// one event stream; receivers connect to it and are invoked on every
// Send. Method hooks and operation actions are built on top of this.
package signal

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Event is the payload delivered to every receiver of one Send.
type Event struct {
	// Name is the signal name. Send fills it in when left empty.
	Name string
	// Sender identifies the object emitting the event.
	Sender any
	// Args carries the call arguments by name.
	Args map[string]any
	// Result holds the operation outcome on post events, nil before.
	Result any
}

// Receiver observes one signal. The returned value lands in the result
// slice Send hands back; return an error to abort the delivery.
type Receiver func(ctx context.Context, ev *Event) (any, error)

type registration struct {
	id    int
	async bool
	fn    Receiver
}

// Signal is a named receiver registry. Connect and Disconnect may be
// called from any goroutine, including while a Send is in flight.
type Signal struct {
	name string

	mu        sync.RWMutex
	nextID    int
	receivers []registration
}

// New returns an empty signal with the given name.
func New(name string) *Signal {
	return &Signal{name: name}
}

// Name returns the signal name.
func (s *Signal) Name() string {
	return s.name
}

// Connect registers a synchronous receiver. Synchronous receivers run
// in connect order, first connected first applied. The returned id
// disconnects it.
func (s *Signal) Connect(fn Receiver) int {
	return s.connect(fn, false)
}

// ConnectAsync registers a receiver that runs concurrently with the
// rest of the delivery. Send still gathers it before returning.
func (s *Signal) ConnectAsync(fn Receiver) int {
	return s.connect(fn, true)
}

func (s *Signal) connect(fn Receiver, async bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.receivers = append(s.receivers, registration{id: s.nextID, async: async, fn: fn})
	return s.nextID
}

// Disconnect removes the receiver registered under id. It reports
// whether a receiver was removed.
func (s *Signal) Disconnect(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, rcv := range s.receivers {
		if rcv.id == id {
			s.receivers = append(s.receivers[:idx], s.receivers[idx+1:]...)
			return true
		}
	}
	return false
}

// HasReceivers reports whether at least one receiver is connected.
func (s *Signal) HasReceivers() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.receivers) != 0
}

// Send delivers ev to every connected receiver and returns their
// results in connect order. The first receiver error aborts the
// remaining delivery and propagates to the caller. Asynchronous
// receivers run concurrently but are gathered before Send returns.
func (s *Signal) Send(ctx context.Context, ev *Event) ([]any, error) {
	s.mu.RLock()
	receivers := make([]registration, len(s.receivers))
	copy(receivers, s.receivers)
	s.mu.RUnlock()

	if len(receivers) == 0 {
		return nil, nil
	}
	if ev.Name == "" {
		ev.Name = s.name
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]any, len(receivers))
	g, gctx := errgroup.WithContext(ctx)
	for idx, rcv := range receivers {
		if rcv.async {
			g.Go(func() error {
				v, err := rcv.fn(gctx, ev)
				if err != nil {
					return err
				}
				results[idx] = v
				return nil
			})
			continue
		}

		v, err := rcv.fn(ctx, ev)
		if err != nil {
			cancel()
			_ = g.Wait()
			return nil, err
		}
		results[idx] = v
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// First returns the first non-nil value in results, or nil when every
// receiver stayed silent.
func First(results []any) any {
	for _, v := range results {
		if v != nil {
			return v
		}
	}
	return nil
}
