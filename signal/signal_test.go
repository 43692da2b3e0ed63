package signal

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
)

func TestSignal_SendInConnectOrder(t *testing.T) {
	ctx := context.Background()
	sig := New("pre_insert")

	var order []string
	sig.Connect(func(ctx context.Context, ev *Event) (any, error) {
		order = append(order, "a")
		return nil, nil
	})
	sig.Connect(func(ctx context.Context, ev *Event) (any, error) {
		order = append(order, "b")
		return "B", nil
	})
	sig.Connect(func(ctx context.Context, ev *Event) (any, error) {
		order = append(order, "c")
		return "C", nil
	})

	results, err := sig.Send(ctx, &Event{Sender: t})
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(order, []string{"a", "b", "c"}) {
		t.Errorf("unexpected: %v", order)
	}
	if !reflect.DeepEqual(results, []any{nil, "B", "C"}) {
		t.Errorf("unexpected: %v", results)
	}
	if v := First(results); v != "B" {
		t.Errorf("unexpected: %v", v)
	}
}

func TestSignal_FillsEventName(t *testing.T) {
	ctx := context.Background()
	sig := New("post_update")

	var seen string
	sig.Connect(func(ctx context.Context, ev *Event) (any, error) {
		seen = ev.Name
		return nil, nil
	})

	if _, err := sig.Send(ctx, &Event{}); err != nil {
		t.Fatal(err)
	}
	if seen != "post_update" {
		t.Errorf("unexpected: %v", seen)
	}
}

func TestSignal_FirstErrorAborts(t *testing.T) {
	ctx := context.Background()
	sig := New("pre_insert")

	wantErr := errors.New("denied")
	var ran []string
	sig.Connect(func(ctx context.Context, ev *Event) (any, error) {
		ran = append(ran, "a")
		return nil, nil
	})
	sig.Connect(func(ctx context.Context, ev *Event) (any, error) {
		ran = append(ran, "b")
		return nil, wantErr
	})
	sig.Connect(func(ctx context.Context, ev *Event) (any, error) {
		ran = append(ran, "c")
		return nil, nil
	})

	_, err := sig.Send(ctx, &Event{})
	if err != wantErr {
		t.Errorf("unexpected: %v", err)
	}
	if !reflect.DeepEqual(ran, []string{"a", "b"}) {
		t.Errorf("unexpected: %v", ran)
	}
}

func TestSignal_Disconnect(t *testing.T) {
	ctx := context.Background()
	sig := New("pre_get")

	id := sig.Connect(func(ctx context.Context, ev *Event) (any, error) {
		return "hit", nil
	})
	if !sig.HasReceivers() {
		t.Fatal("unexpected: no receivers")
	}

	if ok := sig.Disconnect(id); !ok {
		t.Errorf("unexpected: %v", ok)
	}
	if sig.HasReceivers() {
		t.Errorf("unexpected: receiver left")
	}
	if ok := sig.Disconnect(id); ok {
		t.Errorf("unexpected: %v", ok)
	}

	results, err := sig.Send(ctx, &Event{})
	if err != nil {
		t.Fatal(err)
	}
	if results != nil {
		t.Errorf("unexpected: %v", results)
	}
}

func TestSignal_ConnectAsync(t *testing.T) {
	ctx := context.Background()
	sig := New("post_insert")

	var count int32
	sig.ConnectAsync(func(ctx context.Context, ev *Event) (any, error) {
		atomic.AddInt32(&count, 1)
		return "x", nil
	})
	sig.ConnectAsync(func(ctx context.Context, ev *Event) (any, error) {
		atomic.AddInt32(&count, 1)
		return "y", nil
	})
	sig.Connect(func(ctx context.Context, ev *Event) (any, error) {
		return "z", nil
	})

	results, err := sig.Send(ctx, &Event{})
	if err != nil {
		t.Fatal(err)
	}

	// gathered before Send returns
	if v := atomic.LoadInt32(&count); v != 2 {
		t.Errorf("unexpected: %v", v)
	}
	if !reflect.DeepEqual(results, []any{"x", "y", "z"}) {
		t.Errorf("unexpected: %v", results)
	}
}

func TestSignal_AsyncErrorPropagates(t *testing.T) {
	ctx := context.Background()
	sig := New("post_insert")

	wantErr := errors.New("index down")
	sig.ConnectAsync(func(ctx context.Context, ev *Event) (any, error) {
		return nil, wantErr
	})

	if _, err := sig.Send(ctx, &Event{}); err != wantErr {
		t.Errorf("unexpected: %v", err)
	}
}

func TestFirst(t *testing.T) {
	if v := First(nil); v != nil {
		t.Errorf("unexpected: %v", v)
	}
	if v := First([]any{nil, nil}); v != nil {
		t.Errorf("unexpected: %v", v)
	}
	if v := First([]any{nil, 42, "later"}); v != 42 {
		t.Errorf("unexpected: %v", v)
	}
}
