package hooklog

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"go.kotori.dev/arbor/signal"
)

func TestLogger_Observe(t *testing.T) {
	ctx := context.Background()

	var logs []string
	logf := func(ctx context.Context, format string, args ...any) {
		t.Logf(format, args...)
		logs = append(logs, fmt.Sprintf(format, args...))
	}

	pre := signal.New("pre_insert")
	post := signal.New("post_insert")

	l := NewLogger("log: ", logf)
	l.Observe(pre, post)

	args := map[string]any{"resource": "r", "uid": "u"}
	if _, err := pre.Send(ctx, &signal.Event{Sender: t, Args: args}); err != nil {
		t.Fatal(err)
	}
	if _, err := post.Send(ctx, &signal.Event{Sender: t, Args: args, Result: "0123"}); err != nil {
		t.Fatal(err)
	}

	expected := heredoc.Doc(`
		log: pre_insert #1, args=[resource, uid]
		log: post_insert #2, args=[resource, uid], result=string
	`)

	if v := strings.Join(logs, "\n") + "\n"; v != expected {
		t.Errorf("unexpected: %v", v)
	}
}

func TestLogger_NeverContributesResult(t *testing.T) {
	ctx := context.Background()

	logf := func(ctx context.Context, format string, args ...any) {}
	sig := signal.New("insert")

	l := NewLogger("", logf)
	l.Observe(sig)
	sig.Connect(func(ctx context.Context, ev *signal.Event) (any, error) {
		return "op-result", nil
	})

	results, err := sig.Send(ctx, &signal.Event{Sender: t, Args: nil})
	if err != nil {
		t.Fatal(err)
	}
	if v := signal.First(results); v != "op-result" {
		t.Errorf("unexpected: %v", v)
	}
}
