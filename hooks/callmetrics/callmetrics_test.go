package callmetrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/api"
	"go.kotori.dev/arbor/internal/testutils"
	"go.kotori.dev/arbor/signal"
)

func buildTree(t *testing.T, client arbor.Client) *api.Root {
	t.Helper()
	root, err := api.New(client, api.Config{
		Components: []api.ComponentConfig{
			{Name: "v1", Resources: []api.ResourceConfig{
				{
					Name: "files",
					Schema: &arbor.Schema{
						Kind: "File",
						Properties: []arbor.PropertyDef{
							{Name: "file_name", Unique: true},
							{Name: "size"},
						},
					},
				},
				{
					Name: "notes",
					Schema: &arbor.Schema{
						Kind:       "Note",
						Properties: []arbor.PropertyDef{{Name: "body"}},
					},
					Methods: []string{"insert", "get"},
				},
			}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return root
}

func TestMetrics_CallTotals(t *testing.T) {
	ctx, client, cleanUp := testutils.SetupMemStore(t)
	defer cleanUp()

	root := buildTree(t, client)
	m := New(prometheus.NewRegistry())
	if v := m.Install(root); v != 7 {
		t.Fatalf("unexpected: %v", v)
	}

	files, _ := root.Find("api.v1.files")

	res := files.NewResource()
	res.Set("file_name", "a.txt")
	res.Set("size", int64(4))
	if _, err := files.Insert(ctx, res); err != nil {
		t.Fatal(err)
	}
	if v := testutil.ToFloat64(m.calls.WithLabelValues("api.v1.files.insert", "ok")); v != 1 {
		t.Errorf("unexpected: %v", v)
	}

	if _, err := files.Get(ctx, "nope"); err != arbor.ErrNoSuchEntity {
		t.Fatalf("unexpected: %v", err)
	}
	if v := testutil.ToFloat64(m.calls.WithLabelValues("api.v1.files.get", "error")); v != 1 {
		t.Errorf("unexpected: %v", v)
	}

	if v := testutil.CollectAndCount(m.duration); v != 2 {
		t.Errorf("unexpected: %v", v)
	}
}

func TestMetrics_PromotionCounter(t *testing.T) {
	ctx, client, cleanUp := testutils.SetupMemStore(t)
	defer cleanUp()

	root := buildTree(t, client)
	m := New(prometheus.NewRegistry())
	m.Install(root)

	files, _ := root.Find("api.v1.files")
	notes, _ := root.Find("api.v1.notes")

	// unique lock forces a transaction
	res := files.NewResource()
	res.Set("file_name", "a.txt")
	if _, err := files.Insert(ctx, res); err != nil {
		t.Fatal(err)
	}
	if v := testutil.ToFloat64(m.promotions.WithLabelValues("api.v1.files.insert")); v != 1 {
		t.Errorf("unexpected: %v", v)
	}

	// no locks, no hooks: the observer alone keeps the call direct
	note := notes.NewResource()
	note.Set("body", "hello")
	if _, err := notes.Insert(ctx, note); err != nil {
		t.Fatal(err)
	}
	if v := testutil.ToFloat64(m.promotions.WithLabelValues("api.v1.notes.insert")); v != 0 {
		t.Errorf("unexpected: %v", v)
	}

	insert, ok := notes.Method("insert")
	if !ok {
		t.Fatal("insert not configured")
	}
	insert.Pre().Connect(func(ctx context.Context, ev *signal.Event) (any, error) {
		return nil, nil
	})

	note = notes.NewResource()
	note.Set("body", "promoted now")
	if _, err := notes.Insert(ctx, note); err != nil {
		t.Fatal(err)
	}
	if v := testutil.ToFloat64(m.promotions.WithLabelValues("api.v1.notes.insert")); v != 1 {
		t.Errorf("unexpected: %v", v)
	}
	if v := testutil.ToFloat64(m.calls.WithLabelValues("api.v1.notes.insert", "ok")); v != 2 {
		t.Errorf("unexpected: %v", v)
	}
}

func TestMetrics_UniqueConflicts(t *testing.T) {
	ctx, client, cleanUp := testutils.SetupMemStore(t)
	defer cleanUp()

	root := buildTree(t, client)
	m := New(prometheus.NewRegistry())
	m.Install(root)

	files, _ := root.Find("api.v1.files")

	res := files.NewResource()
	res.Set("file_name", "a.txt")
	if _, err := files.Insert(ctx, res); err != nil {
		t.Fatal(err)
	}

	dup := files.NewResource()
	dup.Set("file_name", "a.txt")
	if _, err := files.Insert(ctx, dup); !arbor.IsUniqueConstraint(err) {
		t.Fatalf("unexpected: %v", err)
	}

	if v := testutil.ToFloat64(m.conflicts.WithLabelValues("api.v1.files.insert")); v != 1 {
		t.Errorf("unexpected: %v", v)
	}
	if v := testutil.ToFloat64(m.calls.WithLabelValues("api.v1.files.insert", "error")); v != 1 {
		t.Errorf("unexpected: %v", v)
	}
}
