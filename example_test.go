package arbor_test

import (
	"context"
	"fmt"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/api"
	"go.kotori.dev/arbor/hooks/localcache"
	"go.kotori.dev/arbor/hooks/rescache"
	"go.kotori.dev/arbor/memdatastore"
	"go.kotori.dev/arbor/signal"
	"go.kotori.dev/arbor/spi"
)

var fileSchema = &arbor.Schema{
	Kind: "File",
	Properties: []arbor.PropertyDef{
		{Name: "Path", Unique: true},
		{Name: "Size"},
	},
}

func newFilesAPI(client arbor.Client) *api.ResourceAPI {
	root, err := api.New(client, api.Config{
		Components: []api.ComponentConfig{{
			Name: "v1",
			Resources: []api.ResourceConfig{{
				Name:   "files",
				Schema: fileSchema,
			}},
		}},
	})
	if err != nil {
		panic(err)
	}
	files, _ := root.Find("api.v1.files")
	return files
}

func Example() {
	ctx := context.Background()

	base, err := memdatastore.New(ctx)
	if err != nil {
		panic(err)
	}
	defer base.Close()

	// Entity reads go through an in-process cache.
	client := rescache.NewClient(base, localcache.New(), nil)

	root, err := api.New(client, api.Config{
		Components: []api.ComponentConfig{{
			Name: "v1",
			Resources: []api.ResourceConfig{{
				Name:   "files",
				Schema: fileSchema,
			}},
		}},
	})
	if err != nil {
		panic(err)
	}
	files, _ := root.Find("api.v1.files")

	res := files.NewResource()
	res.Set("Path", "/etc/motd")
	res.Set("Size", int64(42))
	uid, err := files.Insert(ctx, res)
	if err != nil {
		panic(err)
	}

	got, err := files.Get(ctx, uid)
	if err != nil {
		panic(err)
	}
	path, _ := got.Get("Path")
	fmt.Println(path)

	list, err := files.Query(ctx, map[string]any{"Size": int64(42)}, "", 0)
	if err != nil {
		panic(err)
	}
	fmt.Println(len(list))
	// Output:
	// /etc/motd
	// 1
}

func Example_hooks() {
	ctx := context.Background()

	client, err := memdatastore.New(ctx)
	if err != nil {
		panic(err)
	}
	defer client.Close()

	files := newFilesAPI(client)

	// Reject inserts without a Path before anything is written.
	insert, _ := files.Method("insert")
	insert.Pre().Connect(func(ctx context.Context, ev *signal.Event) (any, error) {
		res := ev.Args[spi.ArgResource].(*arbor.Resource)
		if _, ok := res.Get("Path"); !ok {
			return nil, fmt.Errorf("a file needs a path")
		}
		return nil, nil
	})

	_, err = files.Insert(ctx, files.NewResource())
	fmt.Println(err)
	// Output: a file needs a path
}

func Example_uniqueConstraint() {
	ctx := context.Background()

	client, err := memdatastore.New(ctx)
	if err != nil {
		panic(err)
	}
	defer client.Close()

	files := newFilesAPI(client)

	first := files.NewResource()
	first.Set("Path", "/var/log/syslog")
	if _, err := files.Insert(ctx, first); err != nil {
		panic(err)
	}

	second := files.NewResource()
	second.Set("Path", "/var/log/syslog")
	_, err = files.Insert(ctx, second)
	fmt.Println(arbor.IsUniqueConstraint(err))
	fmt.Println(err)
	// Output:
	// true
	// arbor: unique constraint violated on File [Path]
}
