package api

import (
	"context"
	"reflect"
	"testing"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/internal/testutils"
	"go.kotori.dev/arbor/search"
	"go.kotori.dev/arbor/signal"
)

func fileSchema() *arbor.Schema {
	return &arbor.Schema{
		Kind: "File",
		Properties: []arbor.PropertyDef{
			{Name: "file_name", Unique: true},
			{Name: "content", NoIndex: true},
			{Name: "folder"},
		},
	}
}

func versionSchema() *arbor.Schema {
	return &arbor.Schema{
		Kind: "FileVersion",
		Properties: []arbor.PropertyDef{
			{Name: "file_uid"},
			{Name: "number"},
		},
	}
}

func treeConfig() Config {
	return Config{
		Components: []ComponentConfig{
			{
				Name: "v1",
				Resources: []ResourceConfig{
					{
						Name:   "files",
						Schema: fileSchema(),
						Children: []ResourceConfig{
							{
								Name:    "versions",
								Schema:  versionSchema(),
								Methods: []string{"insert", "get", "query"},
							},
						},
					},
				},
			},
		},
	}
}

func TestNew_Lifecycle(t *testing.T) {
	ctx, client, cleanUp := testutils.SetupMemStore(t)
	defer cleanUp()

	root, err := New(client, treeConfig())
	if err != nil {
		t.Fatal(err)
	}

	files, ok := root.Find("api.v1.files")
	if !ok {
		t.Fatal("api.v1.files not found")
	}

	res := files.NewResource()
	res.Set("file_name", "tree.txt")
	res.Set("folder", "docs")
	uid, err := files.Insert(ctx, res)
	if err != nil {
		t.Fatal(err)
	}
	if uid == "" {
		t.Fatalf("unexpected: %v", uid)
	}

	loaded, err := files.Get(ctx, uid)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := loaded.Get("file_name"); v != "tree.txt" {
		t.Errorf("unexpected: %v", v)
	}

	loaded.Set("folder", "archive")
	if _, err := files.Update(ctx, loaded); err != nil {
		t.Fatal(err)
	}

	list, err := files.Query(ctx, map[string]any{"folder": "archive"}, "file_name", 0)
	if err != nil {
		t.Fatal(err)
	}
	if v := len(list); v != 1 {
		t.Fatalf("unexpected: %v", v)
	}
	if v := list[0].UID(); v != uid {
		t.Errorf("unexpected: %v", v)
	}

	if _, err := files.Delete(ctx, uid); err != nil {
		t.Fatal(err)
	}
	if _, err := files.Get(ctx, uid); err != arbor.ErrNoSuchEntity {
		t.Fatalf("unexpected: %v", err)
	}
}

func TestNew_SenderIsOwningNode(t *testing.T) {
	ctx, client, cleanUp := testutils.SetupMemStore(t)
	defer cleanUp()

	root, err := New(client, treeConfig())
	if err != nil {
		t.Fatal(err)
	}
	files, _ := root.Find("api.v1.files")

	insert, ok := files.Method("insert")
	if !ok {
		t.Fatal("insert method not built")
	}
	if v := insert.ActionName(); v != "api.v1.files.insert" {
		t.Errorf("unexpected: %v", v)
	}

	var sender any
	insert.Pre().Connect(func(ctx context.Context, ev *signal.Event) (any, error) {
		sender = ev.Sender
		return nil, nil
	})

	res := files.NewResource()
	res.Set("file_name", "sender.txt")
	if _, err := files.Insert(ctx, res); err != nil {
		t.Fatal(err)
	}
	if sender != files {
		t.Errorf("unexpected: %v", sender)
	}
}

func TestRoot_HookMap(t *testing.T) {
	_, client, cleanUp := testutils.SetupMemStore(t)
	defer cleanUp()

	cfg := treeConfig()
	cfg.Components[0].Resources[0].Methods = []string{"insert", "get"}
	root, err := New(client, cfg)
	if err != nil {
		t.Fatal(err)
	}

	want := &NodeMap{
		Children: map[string]*NodeMap{
			"v1": {
				Children: map[string]*NodeMap{
					"files": {
						Methods: map[string]MethodHooks{
							"insert": {Pre: "pre_insert", Post: "post_insert", Action: "api.v1.files.insert"},
							"get":    {Pre: "pre_get", Post: "post_get", Action: "api.v1.files.get"},
						},
						Children: map[string]*NodeMap{
							"versions": {
								Methods: map[string]MethodHooks{
									"insert": {Pre: "pre_insert", Post: "post_insert", Action: "api.v1.files.versions.insert"},
									"get":    {Pre: "pre_get", Post: "post_get", Action: "api.v1.files.versions.get"},
									"query":  {Pre: "pre_query", Post: "post_query", Action: "api.v1.files.versions.query"},
								},
							},
						},
					},
				},
			},
		},
	}

	if v := root.HookMap(); !reflect.DeepEqual(v, want) {
		t.Errorf("unexpected: %#v", v)
	}
}

func TestRoot_Walk(t *testing.T) {
	_, client, cleanUp := testutils.SetupMemStore(t)
	defer cleanUp()

	cfg := treeConfig()
	cfg.Components[0].Resources = append(cfg.Components[0].Resources, ResourceConfig{
		Name:    "folders",
		Schema:  &arbor.Schema{Kind: "Folder", Properties: []arbor.PropertyDef{{Name: "name"}}},
		Methods: []string{"get"},
	})
	root, err := New(client, cfg)
	if err != nil {
		t.Fatal(err)
	}

	var paths []string
	root.Walk(func(api *ResourceAPI) {
		paths = append(paths, api.Path())
	})

	want := []string{"api.v1.files", "api.v1.files.versions", "api.v1.folders"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("unexpected: %v", paths)
	}
}

func TestNew_SearchMethod(t *testing.T) {
	ctx, client, cleanUp := testutils.SetupMemStore(t)
	defer cleanUp()

	idx := search.NewMemory()
	if err := idx.Put(ctx, search.Document{
		Kind:   "File",
		UID:    "u1",
		Fields: map[string]string{"file_name": "yearly report"},
	}); err != nil {
		t.Fatal(err)
	}

	root, err := New(client, Config{
		Components: []ComponentConfig{
			{
				Name: "v1",
				Resources: []ResourceConfig{
					{Name: "files", Schema: fileSchema(), Index: idx},
				},
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	files, _ := root.Find("api.v1.files")

	docs, err := files.Search(ctx, "report")
	if err != nil {
		t.Fatal(err)
	}
	if v := len(docs); v != 1 {
		t.Fatalf("unexpected: %v", v)
	}
	if v := docs[0].UID; v != "u1" {
		t.Errorf("unexpected: %v", v)
	}
}

func TestNew_ConfigErrors(t *testing.T) {
	_, client, cleanUp := testutils.SetupMemStore(t)
	defer cleanUp()

	for name, cfg := range map[string]Config{
		"unnamed component": {
			Components: []ComponentConfig{{Name: ""}},
		},
		"duplicate component": {
			Components: []ComponentConfig{{Name: "v1"}, {Name: "v1"}},
		},
		"missing schema": {
			Components: []ComponentConfig{
				{Name: "v1", Resources: []ResourceConfig{{Name: "files"}}},
			},
		},
		"duplicate resource": {
			Components: []ComponentConfig{
				{Name: "v1", Resources: []ResourceConfig{
					{Name: "files", Schema: fileSchema()},
					{Name: "files", Schema: fileSchema()},
				}},
			},
		},
		"unknown method": {
			Components: []ComponentConfig{
				{Name: "v1", Resources: []ResourceConfig{
					{Name: "files", Schema: fileSchema(), Methods: []string{"upsert"}},
				}},
			},
		},
		"search without index": {
			Components: []ComponentConfig{
				{Name: "v1", Resources: []ResourceConfig{
					{Name: "files", Schema: fileSchema(), Methods: []string{"search"}},
				}},
			},
		},
	} {
		if _, err := New(client, cfg); err == nil {
			t.Errorf("%s: error expected", name)
		}
	}
}

func TestResourceAPI_MethodNotConfigured(t *testing.T) {
	ctx, client, cleanUp := testutils.SetupMemStore(t)
	defer cleanUp()

	root, err := New(client, Config{
		Components: []ComponentConfig{
			{Name: "v1", Resources: []ResourceConfig{
				{Name: "files", Schema: fileSchema(), Methods: []string{"get"}},
			}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	files, _ := root.Find("api.v1.files")

	if _, err := files.Insert(ctx, files.NewResource()); err == nil {
		t.Fatal("error expected")
	}
	if _, err := files.Search(ctx, "anything"); err == nil {
		t.Fatal("error expected")
	}
}
