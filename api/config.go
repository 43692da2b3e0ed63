package api

import (
	"fmt"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/search"
	"go.kotori.dev/arbor/spi"
)

// Config declares an API tree.
type Config struct {
	// Name is the root namespace segment. Empty means "api".
	Name       string
	Components []ComponentConfig
}

// ComponentConfig declares one component and its resource APIs.
type ComponentConfig struct {
	Name      string
	Resources []ResourceConfig
}

// ResourceConfig declares one resource API.
type ResourceConfig struct {
	// Name is the path segment, conventionally the plural resource name.
	Name   string
	Schema *arbor.Schema
	// Methods lists the method codes to build. Nil builds insert, get,
	// update, delete and query, plus search when an Index is set.
	Methods []string
	// Index backs the search method.
	Index search.Index
	// Children declares nested resource APIs.
	Children []ResourceConfig
}

// New builds the tree cfg declares on top of client.
func New(client arbor.Client, cfg Config) (*Root, error) {
	name := cfg.Name
	if name == "" {
		name = "api"
	}
	root := &Root{name: name}

	seen := map[string]bool{}
	for _, cc := range cfg.Components {
		if cc.Name == "" {
			return nil, fmt.Errorf("arbor/api: component under %s needs a name", name)
		}
		if seen[cc.Name] {
			return nil, fmt.Errorf("arbor/api: duplicate component %s under %s", cc.Name, name)
		}
		seen[cc.Name] = true

		comp := &Component{name: cc.Name, path: name + "." + cc.Name}
		resources, err := buildResources(client, comp.path, cc.Resources)
		if err != nil {
			return nil, err
		}
		comp.resources = resources
		root.components = append(root.components, comp)
	}
	return root, nil
}

func buildResources(client arbor.Client, parentPath string, rcs []ResourceConfig) ([]*ResourceAPI, error) {
	seen := map[string]bool{}
	apis := make([]*ResourceAPI, 0, len(rcs))
	for _, rc := range rcs {
		if rc.Name == "" {
			return nil, fmt.Errorf("arbor/api: resource under %s needs a name", parentPath)
		}
		if seen[rc.Name] {
			return nil, fmt.Errorf("arbor/api: duplicate resource %s under %s", rc.Name, parentPath)
		}
		seen[rc.Name] = true

		api, err := buildResource(client, parentPath, rc)
		if err != nil {
			return nil, err
		}
		apis = append(apis, api)
	}
	return apis, nil
}

func buildResource(client arbor.Client, parentPath string, rc ResourceConfig) (*ResourceAPI, error) {
	if rc.Schema == nil {
		return nil, fmt.Errorf("arbor/api: resource %s.%s needs a schema", parentPath, rc.Name)
	}

	api := &ResourceAPI{
		name:    rc.Name,
		path:    parentPath + "." + rc.Name,
		schema:  rc.Schema,
		methods: map[string]*spi.Method{},
	}

	codes := rc.Methods
	if codes == nil {
		codes = []string{"insert", "get", "update", "delete", "query"}
		if rc.Index != nil {
			codes = append(codes, "search")
		}
	}
	for _, code := range codes {
		if _, ok := api.methods[code]; ok {
			return nil, fmt.Errorf("arbor/api: duplicate method %s on %s", code, api.path)
		}

		var m *spi.Method
		switch code {
		case "insert":
			m = spi.NewInsertMethod(client, rc.Schema, api.path, api)
		case "get":
			m = spi.NewGetMethod(client, rc.Schema, api.path, api)
		case "update":
			m = spi.NewUpdateMethod(client, rc.Schema, api.path, api)
		case "delete":
			m = spi.NewDeleteMethod(client, rc.Schema, api.path, api)
		case "query":
			m = spi.NewQueryMethod(client, rc.Schema, api.path, api)
		case "search":
			if rc.Index == nil {
				return nil, fmt.Errorf("arbor/api: search on %s needs an index", api.path)
			}
			m = spi.NewSearchMethod(client, rc.Schema, api.path, api, rc.Index)
		default:
			return nil, fmt.Errorf("arbor/api: unknown method %s on %s", code, api.path)
		}
		api.methods[code] = m
	}

	children, err := buildResources(client, api.path, rc.Children)
	if err != nil {
		return nil, err
	}
	api.children = children
	return api, nil
}
