// Package api builds resource API trees. A tree is declared once as a
// Config, built at process start, and stays structurally immutable
// afterwards; extension happens by connecting receivers to the built
// methods' signals, never by mutating the tree. Every method emits with
// its owning ResourceAPI node as sender, so one subscriber per node
// observes all of that node's hooks.
package api

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/search"
	"go.kotori.dev/arbor/spi"
)

// Root is the top level node of a built tree.
type Root struct {
	name       string
	components []*Component
}

// Name returns the root namespace segment.
func (r *Root) Name() string { return r.name }

// Components returns the child components in declaration order.
func (r *Root) Components() []*Component { return r.components }

// Component returns the named child component.
func (r *Root) Component(name string) (*Component, bool) {
	for _, c := range r.components {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

// Find resolves a dotted node path, "api.v1.files", to a resource API.
func (r *Root) Find(path string) (*ResourceAPI, bool) {
	segs := strings.Split(path, ".")
	if len(segs) < 3 || segs[0] != r.name {
		return nil, false
	}
	c, ok := r.Component(segs[1])
	if !ok {
		return nil, false
	}

	api, ok := c.Resource(segs[2])
	if !ok {
		return nil, false
	}
	for _, seg := range segs[3:] {
		api, ok = api.Child(seg)
		if !ok {
			return nil, false
		}
	}
	return api, true
}

// Walk visits every resource API in the tree, parents before children.
func (r *Root) Walk(fn func(api *ResourceAPI)) {
	for _, c := range r.components {
		for _, api := range c.resources {
			walk(api, fn)
		}
	}
}

func walk(api *ResourceAPI, fn func(api *ResourceAPI)) {
	fn(api)
	for _, c := range api.children {
		walk(c, fn)
	}
}

// MethodHooks lists the signal names of one built method.
type MethodHooks struct {
	Pre    string
	Post   string
	Action string
}

// NodeMap describes one node structurally: its methods' hook names and
// its children. Tooling uses it to discover every hook in a tree
// without holding the nodes themselves.
type NodeMap struct {
	Methods  map[string]MethodHooks
	Children map[string]*NodeMap
}

// HookMap returns the structural map of the whole tree.
func (r *Root) HookMap() *NodeMap {
	root := &NodeMap{Children: map[string]*NodeMap{}}
	for _, c := range r.components {
		cm := &NodeMap{Children: map[string]*NodeMap{}}
		for _, api := range c.resources {
			cm.Children[api.name] = hookMap(api)
		}
		root.Children[c.name] = cm
	}
	return root
}

func hookMap(api *ResourceAPI) *NodeMap {
	nm := &NodeMap{Methods: map[string]MethodHooks{}}
	for code, m := range api.methods {
		nm.Methods[code] = MethodHooks{
			Pre:    m.PreHookName(),
			Post:   m.PostHookName(),
			Action: m.ActionName(),
		}
	}
	if len(api.children) != 0 {
		nm.Children = map[string]*NodeMap{}
		for _, c := range api.children {
			nm.Children[c.name] = hookMap(c)
		}
	}
	return nm
}

// Component groups resource APIs under one namespace segment.
type Component struct {
	name      string
	path      string
	resources []*ResourceAPI
}

// Name returns the component's path segment.
func (c *Component) Name() string { return c.name }

// Resources returns the component's resource APIs in declaration order.
func (c *Component) Resources() []*ResourceAPI { return c.resources }

// Resource returns the named resource API.
func (c *Component) Resource(name string) (*ResourceAPI, bool) {
	for _, api := range c.resources {
		if api.name == name {
			return api, true
		}
	}
	return nil, false
}

// ResourceAPI owns the methods of one resource type and any nested
// child APIs.
type ResourceAPI struct {
	name     string
	path     string
	schema   *arbor.Schema
	methods  map[string]*spi.Method
	children []*ResourceAPI
}

// Name returns the node's path segment.
func (a *ResourceAPI) Name() string { return a.name }

// Path returns the fully qualified node path, "api.v1.files".
func (a *ResourceAPI) Path() string { return a.path }

// Schema returns the resource declaration this API serves.
func (a *ResourceAPI) Schema() *arbor.Schema { return a.schema }

// Children returns the nested resource APIs in declaration order.
func (a *ResourceAPI) Children() []*ResourceAPI { return a.children }

// Child returns the named nested resource API.
func (a *ResourceAPI) Child(name string) (*ResourceAPI, bool) {
	for _, c := range a.children {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

// Method returns the built method for code, "insert", "query" and so
// on. Receivers subscribe through it.
func (a *ResourceAPI) Method(code string) (*spi.Method, bool) {
	m, ok := a.methods[code]
	return m, ok
}

// Methods returns the node's built methods sorted by code.
func (a *ResourceAPI) Methods() []*spi.Method {
	codes := make([]string, 0, len(a.methods))
	for code := range a.methods {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	ms := make([]*spi.Method, 0, len(codes))
	for _, code := range codes {
		ms = append(ms, a.methods[code])
	}
	return ms
}

// NewResource returns a fresh unsaved resource of this API's schema.
func (a *ResourceAPI) NewResource() *arbor.Resource {
	return arbor.NewResource(a.schema)
}

func (a *ResourceAPI) method(code string) (*spi.Method, error) {
	m, ok := a.methods[code]
	if !ok {
		return nil, fmt.Errorf("arbor/api: %s has no %s method", a.path, code)
	}
	return m, nil
}

// Insert persists res and returns its new uid.
func (a *ResourceAPI) Insert(ctx context.Context, res *arbor.Resource) (string, error) {
	m, err := a.method("insert")
	if err != nil {
		return "", err
	}
	v, err := m.Call(ctx, map[string]any{spi.ArgResource: res})
	if err != nil {
		return "", err
	}
	uid, _ := v.(string)
	return uid, nil
}

// Get returns the resource stored under uid.
func (a *ResourceAPI) Get(ctx context.Context, uid string) (*arbor.Resource, error) {
	m, err := a.method("get")
	if err != nil {
		return nil, err
	}
	v, err := m.Call(ctx, map[string]any{spi.ArgUID: uid})
	if err != nil {
		return nil, err
	}
	res, _ := v.(*arbor.Resource)
	return res, nil
}

// Update persists the modified res and returns its uid.
func (a *ResourceAPI) Update(ctx context.Context, res *arbor.Resource) (string, error) {
	m, err := a.method("update")
	if err != nil {
		return "", err
	}
	v, err := m.Call(ctx, map[string]any{spi.ArgResource: res})
	if err != nil {
		return "", err
	}
	uid, _ := v.(string)
	return uid, nil
}

// Delete removes the resource stored under uid and returns the uid.
func (a *ResourceAPI) Delete(ctx context.Context, uid string) (string, error) {
	m, err := a.method("delete")
	if err != nil {
		return "", err
	}
	v, err := m.Call(ctx, map[string]any{spi.ArgUID: uid})
	if err != nil {
		return "", err
	}
	deleted, _ := v.(string)
	return deleted, nil
}

// Query returns the resources matching the equality filters, sorted by
// order when given, capped at limit when positive.
func (a *ResourceAPI) Query(ctx context.Context, filters map[string]any, order string, limit int) ([]*arbor.Resource, error) {
	m, err := a.method("query")
	if err != nil {
		return nil, err
	}
	args := map[string]any{}
	if len(filters) != 0 {
		args[spi.ArgFilters] = filters
	}
	if order != "" {
		args[spi.ArgOrder] = order
	}
	if limit > 0 {
		args[spi.ArgLimit] = limit
	}
	v, err := m.Call(ctx, args)
	if err != nil {
		return nil, err
	}
	list, _ := v.([]*arbor.Resource)
	return list, nil
}

// Search returns the index documents matching query.
func (a *ResourceAPI) Search(ctx context.Context, query string) ([]search.Document, error) {
	m, err := a.method("search")
	if err != nil {
		return nil, err
	}
	v, err := m.Call(ctx, map[string]any{spi.ArgQuery: query})
	if err != nil {
		return nil, err
	}
	docs, _ := v.([]search.Document)
	return docs, nil
}
