package spi

import (
	"context"
	"sort"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/search"
	"go.kotori.dev/arbor/signal"
)

// NewQueryMethod returns the query specialization for s: an equality
// filtered scan of the kind, hydrated into resources. Queries always
// run against the client, a promoted call does not cover them with its
// transaction; only receiver presence promotes, never the query
// itself.
func NewQueryMethod(client arbor.Client, s *arbor.Schema, qualifier string, sender any) *Method {
	m := newMethod(client, s, "query", qualifier, sender)
	m.action.Connect(m.opQuery)
	return m
}

// NewSearchMethod returns the search specialization for s, backed by
// idx. The result is the matching index documents.
func NewSearchMethod(client arbor.Client, s *arbor.Schema, qualifier string, sender any, idx search.Index) *Method {
	m := newMethod(client, s, "search", qualifier, sender)
	m.index = idx
	m.action.Connect(m.opSearch)
	return m
}

func (m *Method) opQuery(ctx context.Context, ev *signal.Event) (any, error) {
	q := m.client.NewQuery(m.schema.Kind)

	if filters, ok := ev.Args[ArgFilters].(map[string]any); ok {
		props := make([]string, 0, len(filters))
		for prop := range filters {
			props = append(props, prop)
		}
		sort.Strings(props)
		for _, prop := range props {
			q = q.Filter(prop, filters[prop])
		}
	}
	if order, ok := ev.Args[ArgOrder].(string); ok && order != "" {
		q = q.Order(order)
	}
	if limit, ok := ev.Args[ArgLimit].(int); ok && limit > 0 {
		q = q.Limit(limit)
	}

	keys, psList, err := m.client.GetAll(ctx, q)
	if err != nil {
		return nil, err
	}

	resources := make([]*arbor.Resource, 0, len(keys))
	for idx, key := range keys {
		resources = append(resources, arbor.FromPropertyList(m.schema, key.Name(), psList[idx]))
	}
	return resources, nil
}

func (m *Method) opSearch(ctx context.Context, ev *signal.Event) (any, error) {
	query, _ := ev.Args[ArgQuery].(string)
	return m.index.Search(ctx, m.schema.Kind, query)
}
