package memdatastore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"go.kotori.dev/arbor"
)

var _ arbor.Query = &queryImpl{}

type queryImpl struct {
	dump *arbor.QueryDump
}

func (q *queryImpl) clone() *queryImpl {
	return &queryImpl{dump: q.dump.Clone()}
}

func (q *queryImpl) Filter(property string, value any) arbor.Query {
	c := q.clone()
	c.dump.Filter = append(c.dump.Filter, &arbor.QueryFilterCondition{Property: property, Value: normalizeValue(value)})
	return c
}

func (q *queryImpl) Order(property string) arbor.Query {
	c := q.clone()
	c.dump.Order = append(c.dump.Order, property)
	return c
}

func (q *queryImpl) KeysOnly() arbor.Query {
	c := q.clone()
	c.dump.KeysOnly = true
	return c
}

func (q *queryImpl) Limit(limit int) arbor.Query {
	c := q.clone()
	c.dump.Limit = limit
	return c
}

func (q *queryImpl) Dump() *arbor.QueryDump {
	return q.dump
}

func (d *datastoreImpl) GetAll(ctx context.Context, q arbor.Query) ([]arbor.Key, []arbor.PropertyList, error) {
	qi, ok := q.(*queryImpl)
	if !ok {
		return nil, nil, fmt.Errorf("arbor/memdatastore: unsupported query type %T", q)
	}

	matched := d.run(qi.dump)

	keys := make([]arbor.Key, 0, len(matched))
	for _, e := range matched {
		keys = append(keys, e.key)
	}
	if qi.dump.KeysOnly {
		return keys, nil, nil
	}

	psList := make([]arbor.PropertyList, 0, len(matched))
	for _, e := range matched {
		psList = append(psList, e.ps.Clone())
	}
	return keys, psList, nil
}

func (d *datastoreImpl) Count(ctx context.Context, q arbor.Query) (int, error) {
	qi, ok := q.(*queryImpl)
	if !ok {
		return 0, fmt.Errorf("arbor/memdatastore: unsupported query type %T", q)
	}

	return len(d.run(qi.dump)), nil
}

func (d *datastoreImpl) run(dump *arbor.QueryDump) []*storedEntity {
	entities, _ := d.store.snapshot()

	var matched []*storedEntity
	for _, e := range entities {
		if d.match(e, dump) {
			matched = append(matched, e)
		}
	}

	sortEntities(matched, dump.Order)
	if dump.Limit > 0 && len(matched) > dump.Limit {
		matched = matched[:dump.Limit]
	}
	return matched
}

func (d *datastoreImpl) match(e *storedEntity, dump *arbor.QueryDump) bool {
	if e.key.Kind() != dump.Kind || e.key.Namespace() != d.namespace {
		return false
	}
	for _, f := range dump.Filter {
		idx := e.ps.Index(f.Property)
		if idx < 0 || e.ps[idx].NoIndex {
			return false
		}
		if !equalValue(e.ps[idx].Value, f.Value) {
			return false
		}
	}
	// entities missing an ordered property drop out, like the real index
	for _, o := range dump.Order {
		idx := e.ps.Index(strings.TrimPrefix(o, "-"))
		if idx < 0 || e.ps[idx].NoIndex {
			return false
		}
	}
	return true
}

// sortEntities orders by the requested properties, then by key path so
// results stay deterministic.
func sortEntities(es []*storedEntity, order []string) {
	sort.SliceStable(es, func(i, j int) bool {
		for _, o := range order {
			prop := strings.TrimPrefix(o, "-")
			vi, _ := es[i].ps.Value(prop)
			vj, _ := es[j].ps.Value(prop)
			c := compareValue(vi, vj)
			if c == 0 {
				continue
			}
			if strings.HasPrefix(o, "-") {
				return c > 0
			}
			return c < 0
		}
		return es[i].key.String() < es[j].key.String()
	})
}

func equalValue(a, b any) bool {
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	return reflect.DeepEqual(a, b)
}

func compareValue(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		}
		return 1
	}

	switch av := a.(type) {
	case int64:
		if bv, ok := b.(int64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case !av && bv:
				return -1
			case av && !bv:
				return 1
			}
			return 0
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			switch {
			case av.Before(bv):
				return -1
			case av.After(bv):
				return 1
			}
			return 0
		}
	}

	// mixed types have no meaningful order, compare the printed form
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
