package clouddatastore

import (
	"cloud.google.com/go/datastore"

	"go.kotori.dev/arbor"
)

var _ arbor.Query = &queryImpl{}

// queryImpl keeps the service query and the backend-neutral dump side by
// side. Both views have to stay in step, the dump is what observers and
// cache layers see.
type queryImpl struct {
	q    *datastore.Query
	dump *arbor.QueryDump
}

func (q *queryImpl) clone() *queryImpl {
	return &queryImpl{q: q.q, dump: q.dump.Clone()}
}

func (q *queryImpl) Filter(property string, value any) arbor.Query {
	c := q.clone()
	c.q = c.q.FilterField(property, "=", toOriginalValue(value))
	c.dump.Filter = append(c.dump.Filter, &arbor.QueryFilterCondition{
		Property: property,
		Value:    value,
	})
	return c
}

func (q *queryImpl) Order(property string) arbor.Query {
	c := q.clone()
	c.q = c.q.Order(property)
	c.dump.Order = append(c.dump.Order, property)
	return c
}

func (q *queryImpl) KeysOnly() arbor.Query {
	c := q.clone()
	c.q = c.q.KeysOnly()
	c.dump.KeysOnly = true
	return c
}

func (q *queryImpl) Limit(limit int) arbor.Query {
	c := q.clone()
	c.q = c.q.Limit(limit)
	c.dump.Limit = limit
	return c
}

func (q *queryImpl) Dump() *arbor.QueryDump {
	return q.dump
}
