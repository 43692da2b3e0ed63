package sqlitedatastore

import (
	"context"
	"fmt"
	"strings"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/internal/plainkey"
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
		return nil, nil, fmt.Errorf("arbor/sqlitedatastore: unsupported query type %T", q)
	}
	dump := qi.dump

	stmt, args, ok := d.buildSelect(dump, dump.KeysOnly)
	if !ok {
		return nil, nil, nil
	}

	rows, err := d.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var keys []arbor.Key
	var psList []arbor.PropertyList
	for rows.Next() {
		var enc string
		var payload []byte
		if dump.KeysOnly {
			err = rows.Scan(&enc)
		} else {
			err = rows.Scan(&enc, &payload)
		}
		if err != nil {
			return nil, nil, err
		}

		key, err := plainkey.Decode(enc)
		if err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)

		if !dump.KeysOnly {
			ps, err := decodeProps(payload)
			if err != nil {
				return nil, nil, err
			}
			psList = append(psList, ps)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return keys, psList, nil
}

func (d *datastoreImpl) Count(ctx context.Context, q arbor.Query) (int, error) {
	qi, ok := q.(*queryImpl)
	if !ok {
		return 0, fmt.Errorf("arbor/sqlitedatastore: unsupported query type %T", q)
	}

	stmt, args, ok := d.buildSelect(qi.dump, true)
	if !ok {
		return 0, nil
	}

	var cnt int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ("+stmt+")", args...).Scan(&cnt); err != nil {
		return 0, err
	}
	return cnt, nil
}

// buildSelect renders dump as one SQL statement. The ok result is
// false when a filter value lies outside the scalar index, no row can
// match it then.
func (d *datastoreImpl) buildSelect(dump *arbor.QueryDump, keysOnly bool) (string, []any, bool) {
	var b strings.Builder
	var args []any

	if keysOnly {
		b.WriteString("SELECT e.key_enc FROM entities AS e")
	} else {
		b.WriteString("SELECT e.key_enc, e.payload FROM entities AS e")
	}

	type orderCol struct {
		alias string
		desc  bool
	}
	orders := make([]orderCol, 0, len(dump.Order))
	for idx, o := range dump.Order {
		// the join keeps entities without the ordered property out of
		// the result, like the real index
		alias := fmt.Sprintf("o%d", idx)
		fmt.Fprintf(&b, " JOIN props AS %s ON %s.name = e.name AND %s.prop = ?", alias, alias, alias)
		args = append(args, strings.TrimPrefix(o, "-"))
		orders = append(orders, orderCol{alias: alias, desc: strings.HasPrefix(o, "-")})
	}

	b.WriteString(" WHERE e.ns = ? AND e.kind = ?")
	args = append(args, d.namespace, dump.Kind)

	for _, f := range dump.Filter {
		v, ok := indexValue(f.Value)
		if !ok {
			return "", nil, false
		}
		b.WriteString(" AND EXISTS (SELECT 1 FROM props AS f WHERE f.name = e.name AND f.prop = ? AND f.vkind = ? AND f.vint = ? AND f.vreal = ? AND f.vtext = ?)")
		args = append(args, f.Property, v.kind, v.vint, v.vreal, v.vtext)
	}

	// results stay deterministic, the key path is always the last sort key
	b.WriteString(" ORDER BY ")
	for _, oc := range orders {
		dir := "ASC"
		if oc.desc {
			dir = "DESC"
		}
		fmt.Fprintf(&b, "%s.vkind %s, %s.vint %s, %s.vreal %s, %s.vtext %s, ", oc.alias, dir, oc.alias, dir, oc.alias, dir, oc.alias, dir)
	}
	b.WriteString("e.name ASC")

	if dump.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, dump.Limit)
	}

	return b.String(), args, true
}
