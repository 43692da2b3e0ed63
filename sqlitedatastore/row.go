package sqlitedatastore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/gob"
	"time"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/internal/plainkey"
)

// execer is the subset of *sql.DB and *sql.Tx the row helpers need.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// rowName is the primary key of an entity row. Key String() omits the
// namespace, so it is prefixed explicitly.
func rowName(key arbor.Key) string {
	return key.Namespace() + "|" + key.String()
}

// putRow upserts one entity, bumps its version and refreshes its
// scalar index rows.
func putRow(ctx context.Context, sqlTx *sql.Tx, k *plainkey.Key, ps arbor.PropertyList) error {
	ps = normalizeProps(ps)

	name := rowName(k)
	payload, err := encodeProps(ps)
	if err != nil {
		return err
	}

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO entities (name, ns, kind, key_enc, payload) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET payload = excluded.payload`,
		name, k.Namespace(), k.Kind(), k.Encode(), payload,
	)
	if err != nil {
		return err
	}
	if err := bumpVersion(ctx, sqlTx, name); err != nil {
		return err
	}

	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM props WHERE name = ?`, name); err != nil {
		return err
	}
	for _, p := range ps {
		if p.NoIndex {
			continue
		}
		v, ok := indexValue(p.Value)
		if !ok {
			continue
		}
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO props (name, ns, kind, prop, vkind, vint, vreal, vtext) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			name, k.Namespace(), k.Kind(), p.Name, v.kind, v.vint, v.vreal, v.vtext,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// deleteRow removes one entity and its index rows. Absent rows keep
// their version untouched, so deleting them stays a no-op.
func deleteRow(ctx context.Context, sqlTx *sql.Tx, name string) error {
	res, err := sqlTx.ExecContext(ctx, `DELETE FROM entities WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM props WHERE name = ?`, name); err != nil {
		return err
	}
	return bumpVersion(ctx, sqlTx, name)
}

// bumpVersion advances the per-key commit counter commits validate
// against.
func bumpVersion(ctx context.Context, sqlTx *sql.Tx, name string) error {
	_, err := sqlTx.ExecContext(ctx, `
		INSERT INTO versions (name, version) VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET version = versions.version + 1`, name)
	return err
}

// readVersion reports the current commit counter of one key. Keys that
// were never written report zero.
func readVersion(ctx context.Context, sqlTx *sql.Tx, name string) (int64, error) {
	var v int64
	err := sqlTx.QueryRowContext(ctx, `SELECT version FROM versions WHERE name = ?`, name).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return v, nil
}

// allocateID draws the next id from the AUTOINCREMENT sequence. The
// inserted row is dropped right away, the sequence alone carries the
// counter forward.
func allocateID(ctx context.Context, e execer) (int64, error) {
	res, err := e.ExecContext(ctx, `INSERT INTO ids DEFAULT VALUES`)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if _, err := e.ExecContext(ctx, `DELETE FROM ids WHERE id = ?`, id); err != nil {
		return 0, err
	}
	return id, nil
}

func encodeProps(ps arbor.PropertyList) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(ps); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeProps(payload []byte) (arbor.PropertyList, error) {
	var ps arbor.PropertyList
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&ps); err != nil {
		return nil, err
	}
	return ps, nil
}

// normalizeProps clones ps and widens numeric values the way the other
// backends store them, so filters and order comparisons behave the same
// everywhere.
func normalizeProps(ps arbor.PropertyList) arbor.PropertyList {
	out := ps.Clone()
	for idx := range out {
		out[idx].Value = normalizeValue(out[idx].Value)
	}
	return out
}

func normalizeValue(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case float32:
		return float64(n)
	}
	return v
}

// The kind column sorts nil before bool before numbers before times
// before strings, the order the composite index compares in.
const (
	vkindNil int64 = iota
	vkindBool
	vkindInt
	vkindFloat
	vkindTime
	vkindString
)

// propValue is one property value flattened into the index columns.
type propValue struct {
	kind  int64
	vint  int64
	vreal float64
	vtext string
}

// indexValue flattens v into index columns. Values outside the scalar
// set report false and stay out of the index, so filters on them never
// match and ordering by them drops the entity.
func indexValue(v any) (propValue, bool) {
	switch t := v.(type) {
	case nil:
		return propValue{kind: vkindNil}, true
	case bool:
		pv := propValue{kind: vkindBool}
		if t {
			pv.vint = 1
		}
		return pv, true
	case int64:
		return propValue{kind: vkindInt, vint: t}, true
	case float64:
		return propValue{kind: vkindFloat, vreal: t}, true
	case time.Time:
		return propValue{kind: vkindTime, vint: t.UnixNano()}, true
	case string:
		return propValue{kind: vkindString, vtext: t}, true
	}
	return propValue{}, false
}
