// Package plainkey provides the self-contained key implementation the
// in-process backends share. Keys are plain values with no service
// handle behind them.
package plainkey

import (
	"bytes"
	"encoding/base64"
	"encoding/gob"
	"strconv"
	"strings"

	"go.kotori.dev/arbor"
)

// Key implements arbor.Key.
type Key struct {
	kind      string
	id        int64
	name      string
	parent    *Key
	namespace string
}

// Registered so keys survive as PropertyList values in gob payloads,
// which the cache layers and the SQLite backend produce.
func init() {
	gob.Register(&Key{})
}

// IncompleteKey returns a key with neither name nor id. The backend
// assigns an id at Put time.
func IncompleteKey(kind, namespace string, parent arbor.Key) *Key {
	return &Key{kind: kind, namespace: namespace, parent: FromKey(parent)}
}

// NameKey returns a key identified by a string name.
func NameKey(kind, name, namespace string, parent arbor.Key) *Key {
	return &Key{kind: kind, name: name, namespace: namespace, parent: FromKey(parent)}
}

// IDKey returns a key identified by a numeric id.
func IDKey(kind string, id int64, namespace string, parent arbor.Key) *Key {
	return &Key{kind: kind, id: id, namespace: namespace, parent: FromKey(parent)}
}

// WithID returns a copy of k carrying the given id. Used when the
// backend completes an incomplete key.
func WithID(k *Key, id int64) *Key {
	c := *k
	c.id = id
	c.name = ""
	return &c
}

// FromKey converts any arbor.Key into this implementation by copying
// the path. Keys that already are this implementation pass through.
func FromKey(key arbor.Key) *Key {
	if key == nil {
		return nil
	}
	if k, ok := key.(*Key); ok {
		return k
	}
	return &Key{
		kind:      key.Kind(),
		id:        key.ID(),
		name:      key.Name(),
		parent:    FromKey(key.ParentKey()),
		namespace: key.Namespace(),
	}
}

func (k *Key) Kind() string {
	return k.kind
}

func (k *Key) ID() int64 {
	return k.id
}

func (k *Key) Name() string {
	return k.name
}

func (k *Key) ParentKey() arbor.Key {
	if k.parent == nil {
		return nil
	}
	return k.parent
}

func (k *Key) Namespace() string {
	return k.namespace
}

func (k *Key) Incomplete() bool {
	return k.name == "" && k.id == 0
}

// String returns the key path in /Kind,identifier form, parents first.
func (k *Key) String() string {
	if k == nil {
		return ""
	}
	var b strings.Builder
	k.marshal(&b)
	return b.String()
}

func (k *Key) marshal(b *strings.Builder) {
	if k.parent != nil {
		k.parent.marshal(b)
	}
	b.WriteByte('/')
	b.WriteString(k.kind)
	b.WriteByte(',')
	if k.name != "" {
		b.WriteString(k.name)
	} else {
		b.WriteString(strconv.FormatInt(k.id, 10))
	}
}

func (k *Key) Equal(o arbor.Key) bool {
	var a arbor.Key = k
	for {
		if a == nil || o == nil {
			return a == nil && o == nil
		}
		if a.Kind() != o.Kind() || a.ID() != o.ID() || a.Name() != o.Name() || a.Namespace() != o.Namespace() {
			return false
		}
		a = a.ParentKey()
		o = o.ParentKey()
	}
}

type keyGob struct {
	Kind      string
	ID        int64
	Name      string
	Namespace string
	Parent    *keyGob
}

func toGob(k *Key) *keyGob {
	if k == nil {
		return nil
	}
	return &keyGob{
		Kind:      k.kind,
		ID:        k.id,
		Name:      k.name,
		Namespace: k.namespace,
		Parent:    toGob(k.parent),
	}
}

func fromGob(g *keyGob) *Key {
	if g == nil {
		return nil
	}
	return &Key{
		kind:      g.Kind,
		id:        g.ID,
		name:      g.Name,
		namespace: g.Namespace,
		parent:    fromGob(g.Parent),
	}
}

func (k *Key) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(toGob(k)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (k *Key) GobDecode(raw []byte) error {
	var g keyGob
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&g); err != nil {
		return err
	}
	*k = *fromGob(&g)
	return nil
}

// Encode returns an opaque representation of the key suitable for URLs.
func (k *Key) Encode() string {
	raw, err := k.GobEncode()
	if err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode reverses Encode.
func Decode(encoded string) (*Key, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, arbor.ErrInvalidKey
	}
	k := &Key{}
	if err := k.GobDecode(raw); err != nil {
		return nil, arbor.ErrInvalidKey
	}
	return k, nil
}
