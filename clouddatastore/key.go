package clouddatastore

import (
	"context"
	"strconv"
	"strings"

	"cloud.google.com/go/datastore"

	"go.kotori.dev/arbor"
)

var _ arbor.Key = &keyImpl{}
var _ arbor.PendingKey = &pendingKeyImpl{}

type keyImpl struct {
	kind      string
	id        int64
	name      string
	parent    *keyImpl
	namespace string
}

func (k *keyImpl) Kind() string {
	return k.kind
}

func (k *keyImpl) ID() int64 {
	return k.id
}

func (k *keyImpl) Name() string {
	return k.name
}

func (k *keyImpl) ParentKey() arbor.Key {
	if k.parent == nil {
		return nil
	}
	return k.parent
}

func (k *keyImpl) Namespace() string {
	return k.namespace
}

func (k *keyImpl) Incomplete() bool {
	return k.name == "" && k.id == 0
}

// String returns the key path in /Kind,identifier form, parents first.
// The in-process backends print the same shape, so key strings stay
// comparable across backends.
func (k *keyImpl) String() string {
	if k == nil {
		return ""
	}
	var b strings.Builder
	k.marshal(&b)
	return b.String()
}

func (k *keyImpl) marshal(b *strings.Builder) {
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

func (k *keyImpl) Equal(o arbor.Key) bool {
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

// Encode returns the service's own URL-safe encoding, so the value stays
// decodable by other Cloud Datastore tooling.
func (k *keyImpl) Encode() string {
	return toOriginalKey(k).Encode()
}

type contextPendingKey struct{}

// pendingKeyImpl carries the service's pending key through the
// backend-neutral contract. StoredContext smuggles the implementation
// back out, commitImpl.Key needs the original to resolve it.
type pendingKeyImpl struct {
	pendingKey *datastore.PendingKey
}

func (p *pendingKeyImpl) StoredContext() context.Context {
	return context.WithValue(context.Background(), contextPendingKey{}, p)
}
