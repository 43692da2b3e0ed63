package memdatastore

import (
	"sync"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/internal/plainkey"
)

// store holds every entity of one backend instance. Entities are kept
// immutable once stored; readers receive clones. Each key carries a
// version counter that commits validate against, which is what gives
// transactions their first-committer-wins behavior.
type store struct {
	mu       sync.Mutex
	entities map[string]*storedEntity
	versions map[string]int64
	nextID   int64
}

type storedEntity struct {
	key *plainkey.Key
	ps  arbor.PropertyList
}

func newStore() *store {
	return &store{
		entities: make(map[string]*storedEntity),
		versions: make(map[string]int64),
	}
}

// storageName identifies one entity slot. Key String() omits the
// namespace, so it is prefixed explicitly.
func storageName(key arbor.Key) string {
	return key.Namespace() + "|" + key.String()
}

func (s *store) allocateIDLocked() int64 {
	s.nextID++
	return s.nextID
}

func (s *store) getLocked(name string) (*storedEntity, bool) {
	e, ok := s.entities[name]
	return e, ok
}

func (s *store) putLocked(name string, key *plainkey.Key, ps arbor.PropertyList) {
	s.entities[name] = &storedEntity{key: key, ps: normalizeProps(ps)}
	s.versions[name]++
}

func (s *store) deleteLocked(name string) {
	if _, ok := s.entities[name]; !ok {
		return
	}
	delete(s.entities, name)
	s.versions[name]++
}

// snapshot copies the map headers. Safe because stored entities are
// never mutated in place.
func (s *store) snapshot() (map[string]*storedEntity, map[string]int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entities := make(map[string]*storedEntity, len(s.entities))
	for name, e := range s.entities {
		entities[name] = e
	}
	versions := make(map[string]int64, len(s.versions))
	for name, v := range s.versions {
		versions[name] = v
	}
	return entities, versions
}

// normalizeProps clones ps and widens numeric values the way the real
// services store them, so filters and order comparisons behave the same
// across backends.
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
