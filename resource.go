package arbor

import "sort"

// Change records one tracked property mutation. Old is the value the
// property held when tracking last reset, New the latest assignment.
type Change struct {
	Old any
	New any
}

// Resource is a single document under construction or revision. It
// tracks property assignments between loads and persists so the unique
// coordinator can tell which constrained values need lock work, and
// which stale values to free. A Resource is not safe for concurrent
// mutation.
type Resource struct {
	schema *Schema

	uid     string
	values  map[string]any
	history map[string]Change
}

// NewResource returns an empty resource bound to s.
func NewResource(s *Schema) *Resource {
	return &Resource{
		schema:  s,
		values:  make(map[string]any),
		history: make(map[string]Change),
	}
}

// FromPropertyList hydrates a resource from stored properties.
// Hydration does not count as modification.
func FromPropertyList(s *Schema, uid string, ps PropertyList) *Resource {
	r := NewResource(s)
	r.uid = uid
	for _, p := range ps {
		r.values[p.Name] = p.Value
	}
	return r
}

// Schema returns the declaration the resource was built against.
func (r *Resource) Schema() *Schema {
	return r.schema
}

// UID returns the resource identifier. It is empty until the resource
// has been persisted once.
func (r *Resource) UID() string {
	return r.uid
}

// SetUID assigns the identifier. Insert allocates one automatically;
// set it by hand only when adopting an externally chosen uid.
func (r *Resource) SetUID(uid string) {
	r.uid = uid
}

// Set assigns a property value and records the change. The first
// assignment since the last reset captures the prior value as
// Change.Old; later assignments only move Change.New.
func (r *Resource) Set(name string, value any) {
	if c, ok := r.history[name]; ok {
		c.New = value
		r.history[name] = c
	} else {
		r.history[name] = Change{Old: r.values[name], New: value}
	}
	r.values[name] = value
}

// Get reports the current value of a property.
func (r *Resource) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Modified reports whether the property was assigned since the last reset.
func (r *Resource) Modified(name string) bool {
	_, ok := r.history[name]
	return ok
}

// Changes returns a copy of the tracked mutations.
func (r *Resource) Changes() map[string]Change {
	out := make(map[string]Change, len(r.history))
	for name, c := range r.history {
		out[name] = c
	}
	return out
}

// ModifiedUniques lists the unique properties assigned since the last
// reset, sorted by name.
func (r *Resource) ModifiedUniques() []string {
	var names []string
	for name := range r.history {
		if r.schema.Unique(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ResetTracking clears the change history. The framework calls it after
// a successful persist so tracking stays scoped to one revision.
func (r *Resource) ResetTracking() {
	r.history = make(map[string]Change)
}

// PropertyList serializes the current values, sorted by property name.
// NoIndex follows the schema for declared properties.
func (r *Resource) PropertyList() PropertyList {
	names := make([]string, 0, len(r.values))
	for name := range r.values {
		names = append(names, name)
	}
	sort.Strings(names)

	ps := make(PropertyList, 0, len(names))
	for _, name := range names {
		p := Property{Name: name, Value: r.values[name]}
		if def, ok := r.schema.Property(name); ok {
			p.NoIndex = def.NoIndex
		}
		ps = append(ps, p)
	}
	return ps
}
