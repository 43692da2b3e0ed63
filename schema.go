package arbor

// PropertyDef declares one property of a resource kind.
type PropertyDef struct {
	Name    string
	Unique  bool
	NoIndex bool
}

// Schema describes a resource kind: the datastore kind name and the
// properties the framework manages on it. Uniqueness enforcement and
// index suppression key off the declarations here.
type Schema struct {
	Kind       string
	Properties []PropertyDef
}

// Property looks up a declaration by name.
func (s *Schema) Property(name string) (PropertyDef, bool) {
	for _, def := range s.Properties {
		if def.Name == name {
			return def, true
		}
	}
	return PropertyDef{}, false
}

// Unique reports whether the named property carries a uniqueness constraint.
func (s *Schema) Unique(name string) bool {
	def, ok := s.Property(name)
	return ok && def.Unique
}

// UniqueProperties lists the unique property names in declaration order.
func (s *Schema) UniqueProperties() []string {
	var names []string
	for _, def := range s.Properties {
		if def.Unique {
			names = append(names, def.Name)
		}
	}
	return names
}
