package arbor

import (
	"reflect"
	"testing"
)

func accountSchema() *Schema {
	return &Schema{
		Kind: "Account",
		Properties: []PropertyDef{
			{Name: "email", Unique: true},
			{Name: "handle", Unique: true},
			{Name: "note", NoIndex: true},
			{Name: "plan"},
		},
	}
}

func TestSchema_Property(t *testing.T) {
	s := accountSchema()

	def, ok := s.Property("email")
	if !ok {
		t.Fatal("unexpected: email not declared")
	}
	if !def.Unique {
		t.Errorf("unexpected: %v", def)
	}

	if _, ok := s.Property("missing"); ok {
		t.Errorf("unexpected: missing declared")
	}
}

func TestSchema_UniqueProperties(t *testing.T) {
	s := accountSchema()

	if v := s.UniqueProperties(); !reflect.DeepEqual(v, []string{"email", "handle"}) {
		t.Errorf("unexpected: %v", v)
	}
	if s.Unique("note") {
		t.Errorf("unexpected: note unique")
	}
}

func TestResource_SetTracksChanges(t *testing.T) {
	r := NewResource(accountSchema())

	r.Set("email", "a@example.com")
	r.Set("email", "b@example.com")
	r.Set("plan", "free")

	if !r.Modified("email") {
		t.Errorf("unexpected: email not modified")
	}
	c := r.Changes()["email"]
	if c.Old != nil {
		t.Errorf("unexpected: %v", c.Old)
	}
	if v := c.New; v != "b@example.com" {
		t.Errorf("unexpected: %v", v)
	}
	if v := r.ModifiedUniques(); !reflect.DeepEqual(v, []string{"email"}) {
		t.Errorf("unexpected: %v", v)
	}
}

func TestResource_LoadThenSet(t *testing.T) {
	ps := PropertyList{
		{Name: "email", Value: "old@example.com"},
		{Name: "plan", Value: "free"},
	}
	r := FromPropertyList(accountSchema(), "u1", ps)

	if v := r.UID(); v != "u1" {
		t.Errorf("unexpected: %v", v)
	}
	if len(r.Changes()) != 0 {
		t.Errorf("unexpected: %v", r.Changes())
	}

	r.Set("email", "new@example.com")

	c := r.Changes()["email"]
	if v := c.Old; v != "old@example.com" {
		t.Errorf("unexpected: %v", v)
	}
	if v := c.New; v != "new@example.com" {
		t.Errorf("unexpected: %v", v)
	}
}

func TestResource_ResetTracking(t *testing.T) {
	r := NewResource(accountSchema())
	r.Set("email", "a@example.com")

	r.ResetTracking()

	if len(r.Changes()) != 0 {
		t.Errorf("unexpected: %v", r.Changes())
	}
	if v := r.ModifiedUniques(); len(v) != 0 {
		t.Errorf("unexpected: %v", v)
	}

	v, ok := r.Get("email")
	if !ok || v != "a@example.com" {
		t.Errorf("unexpected: %v", v)
	}
}

func TestResource_PropertyList(t *testing.T) {
	r := NewResource(accountSchema())
	r.Set("plan", "pro")
	r.Set("note", "internal")
	r.Set("email", "a@example.com")

	ps := r.PropertyList()

	want := PropertyList{
		{Name: "email", Value: "a@example.com"},
		{Name: "note", Value: "internal", NoIndex: true},
		{Name: "plan", Value: "pro"},
	}
	if !reflect.DeepEqual(ps, want) {
		t.Errorf("unexpected: %v", ps)
	}
}
