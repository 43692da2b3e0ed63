package arbor

import (
	"fmt"
	"strings"
)

// QueryDump is the introspectable form of a Query. Backends keep it in sync
// with their native query value so observers (logging hooks, tests) can see
// what will be sent without depending on a backend.
type QueryDump struct {
	Kind     string
	Filter   []*QueryFilterCondition
	Order    []string
	KeysOnly bool
	Limit    int
}

// QueryFilterCondition is one equality filter of a QueryDump.
type QueryFilterCondition struct {
	Property string
	Value    any
}

func (d *QueryDump) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "kind=%s", d.Kind)
	for _, f := range d.Filter {
		fmt.Fprintf(&b, ", filter=%s=%v", f.Property, f.Value)
	}
	for _, o := range d.Order {
		fmt.Fprintf(&b, ", order=%s", o)
	}
	if d.KeysOnly {
		b.WriteString(", keys-only")
	}
	if d.Limit > 0 {
		fmt.Fprintf(&b, ", limit=%d", d.Limit)
	}
	return b.String()
}

// Clone returns a deep copy so backends can hand dumps to observers without
// aliasing their builder state.
func (d *QueryDump) Clone() *QueryDump {
	x := *d
	x.Filter = make([]*QueryFilterCondition, len(d.Filter))
	for i, f := range d.Filter {
		c := *f
		x.Filter[i] = &c
	}
	x.Order = append([]string(nil), d.Order...)
	return &x
}
