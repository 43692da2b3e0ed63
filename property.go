// Copyright 2014 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package arbor

import (
	"encoding/gob"
	"time"
)

func init() {
	gob.Register(time.Time{})
	gob.Register(&Entity{})
	gob.Register(GeoPoint{})
	gob.Register([]any{})
}

// Property is a name/value pair plus some metadata.
//
// Value types the backends understand are: int64, bool, string, float64,
// []byte, time.Time, GeoPoint, Key, and []any whose elements are any of the
// previous types. Backends reject anything else at Put time.
type Property struct {
	Name    string
	Value   any
	NoIndex bool
}

// Entity is a datastore record: a key plus its properties.
type Entity struct {
	Key        Key
	Properties []Property
}

// GeoPoint represents a location as latitude/longitude in degrees.
type GeoPoint struct {
	Lat, Lng float64
}

// PropertyList is the wire-level shape of one entity's properties. The method
// layer moves documents around as PropertyList values; there is no struct
// marshalling in this module.
type PropertyList []Property

// Index returns the position of the named property, or -1.
func (l PropertyList) Index(name string) int {
	for i, p := range l {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Value returns the value of the named property and whether it is present.
func (l PropertyList) Value(name string) (any, bool) {
	if i := l.Index(name); i != -1 {
		return l[i].Value, true
	}
	return nil, false
}

// Clone returns a copy that shares no mutable state with l. Backends use it
// so stored entities never alias caller memory.
func (l PropertyList) Clone() PropertyList {
	if l == nil {
		return nil
	}
	out := make(PropertyList, len(l))
	copy(out, l)
	for i, p := range out {
		switch v := p.Value.(type) {
		case []byte:
			b := make([]byte, len(v))
			copy(b, v)
			out[i].Value = b
		case []any:
			s := make([]any, len(v))
			copy(s, v)
			out[i].Value = s
		}
	}
	return out
}
