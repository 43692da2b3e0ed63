package plainkey

import (
	"bytes"
	"encoding/gob"
	"testing"

	"go.kotori.dev/arbor"
)

func TestKey_String(t *testing.T) {
	parent := IDKey("Parent", 7, "", nil)
	key := NameKey("Child", "c1", "", parent)

	if v := key.String(); v != "/Parent,7/Child,c1" {
		t.Errorf("unexpected: %v", v)
	}
}

func TestKey_Incomplete(t *testing.T) {
	key := IncompleteKey("Data", "", nil)
	if !key.Incomplete() {
		t.Errorf("unexpected: %v", key)
	}

	done := WithID(key, 42)
	if done.Incomplete() {
		t.Errorf("unexpected: %v", done)
	}
	if v := done.ID(); v != 42 {
		t.Errorf("unexpected: %v", v)
	}
	// original untouched
	if v := key.ID(); v != 0 {
		t.Errorf("unexpected: %v", v)
	}
}

func TestKey_Equal(t *testing.T) {
	a := NameKey("Data", "a", "ns", IDKey("Parent", 1, "ns", nil))
	b := NameKey("Data", "a", "ns", IDKey("Parent", 1, "ns", nil))
	c := NameKey("Data", "a", "ns", IDKey("Parent", 2, "ns", nil))

	if !a.Equal(b) {
		t.Errorf("unexpected: %v != %v", a, b)
	}
	if a.Equal(c) {
		t.Errorf("unexpected: %v == %v", a, c)
	}
	if a.Equal(nil) {
		t.Errorf("unexpected: %v == nil", a)
	}
}

func TestKey_EncodeDecode(t *testing.T) {
	key := NameKey("Data", "a", "ns", IDKey("Parent", 1, "ns", nil))

	enc := key.Encode()
	dec, err := Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !key.Equal(dec) {
		t.Errorf("unexpected: %v", dec)
	}

	if _, err := Decode("*not-base64*"); err == nil {
		t.Errorf("unexpected: decoded garbage")
	}
}

func TestKey_GobValue(t *testing.T) {
	// keys carried as property values must survive gob payloads
	key := NameKey("Data", "a", "ns", IDKey("Parent", 1, "ns", nil))
	ps := arbor.PropertyList{{Name: "ref", Value: key}}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(ps); err != nil {
		t.Fatal(err)
	}

	var got arbor.PropertyList
	if err := gob.NewDecoder(bytes.NewReader(buf.Bytes())).Decode(&got); err != nil {
		t.Fatal(err)
	}

	v, ok := got.Value("ref")
	if !ok {
		t.Fatal("ref property missing")
	}
	dec, ok := v.(*Key)
	if !ok {
		t.Fatalf("unexpected: %T", v)
	}
	if !key.Equal(dec) {
		t.Errorf("unexpected: %v", dec)
	}
}
