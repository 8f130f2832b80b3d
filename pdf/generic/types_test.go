package generic

import (
	"bytes"
	"testing"
)

func writeString(t *testing.T, obj PdfObject) string {
	t.Helper()
	var buf bytes.Buffer
	if err := obj.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	return buf.String()
}

func TestWriteObjects(t *testing.T) {
	tests := []struct {
		name string
		obj  PdfObject
		want string
	}{
		{"null", NullObject{}, "null"},
		{"true", BooleanObject(true), "true"},
		{"int", IntegerObject(-12), "-12"},
		{"real", RealObject(61.2), "61.2"},
		{"real integral", RealObject(612), "612"},
		{"real rounding", RealObject(1.0 / 3.0), "0.3333"},
		{"name", NameObject("Type"), "/Type"},
		{"name escape", NameObject("A B#"), "/A#20B#23"},
		{"literal", NewLiteralString("a(b)"), `(a\(b\))`},
		{"hex", NewHexString([]byte{0xDE, 0xAD}), "<DEAD>"},
		{"reference", Reference{ObjectNumber: 4, GenerationNumber: 1}, "4 1 R"},
		{"array", ArrayObject{IntegerObject(1), NameObject("X")}, "[1 /X]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := writeString(t, tt.obj); got != tt.want {
				t.Errorf("Write() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatReal(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{-0.00001, "0"},
		{663.2, "663.2"},
		{792 - 0.1*792 - 50, "662.8"},
		{0.1 * 612, "61.2"},
		{-1.5, "-1.5"},
	}
	for _, tt := range tests {
		if got := FormatReal(tt.in); got != tt.want {
			t.Errorf("FormatReal(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDictionaryOrderAndDelete(t *testing.T) {
	d := NewDictionary()
	d.Set("B", IntegerObject(1))
	d.Set("A", IntegerObject(2))
	d.Set("B", IntegerObject(3))
	d.Set("C", nil)

	if got := writeString(t, d); got != "<<\n/B 3\n/A 2\n>>" {
		t.Errorf("Write() = %q", got)
	}

	d.Delete("B")
	if d.Has("B") || d.Len() != 1 {
		t.Errorf("Delete did not remove B: keys %v", d.Keys())
	}
	if n, ok := d.GetNumber("A"); !ok || n != 2 {
		t.Errorf("GetNumber(A) = %v, %v", n, ok)
	}
}

func TestStreamWriteSetsLength(t *testing.T) {
	s := NewStream(nil, []byte("q Q"))
	got := writeString(t, s)
	want := "<<\n/Length 3\n>>\nstream\nq Q\nendstream"
	if got != want {
		t.Errorf("Write() = %q, want %q", got, want)
	}
}

func TestTextString(t *testing.T) {
	for _, in := range []string{"Jane Doe", "Zoë", "日本"} {
		if got := NewTextString(in).Text(); got != in {
			t.Errorf("round trip %q = %q", in, got)
		}
	}
	if v := NewTextString("日").Value; v[0] != 0xFE || v[1] != 0xFF {
		t.Errorf("missing UTF-16BE byte order mark: % X", v)
	}
}

func TestRectangle(t *testing.T) {
	r, err := NewRectangle(ArrayObject{IntegerObject(612), IntegerObject(792), RealObject(0), IntegerObject(0)})
	if err != nil {
		t.Fatalf("NewRectangle failed: %v", err)
	}
	if r.LLX != 0 || r.LLY != 0 || r.Width() != 612 || r.Height() != 792 {
		t.Errorf("rectangle not normalized: %+v", r)
	}

	crop := &Rectangle{LLX: 50, LLY: 50, URX: 700, URY: 700}
	got := r.Intersect(crop)
	if got == nil || got.URX != 612 || got.URY != 700 || got.LLX != 50 {
		t.Errorf("Intersect = %+v", got)
	}
	if r.Intersect(&Rectangle{LLX: 700, LLY: 0, URX: 800, URY: 10}) != nil {
		t.Error("disjoint rectangles should not intersect")
	}

	if _, err := NewRectangle(ArrayObject{IntegerObject(1)}); err == nil {
		t.Error("expected error for short array")
	}
}

func TestCloneIsDeep(t *testing.T) {
	inner := NewDictionary()
	inner.Set("K", IntegerObject(1))
	outer := NewDictionary()
	outer.Set("Inner", inner)
	outer.Set("Arr", ArrayObject{NewLiteralString("x")})

	clone := outer.Clone().(*DictionaryObject)
	clone.GetDict("Inner").Set("K", IntegerObject(2))
	clone.GetArray("Arr")[0].(*StringObject).Value[0] = 'y'

	if v, _ := inner.GetInt("K"); v != 1 {
		t.Error("clone shares nested dictionary")
	}
	if string(outer.GetArray("Arr")[0].(*StringObject).Value) != "x" {
		t.Error("clone shares string bytes")
	}
}
