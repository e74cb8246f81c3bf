package types

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

// TestNewValueConversions tests the explicit, total conversion from Go
// literals into the Value union.
func TestNewValueConversions(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  Value
	}{
		{"nil", nil, NullValue{}},
		{"bool", true, BoolValue(true)},
		{"int", 42, IntegerValue(42)},
		{"negative int", -42, IntegerValue(-42)},
		{"int64 min", int64(math.MinInt64), IntegerValue(math.MinInt64)},
		{"uint32", uint32(7), IntegerValue(7)},
		{"uint64 in range", uint64(math.MaxInt64), IntegerValue(math.MaxInt64)},
		{"float64", 3.5, FloatValue(3.5)},
		{"string", "hello", StringValue("hello")},
		{"bytes", []byte{1, 2, 3}, BytesValue{1, 2, 3}},
		{
			"list",
			[]interface{}{1, "two", 3.0},
			ListValue{IntegerValue(1), StringValue("two"), FloatValue(3.0)},
		},
		{
			"nested list",
			[]interface{}{[]interface{}{1}, []interface{}{2}},
			ListValue{ListValue{IntegerValue(1)}, ListValue{IntegerValue(2)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewValue(tt.input)
			if err != nil {
				t.Fatalf("NewValue(%v) error = %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NewValue(%v) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

// TestNewValueRejectsAmbiguous tests the explicit integer overflow rule:
// unsigned values above the signed 64-bit range are rejected, not wrapped.
func TestNewValueRejectsAmbiguous(t *testing.T) {
	inputs := []interface{}{
		uint64(math.MaxInt64) + 1,
		uint64(math.MaxUint64),
		struct{}{},
		make(chan int),
	}

	for _, input := range inputs {
		if _, err := NewValue(input); err == nil {
			t.Errorf("NewValue(%v) expected error, got nil", input)
		} else if !errors.Is(err, ErrValue) {
			t.Errorf("NewValue(%v) error = %v, want ErrValue", input, err)
		}
	}
}

// TestOrderedMapSorting tests the ordered-map invariant: inserting keys
// out of order into a key-ordered map yields sorted iteration order.
func TestOrderedMapSorting(t *testing.T) {
	entries := []MapPair{
		{Key: StringValue("cherry"), Value: IntegerValue(3)},
		{Key: StringValue("apple"), Value: IntegerValue(1)},
		{Key: StringValue("banana"), Value: IntegerValue(2)},
	}

	m := NewMapValue(entries, MapKeyOrdered)

	wantOrder := []string{"apple", "banana", "cherry"}
	for i, e := range m.Entries {
		if string(e.Key.(StringValue)) != wantOrder[i] {
			t.Errorf("entry %d key = %v, want %v", i, e.Key, wantOrder[i])
		}
	}

	// unordered maps keep the given entry order
	u := NewMapValue(entries, MapUnordered)
	if string(u.Entries[0].Key.(StringValue)) != "cherry" {
		t.Errorf("unordered map reordered entries: %v", u.Entries)
	}

	// source slice must not be mutated
	if string(entries[0].Key.(StringValue)) != "cherry" {
		t.Errorf("NewMapValue mutated its input")
	}
}

// TestMapGet tests lookups against the canonical ordering.
func TestMapGet(t *testing.T) {
	m := NewMapValue([]MapPair{
		{Key: IntegerValue(1), Value: StringValue("one")},
		{Key: StringValue("1"), Value: StringValue("string one")},
	}, MapKeyOrdered)

	v, ok := m.Get(IntegerValue(1))
	if !ok || v.(StringValue) != "one" {
		t.Errorf("Get(1) = %v, %v", v, ok)
	}
	v, ok = m.Get(StringValue("1"))
	if !ok || v.(StringValue) != "string one" {
		t.Errorf("Get(\"1\") = %v, %v", v, ok)
	}
	if _, ok = m.Get(IntegerValue(2)); ok {
		t.Errorf("Get(2) unexpectedly found a value")
	}
}

// TestCompare tests the canonical total ordering.
func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want int
	}{
		{"equal ints", IntegerValue(5), IntegerValue(5), 0},
		{"int less", IntegerValue(1), IntegerValue(2), -1},
		{"string order", StringValue("a"), StringValue("b"), -1},
		{"nil before bool", NullValue{}, BoolValue(false), -1},
		{"bool before int", BoolValue(true), IntegerValue(0), -1},
		{"int before string", IntegerValue(999), StringValue(""), -1},
		{"string before list", StringValue("zzz"), ListValue{}, -1},
		{"list before map", ListValue{IntegerValue(1)}, MapValue{}, -1},
		{"map before bytes", MapValue{}, BytesValue{0}, -1},
		{"bytes before float", BytesValue{0xff}, FloatValue(-1), -1},
		{"list elementwise", ListValue{IntegerValue(1), IntegerValue(2)}, ListValue{IntegerValue(1), IntegerValue(3)}, -1},
		{"list prefix shorter", ListValue{IntegerValue(1)}, ListValue{IntegerValue(1), IntegerValue(0)}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compare(tt.a, tt.b)
			if sign(got) != tt.want {
				t.Errorf("Compare(%v, %v) = %d, want sign %d", tt.a, tt.b, got, tt.want)
			}
			if tt.want != 0 {
				if rev := Compare(tt.b, tt.a); sign(rev) != -tt.want {
					t.Errorf("Compare(%v, %v) = %d, want sign %d", tt.b, tt.a, rev, -tt.want)
				}
			}
		})
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
