package codec

import (
	"bytes"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/ValentinKolb/aspike/lib/types"
)

// roundTripValues returns one value per supported variant, including
// collections nested four levels deep.
func roundTripValues() map[string]types.Value {
	deepList := types.ListValue{
		types.ListValue{
			types.MapValue{
				Entries: []types.MapPair{
					{Key: types.StringValue("level3"), Value: types.ListValue{
						types.IntegerValue(4),
						types.StringValue("four levels down"),
					}},
				},
			},
		},
	}

	return map[string]types.Value{
		"Nil":         types.NullValue{},
		"BoolTrue":    types.BoolValue(true),
		"BoolFalse":   types.BoolValue(false),
		"IntZero":     types.IntegerValue(0),
		"IntSmall":    types.IntegerValue(42),
		"IntFixNeg":   types.IntegerValue(-17),
		"Int16":       types.IntegerValue(4000),
		"Int32":       types.IntegerValue(1 << 20),
		"IntMax":      types.IntegerValue(math.MaxInt64),
		"IntMin":      types.IntegerValue(math.MinInt64),
		"Float":       types.FloatValue(3.14159),
		"FloatNeg":    types.FloatValue(-0.5),
		"StringEmpty": types.StringValue(""),
		"String":      types.StringValue("hello, wire"),
		"StringLong":  types.StringValue(string(make([]byte, 300))),
		"Bytes":       types.BytesValue{0x00, 0x01, 0xfe, 0xff},
		"GeoJSON":     types.GeoJSONValue(`{"type":"Point","coordinates":[1.5,2.5]}`),
		"HLL":         types.HLLValue{0x0a, 0x0b, 0x0c},
		"List": types.ListValue{
			types.IntegerValue(1),
			types.StringValue("two"),
			types.FloatValue(3.0),
			types.NullValue{},
		},
		"DeepList": deepList,
		"UnorderedMap": types.MapValue{
			Entries: []types.MapPair{
				{Key: types.StringValue("a"), Value: types.IntegerValue(1)},
				{Key: types.IntegerValue(2), Value: types.ListValue{types.BoolValue(true)}},
			},
		},
		"KeyOrderedMap": types.NewMapValue([]types.MapPair{
			{Key: types.StringValue("cherry"), Value: types.IntegerValue(3)},
			{Key: types.StringValue("apple"), Value: types.IntegerValue(1)},
			{Key: types.StringValue("banana"), Value: types.IntegerValue(2)},
		}, types.MapKeyOrdered),
		"KeyValueOrderedMap": types.NewMapValue([]types.MapPair{
			{Key: types.IntegerValue(9), Value: types.StringValue("nine")},
			{Key: types.IntegerValue(1), Value: types.StringValue("one")},
		}, types.MapKeyValueOrdered),
	}
}

// TestPackedRoundTrip tests decode(encode(V)) == V for every supported
// variant.
func TestPackedRoundTrip(t *testing.T) {
	for name, val := range roundTripValues() {
		t.Run(name, func(t *testing.T) {
			packed, err := PackedValue(val)
			if err != nil {
				t.Fatalf("PackedValue() error = %v", err)
			}

			got, err := UnpackedValue(packed)
			if err != nil {
				t.Fatalf("UnpackedValue() error = %v", err)
			}

			if !reflect.DeepEqual(got, val) {
				t.Errorf("round trip = %#v, want %#v", got, val)
			}
		})
	}
}

// TestParticleRoundTrip tests the fixed-width particle path used for
// top-level bin values.
func TestParticleRoundTrip(t *testing.T) {
	for name, val := range roundTripValues() {
		if _, ok := val.(types.NullValue); ok {
			continue // nil bins are never returned by the server
		}
		t.Run(name, func(t *testing.T) {
			ptype, data, err := EncodeParticle(val)
			if err != nil {
				t.Fatalf("EncodeParticle() error = %v", err)
			}
			if ptype != val.Type() {
				t.Errorf("particle type = %v, want %v", ptype, val.Type())
			}

			got, err := DecodeParticle(ptype, data)
			if err != nil {
				t.Fatalf("DecodeParticle() error = %v", err)
			}
			if !reflect.DeepEqual(got, val) {
				t.Errorf("round trip = %#v, want %#v", got, val)
			}
		})
	}
}

// TestIntegerParticleWidth tests the fixed 8-byte big-endian form.
func TestIntegerParticleWidth(t *testing.T) {
	_, data, err := EncodeParticle(types.IntegerValue(1))
	if err != nil {
		t.Fatalf("EncodeParticle() error = %v", err)
	}
	want := []byte{0, 0, 0, 0, 0, 0, 0, 1}
	if !bytes.Equal(data, want) {
		t.Errorf("integer particle = %x, want %x", data, want)
	}
}

// TestStringTagByte tests that packed strings carry the particle tag as
// the first payload byte and that the declared length includes it.
func TestStringTagByte(t *testing.T) {
	packed, err := PackedValue(types.StringValue("ab"))
	if err != nil {
		t.Fatalf("PackedValue() error = %v", err)
	}
	want := []byte{0xa0 | 3, byte(types.ParticleString), 'a', 'b'}
	if !bytes.Equal(packed, want) {
		t.Errorf("packed string = %x, want %x", packed, want)
	}
}

// TestOrderedMapWire tests the ordered-map marker pair and sorted entry
// order on the wire.
func TestOrderedMapWire(t *testing.T) {
	m := types.NewMapValue([]types.MapPair{
		{Key: types.StringValue("b"), Value: types.IntegerValue(2)},
		{Key: types.StringValue("a"), Value: types.IntegerValue(1)},
	}, types.MapKeyOrdered)

	packed, err := PackedValue(m)
	if err != nil {
		t.Fatalf("PackedValue() error = %v", err)
	}

	want := []byte{
		0x80 | 3, // map header: 2 entries + marker pair
		0xc7, 0x00, 0x01, 0xc0, // ext(len 0, flags K_ORDERED), nil
		0xa0 | 2, byte(types.ParticleString), 'a', 0x01,
		0xa0 | 2, byte(types.ParticleString), 'b', 0x02,
	}
	if !bytes.Equal(packed, want) {
		t.Errorf("packed ordered map = %x, want %x", packed, want)
	}

	got, err := UnpackedValue(packed)
	if err != nil {
		t.Fatalf("UnpackedValue() error = %v", err)
	}
	gm := got.(types.MapValue)
	if gm.Order != types.MapKeyOrdered {
		t.Errorf("decoded order = %d, want KeyOrdered", gm.Order)
	}
	if !reflect.DeepEqual(gm, m) {
		t.Errorf("round trip = %#v, want %#v", gm, m)
	}
}

// TestUnorderedMapSetEquality tests that unordered maps round-trip with
// set-equality of entries (no ordering guarantee asserted).
func TestUnorderedMapSetEquality(t *testing.T) {
	m := types.MapValue{Entries: []types.MapPair{
		{Key: types.StringValue("cherry"), Value: types.IntegerValue(3)},
		{Key: types.StringValue("apple"), Value: types.IntegerValue(1)},
		{Key: types.StringValue("banana"), Value: types.IntegerValue(2)},
	}}

	packed, err := PackedValue(m)
	if err != nil {
		t.Fatalf("PackedValue() error = %v", err)
	}
	got, err := UnpackedValue(packed)
	if err != nil {
		t.Fatalf("UnpackedValue() error = %v", err)
	}

	gm := got.(types.MapValue)
	if len(gm.Entries) != len(m.Entries) {
		t.Fatalf("entry count = %d, want %d", len(gm.Entries), len(m.Entries))
	}
	for _, e := range m.Entries {
		v, ok := gm.Get(e.Key)
		if !ok || types.Compare(v, e.Value) != 0 {
			t.Errorf("entry %v missing or changed after round trip", e.Key)
		}
	}
}

// TestUnpackErrors tests that malformed input fails loudly instead of
// being read past.
func TestUnpackErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want *types.Error
	}{
		{"empty input", []byte{}, types.ErrBadResponse},
		{"reserved marker", []byte{0xc1}, types.ErrBadResponse},
		{"truncated string", []byte{0xa0 | 5, byte(types.ParticleString), 'a'}, types.ErrBadResponse},
		{"truncated int", []byte{0xd3, 0x00, 0x01}, types.ErrBadResponse},
		{"truncated array", []byte{0x90 | 2, 0x01}, types.ErrBadResponse},
		{"arr32 length overrun", []byte{0xdd, 0xff, 0xff, 0xff, 0xff}, types.ErrBadResponse},
		{"map32 length overrun", []byte{0xdf, 0xff, 0xff, 0xff, 0xff}, types.ErrBadResponse},
		{"map16 length overrun", []byte{0xde, 0xff, 0xff, 0x01, 0x02}, types.ErrBadResponse},
		{"bad particle tag", []byte{0xa0 | 2, 0x7f, 'x'}, types.ErrBadResponse},
		{"invalid utf8 string", []byte{0xa0 | 3, byte(types.ParticleString), 0xff, 0xfe}, types.ErrInvalidUTF8},
		{"uint64 overflow", []byte{0xcf, 0x80, 0, 0, 0, 0, 0, 0, 0}, types.ErrValue},
		{"trailing bytes", []byte{0x01, 0x02}, types.ErrBadResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnpackedValue(tt.data)
			if err == nil {
				t.Fatalf("UnpackedValue(%x) expected error", tt.data)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want kind %v", err, tt.want.Kind)
			}
		})
	}
}
