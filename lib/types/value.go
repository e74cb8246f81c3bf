package types

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// --------------------------------------------------------------------------
// Value Interface
// --------------------------------------------------------------------------

// Value is the closed tagged union over every particle type the server
// understands. Exactly one concrete type exists per variant; all variants
// are immutable value objects.
type Value interface {
	// Type returns the wire-level particle type of this value.
	Type() ParticleType
	// GoValue converts the value back into a plain Go representation.
	// Note that converting a key-ordered map into a Go map loses the
	// ordering guarantee; re-apply a MapOrder on write if it matters.
	GoValue() interface{}
	// String returns a human-readable representation.
	String() string
}

// --------------------------------------------------------------------------
// Concrete Variants
// --------------------------------------------------------------------------

// NullValue represents the absence of a value inside a collection. Nil bins
// are never returned by the server; NullValue only occurs as a collection
// element or CDT argument.
type NullValue struct{}

func (NullValue) Type() ParticleType   { return ParticleNull }
func (NullValue) GoValue() interface{} { return nil }
func (NullValue) String() string       { return "<nil>" }

// BoolValue wraps a boolean.
type BoolValue bool

func (b BoolValue) Type() ParticleType   { return ParticleBool }
func (b BoolValue) GoValue() interface{} { return bool(b) }
func (b BoolValue) String() string       { return strconv.FormatBool(bool(b)) }

// IntegerValue wraps a signed 64-bit integer.
type IntegerValue int64

func (i IntegerValue) Type() ParticleType   { return ParticleInteger }
func (i IntegerValue) GoValue() interface{} { return int64(i) }
func (i IntegerValue) String() string       { return strconv.FormatInt(int64(i), 10) }

// FloatValue wraps a 64-bit float.
type FloatValue float64

func (f FloatValue) Type() ParticleType   { return ParticleFloat }
func (f FloatValue) GoValue() interface{} { return float64(f) }
func (f FloatValue) String() string       { return strconv.FormatFloat(float64(f), 'g', -1, 64) }

// StringValue wraps a UTF-8 string.
type StringValue string

func (s StringValue) Type() ParticleType   { return ParticleString }
func (s StringValue) GoValue() interface{} { return string(s) }
func (s StringValue) String() string       { return string(s) }

// BytesValue wraps an opaque byte blob.
type BytesValue []byte

func (b BytesValue) Type() ParticleType   { return ParticleBlob }
func (b BytesValue) GoValue() interface{} { return []byte(b) }
func (b BytesValue) String() string       { return fmt.Sprintf("%X", []byte(b)) }

// GeoJSONValue wraps a GeoJSON document in its string form.
type GeoJSONValue string

func (g GeoJSONValue) Type() ParticleType   { return ParticleGeoJSON }
func (g GeoJSONValue) GoValue() interface{} { return string(g) }
func (g GeoJSONValue) String() string       { return string(g) }

// HLLValue wraps a HyperLogLog registers blob as returned by the server.
type HLLValue []byte

func (h HLLValue) Type() ParticleType   { return ParticleHLL }
func (h HLLValue) GoValue() interface{} { return []byte(h) }
func (h HLLValue) String() string       { return fmt.Sprintf("HLL(%d bytes)", len(h)) }

// ListValue wraps an ordered sequence of values.
type ListValue []Value

func (l ListValue) Type() ParticleType { return ParticleList }

func (l ListValue) GoValue() interface{} {
	out := make([]interface{}, len(l))
	for i, v := range l {
		out[i] = v.GoValue()
	}
	return out
}

func (l ListValue) String() string { return fmt.Sprintf("%v", []Value(l)) }

// MapPair is a single key-value entry of a MapValue.
type MapPair struct {
	Key   Value
	Value Value
}

// MapValue wraps a map as an explicit ordered association list plus a
// declared MapOrder. The entry slice - not any Go map iteration order - is
// the source of truth for serialization, so key-ordered maps round-trip
// byte-for-byte.
type MapValue struct {
	Entries []MapPair
	Order   MapOrder
}

func (m MapValue) Type() ParticleType { return ParticleMap }

func (m MapValue) GoValue() interface{} {
	out := make(map[interface{}]interface{}, len(m.Entries))
	for _, e := range m.Entries {
		out[e.Key.GoValue()] = e.Value.GoValue()
	}
	return out
}

func (m MapValue) String() string { return fmt.Sprintf("%v(order=%d)", m.Entries, m.Order) }

// Get returns the value stored under key, if any.
func (m MapValue) Get(key Value) (Value, bool) {
	for _, e := range m.Entries {
		if Compare(e.Key, key) == 0 {
			return e.Value, true
		}
	}
	return nil, false
}

// --------------------------------------------------------------------------
// Constructors
// --------------------------------------------------------------------------

// NewMapValue builds a MapValue from entries. Entries of key-ordered and
// key-value-ordered maps are sorted by the canonical key ordering so the
// in-memory form matches what the server returns.
func NewMapValue(entries []MapPair, order MapOrder) MapValue {
	cp := make([]MapPair, len(entries))
	copy(cp, entries)
	if order.Sorted() {
		sort.SliceStable(cp, func(i, j int) bool {
			return Compare(cp[i].Key, cp[j].Key) < 0
		})
	}
	return MapValue{Entries: cp, Order: order}
}

// NewValue converts a Go literal into a Value. The conversion is total over
// the supported input types and rejects everything else - including uint64
// values above the signed 64-bit range, which the wire cannot represent
// (no silent wraparound).
func NewValue(v interface{}) (Value, error) {
	switch val := v.(type) {
	case nil:
		return NullValue{}, nil
	case Value:
		return val, nil
	case bool:
		return BoolValue(val), nil
	case int:
		return IntegerValue(val), nil
	case int8:
		return IntegerValue(val), nil
	case int16:
		return IntegerValue(val), nil
	case int32:
		return IntegerValue(val), nil
	case int64:
		return IntegerValue(val), nil
	case uint:
		if uint64(val) > math.MaxInt64 {
			return nil, NewErrorf(ErrValue, "unsigned value %d exceeds signed 64-bit range", val)
		}
		return IntegerValue(val), nil
	case uint8:
		return IntegerValue(val), nil
	case uint16:
		return IntegerValue(val), nil
	case uint32:
		return IntegerValue(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, NewErrorf(ErrValue, "unsigned value %d exceeds signed 64-bit range", val)
		}
		return IntegerValue(val), nil
	case float32:
		return FloatValue(val), nil
	case float64:
		return FloatValue(val), nil
	case string:
		return StringValue(val), nil
	case []byte:
		return BytesValue(val), nil
	case []Value:
		return ListValue(val), nil
	case []interface{}:
		list := make(ListValue, len(val))
		for i, item := range val {
			conv, err := NewValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = conv
		}
		return list, nil
	case map[string]interface{}:
		entries := make([]MapPair, 0, len(val))
		for k, item := range val {
			conv, err := NewValue(item)
			if err != nil {
				return nil, err
			}
			entries = append(entries, MapPair{Key: StringValue(k), Value: conv})
		}
		// sort for determinism - Go map iteration order is random
		sort.SliceStable(entries, func(i, j int) bool {
			return Compare(entries[i].Key, entries[j].Key) < 0
		})
		return MapValue{Entries: entries, Order: MapUnordered}, nil
	case map[interface{}]interface{}:
		entries := make([]MapPair, 0, len(val))
		for k, item := range val {
			ck, err := NewValue(k)
			if err != nil {
				return nil, err
			}
			cv, err := NewValue(item)
			if err != nil {
				return nil, err
			}
			entries = append(entries, MapPair{Key: ck, Value: cv})
		}
		sort.SliceStable(entries, func(i, j int) bool {
			return Compare(entries[i].Key, entries[j].Key) < 0
		})
		return MapValue{Entries: entries, Order: MapUnordered}, nil
	default:
		return nil, NewErrorf(ErrValue, "unsupported value type %T", v)
	}
}

// MustValue is NewValue that panics on unsupported input. Intended for
// literals in tests and examples.
func MustValue(v interface{}) Value {
	val, err := NewValue(v)
	if err != nil {
		panic(err)
	}
	return val
}

// --------------------------------------------------------------------------
// Canonical Ordering
// --------------------------------------------------------------------------

// typeRank returns the cross-type sort rank used by the server when
// ordering mixed-type keys.
func typeRank(v Value) int {
	switch v.Type() {
	case ParticleNull:
		return 0
	case ParticleBool:
		return 1
	case ParticleInteger:
		return 2
	case ParticleString:
		return 3
	case ParticleList:
		return 4
	case ParticleMap:
		return 5
	case ParticleBlob:
		return 6
	case ParticleFloat:
		return 7
	case ParticleGeoJSON:
		return 8
	default:
		return 9
	}
}

// Compare defines the one canonical, total ordering over values: first by
// type rank, then by natural ordering within a type. This single rule is
// what map sorting, rank operations and context lookups rely on - it must
// never diverge between call sites.
func Compare(a, b Value) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch av := a.(type) {
	case NullValue:
		return 0
	case BoolValue:
		bv := b.(BoolValue)
		switch {
		case av == bv:
			return 0
		case !bool(av):
			return -1
		default:
			return 1
		}
	case IntegerValue:
		bv := b.(IntegerValue)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case FloatValue:
		bv := b.(FloatValue)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case StringValue:
		return bytes.Compare([]byte(av), []byte(b.(StringValue)))
	case GeoJSONValue:
		return bytes.Compare([]byte(av), []byte(b.(GeoJSONValue)))
	case BytesValue:
		return bytes.Compare(av, b.(BytesValue))
	case HLLValue:
		return bytes.Compare(av, b.(HLLValue))
	case ListValue:
		bv := b.(ListValue)
		n := len(av)
		if len(bv) < n {
			n = len(bv)
		}
		for i := 0; i < n; i++ {
			if c := Compare(av[i], bv[i]); c != 0 {
				return c
			}
		}
		return len(av) - len(bv)
	case MapValue:
		bv := b.(MapValue)
		n := len(av.Entries)
		if len(bv.Entries) < n {
			n = len(bv.Entries)
		}
		for i := 0; i < n; i++ {
			if c := Compare(av.Entries[i].Key, bv.Entries[i].Key); c != 0 {
				return c
			}
			if c := Compare(av.Entries[i].Value, bv.Entries[i].Value); c != 0 {
				return c
			}
		}
		return len(av.Entries) - len(bv.Entries)
	default:
		return 0
	}
}
