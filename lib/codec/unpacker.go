package codec

import (
	"math"
	"unicode/utf8"

	"github.com/ValentinKolb/aspike/lib/types"
)

// Unpacker reads the packed wire dialect back into values. It never reads
// past the end of its input: any truncation surfaces as a BadResponse
// error.
type Unpacker struct {
	data   []byte
	offset int
}

// NewUnpacker creates an unpacker over data. The slice is not copied.
func NewUnpacker(data []byte) *Unpacker {
	return &Unpacker{data: data}
}

// Remaining returns the number of unread bytes.
func (u *Unpacker) Remaining() int { return len(u.data) - u.offset }

// UnpackValue reads the next value.
func (u *Unpacker) UnpackValue() (types.Value, error) {
	marker, err := u.readByte()
	if err != nil {
		return nil, err
	}

	switch {
	case marker < 0x80: // positive fixint
		return types.IntegerValue(marker), nil
	case marker >= 0xe0: // negative fixint
		return types.IntegerValue(int8(marker)), nil
	case marker&0xf0 == 0x80: // fixmap
		return u.unpackMap(int(marker & 0x0f))
	case marker&0xf0 == 0x90: // fixarray
		return u.unpackList(int(marker & 0x0f))
	case marker&0xe0 == 0xa0: // fixstr
		return u.unpackTagged(int(marker & 0x1f))
	}

	switch marker {
	case markNil:
		return types.NullValue{}, nil
	case markFalse:
		return types.BoolValue(false), nil
	case markTrue:
		return types.BoolValue(true), nil
	case markFloat64:
		raw, err := u.readUint(8)
		if err != nil {
			return nil, err
		}
		return types.FloatValue(math.Float64frombits(raw)), nil
	case 0xca: // float32
		raw, err := u.readUint(4)
		if err != nil {
			return nil, err
		}
		return types.FloatValue(math.Float32frombits(uint32(raw))), nil
	case markUint8, markUint16, markUint32, markUint64:
		width := 1 << (marker - markUint8)
		raw, err := u.readUint(width)
		if err != nil {
			return nil, err
		}
		if raw > math.MaxInt64 {
			// same rule as the encode side: no silent wraparound
			return nil, types.NewErrorf(types.ErrValue,
				"unsigned value %d exceeds signed 64-bit range", raw)
		}
		return types.IntegerValue(raw), nil
	case markInt8:
		raw, err := u.readUint(1)
		if err != nil {
			return nil, err
		}
		return types.IntegerValue(int8(raw)), nil
	case markInt16:
		raw, err := u.readUint(2)
		if err != nil {
			return nil, err
		}
		return types.IntegerValue(int16(raw)), nil
	case markInt32:
		raw, err := u.readUint(4)
		if err != nil {
			return nil, err
		}
		return types.IntegerValue(int32(raw)), nil
	case markInt64:
		raw, err := u.readUint(8)
		if err != nil {
			return nil, err
		}
		return types.IntegerValue(raw), nil
	case markStr8, markBin8:
		n, err := u.readUint(1)
		if err != nil {
			return nil, err
		}
		return u.unpackTagged(int(n))
	case markStr16, markBin16:
		n, err := u.readUint(2)
		if err != nil {
			return nil, err
		}
		return u.unpackTagged(int(n))
	case markStr32, markBin32:
		n, err := u.readUint(4)
		if err != nil {
			return nil, err
		}
		return u.unpackTagged(int(n))
	case markArr16:
		n, err := u.readUint(2)
		if err != nil {
			return nil, err
		}
		return u.unpackList(int(n))
	case markArr32:
		n, err := u.readUint(4)
		if err != nil {
			return nil, err
		}
		return u.unpackList(int(n))
	case markMap16:
		n, err := u.readUint(2)
		if err != nil {
			return nil, err
		}
		return u.unpackMap(int(n))
	case markMap32:
		n, err := u.readUint(4)
		if err != nil {
			return nil, err
		}
		return u.unpackMap(int(n))
	default:
		return nil, types.NewErrorf(types.ErrBadResponse,
			"unrecognized pack type 0x%02x at offset %d", marker, u.offset-1)
	}
}

// unpackTagged reads n payload bytes whose first byte is the particle tag.
func (u *Unpacker) unpackTagged(n int) (types.Value, error) {
	if n == 0 {
		return types.StringValue(""), nil
	}
	payload, err := u.readBytes(n)
	if err != nil {
		return nil, err
	}

	tag := types.ParticleType(payload[0])
	data := payload[1:]

	switch tag {
	case types.ParticleString:
		if !utf8.Valid(data) {
			return nil, types.NewError(types.ErrInvalidUTF8,
				"string payload is not valid UTF-8")
		}
		return types.StringValue(data), nil
	case types.ParticleBlob:
		cp := make([]byte, len(data))
		copy(cp, data)
		return types.BytesValue(cp), nil
	case types.ParticleGeoJSON:
		return types.GeoJSONValue(data), nil
	case types.ParticleHLL:
		cp := make([]byte, len(data))
		copy(cp, data)
		return types.HLLValue(cp), nil
	default:
		return nil, types.NewErrorf(types.ErrBadResponse,
			"unrecognized particle tag %d in packed payload", tag)
	}
}

func (u *Unpacker) unpackList(n int) (types.Value, error) {
	// every element takes at least one byte, so a header declaring more
	// elements than there are bytes left is corrupt - checked before the
	// allocation, not after
	if n > u.Remaining() {
		return nil, types.NewErrorf(types.ErrBadResponse,
			"list header declares %d elements with %d bytes remaining", n, u.Remaining())
	}
	list := make(types.ListValue, 0, n)
	for i := 0; i < n; i++ {
		v, err := u.UnpackValue()
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, nil
}

func (u *Unpacker) unpackMap(n int) (types.Value, error) {
	// each entry is a key and a value, two bytes minimum
	if n > u.Remaining()/2 {
		return nil, types.NewErrorf(types.ErrBadResponse,
			"map header declares %d entries with %d bytes remaining", n, u.Remaining())
	}

	order := types.MapUnordered
	entries := make([]types.MapPair, 0, n)

	for i := 0; i < n; i++ {
		if i == 0 {
			// ordered maps lead with an (ext(flags), nil) marker pair
			if flags, ok, err := u.tryUnpackExtFlags(); err != nil {
				return nil, err
			} else if ok {
				switch flags & mapFlagKeyValueOrdered {
				case mapFlagKeyValueOrdered:
					order = types.MapKeyValueOrdered
				case mapFlagKeyOrdered:
					order = types.MapKeyOrdered
				}
				continue
			}
		}

		k, err := u.UnpackValue()
		if err != nil {
			return nil, err
		}
		v, err := u.UnpackValue()
		if err != nil {
			return nil, err
		}
		entries = append(entries, types.MapPair{Key: k, Value: v})
	}

	return types.MapValue{Entries: entries, Order: order}, nil
}

// tryUnpackExtFlags consumes an (ext, nil) marker pair if one is next and
// returns its flag byte. Both the ext8 and fixext1 encodings occur.
func (u *Unpacker) tryUnpackExtFlags() (byte, bool, error) {
	if u.Remaining() < 1 {
		return 0, false, u.truncated("ext marker")
	}

	var flags byte
	switch u.data[u.offset] {
	case markExt8:
		// c7 <len> <type=flags> - ordered-map markers carry len 0
		if u.Remaining() < 3 {
			return 0, false, u.truncated("ext8 marker")
		}
		if u.data[u.offset+1] != 0 {
			return 0, false, nil
		}
		flags = u.data[u.offset+2]
		u.offset += 3
	case markFixExt1:
		// d4 <type=flags> <data>
		if u.Remaining() < 3 {
			return 0, false, u.truncated("fixext1 marker")
		}
		flags = u.data[u.offset+1]
		u.offset += 3
	default:
		return 0, false, nil
	}

	// the marker's value slot is a nil
	if b, err := u.readByte(); err != nil {
		return 0, false, err
	} else if b != markNil {
		return 0, false, types.NewErrorf(types.ErrBadResponse,
			"ordered-map marker followed by 0x%02x, want nil", b)
	}
	return flags, true, nil
}

func (u *Unpacker) readByte() (byte, error) {
	if u.offset >= len(u.data) {
		return 0, u.truncated("type marker")
	}
	b := u.data[u.offset]
	u.offset++
	return b, nil
}

func (u *Unpacker) readBytes(n int) ([]byte, error) {
	if n < 0 || u.offset+n > len(u.data) {
		return nil, u.truncated("payload")
	}
	b := u.data[u.offset : u.offset+n]
	u.offset += n
	return b, nil
}

func (u *Unpacker) readUint(width int) (uint64, error) {
	b, err := u.readBytes(width)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, by := range b {
		v = v<<8 | uint64(by)
	}
	return v, nil
}

func (u *Unpacker) truncated(what string) error {
	return types.NewErrorf(types.ErrBadResponse,
		"truncated packed data reading %s at offset %d", what, u.offset)
}

// UnpackedValue unpacks a single value from data, requiring that all input
// is consumed.
func UnpackedValue(data []byte) (types.Value, error) {
	u := NewUnpacker(data)
	v, err := u.UnpackValue()
	if err != nil {
		return nil, err
	}
	if u.Remaining() != 0 {
		return nil, types.NewErrorf(types.ErrBadResponse,
			"%d trailing bytes after packed value", u.Remaining())
	}
	return v, nil
}
