package codec

import (
	"encoding/binary"
	"math"

	"github.com/ValentinKolb/aspike/lib/types"
)

// Msgpack-family type markers used by the dialect.
const (
	markNil     = 0xc0
	markFalse   = 0xc2
	markTrue    = 0xc3
	markBin8    = 0xc4
	markBin16   = 0xc5
	markBin32   = 0xc6
	markExt8    = 0xc7
	markFloat64 = 0xcb
	markUint8   = 0xcc
	markUint16  = 0xcd
	markUint32  = 0xce
	markUint64  = 0xcf
	markInt8    = 0xd0
	markInt16   = 0xd1
	markInt32   = 0xd2
	markInt64   = 0xd3
	markFixExt1 = 0xd4
	markStr8    = 0xd9
	markStr16   = 0xda
	markStr32   = 0xdb
	markArr16   = 0xdc
	markArr32   = 0xdd
	markMap16   = 0xde
	markMap32   = 0xdf
)

// Map-order flag bits carried in the ext marker pair of ordered maps.
const (
	mapFlagKeyOrdered      = 0x01
	mapFlagValueOrdered    = 0x02
	mapFlagKeyValueOrdered = mapFlagKeyOrdered | mapFlagValueOrdered
)

// Packer writes values in the packed wire dialect. The zero value is ready
// to use; Bytes returns the accumulated output.
type Packer struct {
	buf []byte
}

// NewPacker creates an empty packer.
func NewPacker() *Packer {
	return &Packer{}
}

// Bytes returns the packed output. The slice aliases the packer's internal
// buffer and is only valid until the next Pack call.
func (p *Packer) Bytes() []byte { return p.buf }

// Len returns the number of bytes written so far.
func (p *Packer) Len() int { return len(p.buf) }

// PackValue appends the packed representation of v.
func (p *Packer) PackValue(v types.Value) error {
	switch val := v.(type) {
	case types.NullValue:
		p.writeByte(markNil)
	case types.BoolValue:
		if val {
			p.writeByte(markTrue)
		} else {
			p.writeByte(markFalse)
		}
	case types.IntegerValue:
		p.PackInt64(int64(val))
	case types.FloatValue:
		p.writeByte(markFloat64)
		p.writeUint64(math.Float64bits(float64(val)))
	case types.StringValue:
		p.packTagged(byte(types.ParticleString), []byte(val))
	case types.BytesValue:
		p.packTagged(byte(types.ParticleBlob), val)
	case types.GeoJSONValue:
		p.packTagged(byte(types.ParticleGeoJSON), []byte(val))
	case types.HLLValue:
		p.packTagged(byte(types.ParticleHLL), val)
	case types.ListValue:
		p.PackArrayHeader(len(val))
		for _, item := range val {
			if err := p.PackValue(item); err != nil {
				return err
			}
		}
	case types.MapValue:
		return p.packMap(val)
	default:
		return types.NewErrorf(types.ErrValue, "cannot pack value of type %T", v)
	}
	return nil
}

// PackInt64 appends an integer using the smallest encoding that holds it.
func (p *Packer) PackInt64(v int64) {
	switch {
	case v >= 0:
		switch {
		case v < 128:
			p.writeByte(byte(v)) // positive fixint
		case v < 256:
			p.writeByte(markUint8)
			p.writeByte(byte(v))
		case v < 65536:
			p.writeByte(markUint16)
			p.writeUint16(uint16(v))
		case v < 4294967296:
			p.writeByte(markUint32)
			p.writeUint32(uint32(v))
		default:
			p.writeByte(markInt64)
			p.writeUint64(uint64(v))
		}
	case v >= -32:
		p.writeByte(0xe0 | byte(v+32)) // negative fixint
	case v >= math.MinInt8:
		p.writeByte(markInt8)
		p.writeByte(byte(v))
	case v >= math.MinInt16:
		p.writeByte(markInt16)
		p.writeUint16(uint16(v))
	case v >= math.MinInt32:
		p.writeByte(markInt32)
		p.writeUint32(uint32(v))
	default:
		p.writeByte(markInt64)
		p.writeUint64(uint64(v))
	}
}

// PackArrayHeader appends an array header for n elements.
func (p *Packer) PackArrayHeader(n int) {
	switch {
	case n < 16:
		p.writeByte(0x90 | byte(n))
	case n < 65536:
		p.writeByte(markArr16)
		p.writeUint16(uint16(n))
	default:
		p.writeByte(markArr32)
		p.writeUint32(uint32(n))
	}
}

// PackMapHeader appends a map header for n entries.
func (p *Packer) PackMapHeader(n int) {
	switch {
	case n < 16:
		p.writeByte(0x80 | byte(n))
	case n < 65536:
		p.writeByte(markMap16)
		p.writeUint16(uint16(n))
	default:
		p.writeByte(markMap32)
		p.writeUint32(uint32(n))
	}
}

// PackRawUint16 appends two raw big-endian bytes. CDT sub-commands start
// with their opcode in this form when no context block is present.
func (p *Packer) PackRawUint16(v uint16) {
	p.writeUint16(v)
}

// PackRawBytes appends bytes verbatim, without any header.
func (p *Packer) PackRawBytes(b []byte) {
	p.buf = append(p.buf, b...)
}

// packMap appends a map, emitting the ordered-map marker pair when the
// declared order requires sorted serialization.
func (p *Packer) packMap(m types.MapValue) error {
	entries := m.Entries
	if m.Order.Sorted() {
		// NewMapValue keeps ordered maps sorted, but entries assembled by
		// hand may not be - re-sorting here keeps the wire bytes canonical.
		entries = sortedEntries(entries)

		p.PackMapHeader(len(entries) + 1)
		flags := byte(mapFlagKeyOrdered)
		if m.Order == types.MapKeyValueOrdered {
			flags = mapFlagKeyValueOrdered
		}
		p.writeByte(markExt8)
		p.writeByte(0) // ext payload length
		p.writeByte(flags)
		p.writeByte(markNil)
	} else {
		p.PackMapHeader(len(entries))
	}

	for _, e := range entries {
		if err := p.PackValue(e.Key); err != nil {
			return err
		}
		if err := p.PackValue(e.Value); err != nil {
			return err
		}
	}
	return nil
}

// packTagged appends a str-family header whose payload is the 1-byte
// particle tag followed by the data. The declared length includes the tag.
func (p *Packer) packTagged(tag byte, data []byte) {
	n := len(data) + 1
	switch {
	case n < 32:
		p.writeByte(0xa0 | byte(n)) // fixstr
	case n < 256:
		p.writeByte(markStr8)
		p.writeByte(byte(n))
	case n < 65536:
		p.writeByte(markStr16)
		p.writeUint16(uint16(n))
	default:
		p.writeByte(markStr32)
		p.writeUint32(uint32(n))
	}
	p.writeByte(tag)
	p.buf = append(p.buf, data...)
}

func (p *Packer) writeByte(b byte) {
	p.buf = append(p.buf, b)
}

func (p *Packer) writeUint16(v uint16) {
	p.buf = binary.BigEndian.AppendUint16(p.buf, v)
}

func (p *Packer) writeUint32(v uint32) {
	p.buf = binary.BigEndian.AppendUint32(p.buf, v)
}

func (p *Packer) writeUint64(v uint64) {
	p.buf = binary.BigEndian.AppendUint64(p.buf, v)
}

func sortedEntries(entries []types.MapPair) []types.MapPair {
	sorted := true
	for i := 1; i < len(entries); i++ {
		if types.Compare(entries[i-1].Key, entries[i].Key) > 0 {
			sorted = false
			break
		}
	}
	if sorted {
		return entries
	}
	return types.NewMapValue(entries, types.MapKeyOrdered).Entries
}

// PackedValue packs a single value and returns the bytes.
func PackedValue(v types.Value) ([]byte, error) {
	p := NewPacker()
	if err := p.PackValue(v); err != nil {
		return nil, err
	}
	return p.Bytes(), nil
}
