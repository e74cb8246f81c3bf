package codec

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/ValentinKolb/aspike/lib/types"
)

// EncodeParticle converts a bin value into its particle form: the wire
// type tag plus the value bytes used in the operation section. Scalars are
// fixed-width big-endian; collections use the packed form.
func EncodeParticle(v types.Value) (types.ParticleType, []byte, error) {
	switch val := v.(type) {
	case types.NullValue:
		return types.ParticleNull, nil, nil
	case types.BoolValue:
		b := byte(0)
		if val {
			b = 1
		}
		return types.ParticleBool, []byte{b}, nil
	case types.IntegerValue:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(int64(val)))
		return types.ParticleInteger, buf, nil
	case types.FloatValue:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, math.Float64bits(float64(val)))
		return types.ParticleFloat, buf, nil
	case types.StringValue:
		return types.ParticleString, []byte(val), nil
	case types.BytesValue:
		return types.ParticleBlob, val, nil
	case types.GeoJSONValue:
		// flags byte + cell count (none precomputed) + the document
		buf := make([]byte, 3+len(val))
		copy(buf[3:], val)
		return types.ParticleGeoJSON, buf, nil
	case types.HLLValue:
		return types.ParticleHLL, val, nil
	case types.ListValue, types.MapValue:
		packed, err := PackedValue(v)
		if err != nil {
			return 0, nil, err
		}
		return v.Type(), packed, nil
	default:
		return 0, nil, types.NewErrorf(types.ErrValue,
			"cannot encode particle for value of type %T", v)
	}
}

// DecodeParticle is the exact inverse of EncodeParticle. Decoding an
// unrecognized particle type is a BadResponse error.
func DecodeParticle(ptype types.ParticleType, data []byte) (types.Value, error) {
	switch ptype {
	case types.ParticleNull:
		return types.NullValue{}, nil
	case types.ParticleBool:
		if len(data) != 1 {
			return nil, badParticle(ptype, data)
		}
		return types.BoolValue(data[0] != 0), nil
	case types.ParticleInteger:
		if len(data) != 8 {
			return nil, badParticle(ptype, data)
		}
		return types.IntegerValue(binary.BigEndian.Uint64(data)), nil
	case types.ParticleFloat:
		if len(data) != 8 {
			return nil, badParticle(ptype, data)
		}
		return types.FloatValue(math.Float64frombits(binary.BigEndian.Uint64(data))), nil
	case types.ParticleString:
		if !utf8.Valid(data) {
			return nil, types.NewError(types.ErrInvalidUTF8,
				"string particle is not valid UTF-8")
		}
		return types.StringValue(data), nil
	case types.ParticleBlob:
		cp := make([]byte, len(data))
		copy(cp, data)
		return types.BytesValue(cp), nil
	case types.ParticleGeoJSON:
		if len(data) < 3 {
			return nil, badParticle(ptype, data)
		}
		return types.GeoJSONValue(data[3:]), nil
	case types.ParticleHLL:
		cp := make([]byte, len(data))
		copy(cp, data)
		return types.HLLValue(cp), nil
	case types.ParticleList, types.ParticleMap:
		return UnpackedValue(data)
	default:
		return nil, types.NewErrorf(types.ErrBadResponse,
			"unrecognized particle type %d", ptype)
	}
}

func badParticle(ptype types.ParticleType, data []byte) error {
	return types.NewErrorf(types.ErrBadResponse,
		"malformed %s particle of %d bytes", ptype, len(data))
}
