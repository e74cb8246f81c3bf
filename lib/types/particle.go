package types

import "fmt"

// ParticleType is the wire-level type tag identifying how a value's bytes
// are interpreted by the server. The numeric values must match the server's
// AS_BYTES_* enumeration bit-for-bit.
type ParticleType uint8

const (
	ParticleNull    ParticleType = 0
	ParticleInteger ParticleType = 1
	ParticleFloat   ParticleType = 2
	ParticleString  ParticleType = 3
	ParticleBlob    ParticleType = 4
	ParticleBool    ParticleType = 17
	ParticleHLL     ParticleType = 18
	ParticleMap     ParticleType = 19
	ParticleList    ParticleType = 20
	ParticleGeoJSON ParticleType = 23
)

// String returns the string representation of a ParticleType.
func (p ParticleType) String() string {
	switch p {
	case ParticleNull:
		return "null"
	case ParticleInteger:
		return "integer"
	case ParticleFloat:
		return "float"
	case ParticleString:
		return "string"
	case ParticleBlob:
		return "blob"
	case ParticleBool:
		return "bool"
	case ParticleHLL:
		return "hll"
	case ParticleMap:
		return "map"
	case ParticleList:
		return "list"
	case ParticleGeoJSON:
		return "geojson"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(p))
	}
}
