package codec

import (
	"testing"

	"github.com/ValentinKolb/aspike/lib/types"
)

// benchmarkValues returns a set of values for targeted benchmarking
func benchmarkValues() map[string]types.Value {
	largeList := make(types.ListValue, 128)
	for i := range largeList {
		largeList[i] = types.IntegerValue(i)
	}

	wideMap := make([]types.MapPair, 64)
	for i := range wideMap {
		wideMap[i] = types.MapPair{
			Key:   types.IntegerValue(i),
			Value: types.StringValue("value for benchmarking serialization"),
		}
	}

	return map[string]types.Value{
		"Int":        types.IntegerValue(1234567),
		"String":     types.StringValue("medium length value for testing serialization"),
		"Bytes":      types.BytesValue(make([]byte, 1024)),
		"LargeBytes": types.BytesValue(make([]byte, 16*1024)),
		"List":       largeList,
		"OrderedMap": types.NewMapValue(wideMap, types.MapKeyOrdered),
	}
}

func BenchmarkPack(b *testing.B) {
	for name, val := range benchmarkValues() {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := PackedValue(val); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkUnpack(b *testing.B) {
	for name, val := range benchmarkValues() {
		packed, err := PackedValue(val)
		if err != nil {
			b.Fatal(err)
		}
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := UnpackedValue(packed); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
