package cdt

import (
	"github.com/ValentinKolb/aspike/lib/policy"
	"github.com/ValentinKolb/aspike/lib/types"
)

// Map opcodes.
const (
	mapSetType              uint16 = 64
	mapAdd                  uint16 = 65
	mapAddItems             uint16 = 66
	mapPut                  uint16 = 67
	mapPutItems             uint16 = 68
	mapReplace              uint16 = 69
	mapReplaceItems         uint16 = 70
	mapIncrement            uint16 = 73
	mapDecrement            uint16 = 74
	mapClear                uint16 = 75
	mapRemoveByKey          uint16 = 76
	mapRemoveByIndex        uint16 = 77
	mapRemoveByRank         uint16 = 79
	mapRemoveByKeyList      uint16 = 81
	mapRemoveByValue        uint16 = 82
	mapRemoveByValueList    uint16 = 83
	mapRemoveByKeyInterval  uint16 = 84
	mapRemoveByIndexRange   uint16 = 85
	mapRemoveByValueRange   uint16 = 86
	mapRemoveByRankRange    uint16 = 87
	mapRemoveByKeyRelIndex  uint16 = 88
	mapRemoveByValueRelRank uint16 = 89
	mapSize                 uint16 = 96
	mapGetByKey             uint16 = 97
	mapGetByIndex           uint16 = 98
	mapGetByRank            uint16 = 100
	mapGetByValue           uint16 = 102
	mapGetByKeyInterval     uint16 = 103
	mapGetByIndexRange      uint16 = 104
	mapGetByValueInterval   uint16 = 105
	mapGetByRankRange       uint16 = 106
	mapGetByKeyList         uint16 = 107
	mapGetByValueList       uint16 = 108
	mapGetByKeyRelIndex     uint16 = 109
	mapGetByValueRelRank    uint16 = 110
)

func mapPolicyOrDefault(p *policy.MapPolicy) *policy.MapPolicy {
	if p == nil {
		return policy.NewMapPolicy()
	}
	return p
}

// MapSetPolicyOp sets the map bin's order attribute without writing
// entries.
func MapSetPolicyOp(p *policy.MapPolicy, binName string, ctx ...Context) (*types.Operation, error) {
	p = mapPolicyOrDefault(p)
	return op(types.OpCDTModify, binName, ctx, mapSetType, types.IntegerValue(p.Order))
}

// MapPutOp writes one entry. A key-ordered policy serializes the map bin
// sorted on every write, keeping byte-level comparisons stable.
func MapPutOp(p *policy.MapPolicy, binName string, key, value types.Value, ctx ...Context) (*types.Operation, error) {
	p = mapPolicyOrDefault(p)
	return op(types.OpCDTModify, binName, ctx, mapPut,
		key, value, types.IntegerValue(p.Order), types.IntegerValue(p.Flags))
}

// MapPutItemsOp writes multiple entries at once. The entry map is
// serialized under the policy's order.
func MapPutItemsOp(p *policy.MapPolicy, binName string, entries []types.MapPair, ctx ...Context) (*types.Operation, error) {
	p = mapPolicyOrDefault(p)
	items := types.NewMapValue(entries, p.Order)
	return op(types.OpCDTModify, binName, ctx, mapPutItems,
		items, types.IntegerValue(p.Order), types.IntegerValue(p.Flags))
}

// MapIncrementOp adds delta to the numeric value stored under key.
func MapIncrementOp(p *policy.MapPolicy, binName string, key, delta types.Value, ctx ...Context) (*types.Operation, error) {
	p = mapPolicyOrDefault(p)
	switch delta.(type) {
	case types.IntegerValue, types.FloatValue:
	default:
		return nil, types.NewErrorf(types.ErrValue,
			"map increment delta must be numeric, got %s", delta.Type())
	}
	return op(types.OpCDTModify, binName, ctx, mapIncrement,
		key, delta, types.IntegerValue(p.Order))
}

// MapClearOp removes all entries.
func MapClearOp(binName string, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, mapClear)
}

// MapSizeOp returns the entry count.
func MapSizeOp(binName string, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, mapSize)
}

// MapGetByKeyOp selects the entry with the given key.
func MapGetByKeyOp(binName string, key types.Value, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, mapGetByKey,
		types.IntegerValue(rt), key)
}

// MapGetByKeyListOp selects all entries with a listed key.
func MapGetByKeyListOp(binName string, keys types.ListValue, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, mapGetByKeyList,
		types.IntegerValue(rt), keys)
}

// MapGetByKeyRangeOp selects entries with keys in [begin, end).
func MapGetByKeyRangeOp(binName string, begin, end types.Value, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, mapGetByKeyInterval,
		types.IntegerValue(rt), begin, end)
}

// MapGetByKeyRelIndexRangeOp selects count entries whose index is relative
// to the entry with the given key.
func MapGetByKeyRelIndexRangeOp(binName string, key types.Value, index, count int, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, mapGetByKeyRelIndex,
		types.IntegerValue(rt), key, types.IntegerValue(index), types.IntegerValue(count))
}

// MapGetByIndexOp selects the entry at index in key order.
func MapGetByIndexOp(binName string, index int, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, mapGetByIndex,
		types.IntegerValue(rt), types.IntegerValue(index))
}

// MapGetByIndexRangeOp selects count entries starting at index.
func MapGetByIndexRangeOp(binName string, index, count int, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, mapGetByIndexRange,
		types.IntegerValue(rt), types.IntegerValue(index), types.IntegerValue(count))
}

// MapGetByRankOp selects the entry with the given value rank.
func MapGetByRankOp(binName string, rank int, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, mapGetByRank,
		types.IntegerValue(rt), types.IntegerValue(rank))
}

// MapGetByRankRangeOp selects count entries starting at rank.
func MapGetByRankRangeOp(binName string, rank, count int, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, mapGetByRankRange,
		types.IntegerValue(rt), types.IntegerValue(rank), types.IntegerValue(count))
}

// MapGetByValueOp selects all entries holding value.
func MapGetByValueOp(binName string, value types.Value, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, mapGetByValue,
		types.IntegerValue(rt), value)
}

// MapGetByValueListOp selects all entries holding a listed value.
func MapGetByValueListOp(binName string, values types.ListValue, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, mapGetByValueList,
		types.IntegerValue(rt), values)
}

// MapGetByValueRangeOp selects entries with values in [begin, end).
func MapGetByValueRangeOp(binName string, begin, end types.Value, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, mapGetByValueInterval,
		types.IntegerValue(rt), begin, end)
}

// MapGetByValueRelRankRangeOp selects count entries whose rank is relative
// to the first entry holding value.
func MapGetByValueRelRankRangeOp(binName string, value types.Value, rank, count int, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, mapGetByValueRelRank,
		types.IntegerValue(rt), value, types.IntegerValue(rank), types.IntegerValue(count))
}

// MapRemoveByKeyOp removes the entry with the given key.
func MapRemoveByKeyOp(binName string, key types.Value, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, mapRemoveByKey,
		types.IntegerValue(rt), key)
}

// MapRemoveByKeyListOp removes all entries with a listed key.
func MapRemoveByKeyListOp(binName string, keys types.ListValue, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, mapRemoveByKeyList,
		types.IntegerValue(rt), keys)
}

// MapRemoveByKeyRangeOp removes entries with keys in [begin, end).
func MapRemoveByKeyRangeOp(binName string, begin, end types.Value, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, mapRemoveByKeyInterval,
		types.IntegerValue(rt), begin, end)
}

// MapRemoveByIndexOp removes the entry at index.
func MapRemoveByIndexOp(binName string, index int, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, mapRemoveByIndex,
		types.IntegerValue(rt), types.IntegerValue(index))
}

// MapRemoveByIndexRangeOp removes count entries starting at index.
func MapRemoveByIndexRangeOp(binName string, index, count int, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, mapRemoveByIndexRange,
		types.IntegerValue(rt), types.IntegerValue(index), types.IntegerValue(count))
}

// MapRemoveByRankOp removes the entry with the given rank.
func MapRemoveByRankOp(binName string, rank int, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, mapRemoveByRank,
		types.IntegerValue(rt), types.IntegerValue(rank))
}

// MapRemoveByRankRangeOp removes count entries starting at rank.
func MapRemoveByRankRangeOp(binName string, rank, count int, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, mapRemoveByRankRange,
		types.IntegerValue(rt), types.IntegerValue(rank), types.IntegerValue(count))
}

// MapRemoveByValueOp removes all entries holding value.
func MapRemoveByValueOp(binName string, value types.Value, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, mapRemoveByValue,
		types.IntegerValue(rt), value)
}

// MapRemoveByValueListOp removes all entries holding a listed value.
func MapRemoveByValueListOp(binName string, values types.ListValue, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, mapRemoveByValueList,
		types.IntegerValue(rt), values)
}

// MapRemoveByValueRangeOp removes entries with values in [begin, end).
func MapRemoveByValueRangeOp(binName string, begin, end types.Value, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, mapRemoveByValueRange,
		types.IntegerValue(rt), begin, end)
}

// MapRemoveByKeyRelIndexRangeOp removes count entries whose index is
// relative to the entry with the given key.
func MapRemoveByKeyRelIndexRangeOp(binName string, key types.Value, index, count int, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, mapRemoveByKeyRelIndex,
		types.IntegerValue(rt), key, types.IntegerValue(index), types.IntegerValue(count))
}

// MapRemoveByValueRelRankRangeOp removes count entries whose rank is
// relative to the first entry holding value.
func MapRemoveByValueRelRankRangeOp(binName string, value types.Value, rank, count int, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, mapRemoveByValueRelRank,
		types.IntegerValue(rt), value, types.IntegerValue(rank), types.IntegerValue(count))
}
