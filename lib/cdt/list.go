package cdt

import (
	"github.com/ValentinKolb/aspike/lib/policy"
	"github.com/ValentinKolb/aspike/lib/types"
)

// List opcodes.
const (
	listSetType              uint16 = 0
	listAppend               uint16 = 1
	listAppendItems          uint16 = 2
	listInsert               uint16 = 3
	listInsertItems          uint16 = 4
	listPop                  uint16 = 5
	listPopRange             uint16 = 6
	listRemove               uint16 = 7
	listRemoveRange          uint16 = 8
	listSet                  uint16 = 9
	listTrim                 uint16 = 10
	listClear                uint16 = 11
	listIncrement            uint16 = 12
	listSort                 uint16 = 13
	listSize                 uint16 = 16
	listGet                  uint16 = 17
	listGetRange             uint16 = 18
	listGetByIndex           uint16 = 19
	listGetByRank            uint16 = 21
	listGetByValue           uint16 = 22
	listGetByValueList       uint16 = 23
	listGetByIndexRange      uint16 = 24
	listGetByValueInterval   uint16 = 25
	listGetByRankRange       uint16 = 26
	listGetByValueRelRank    uint16 = 27
	listRemoveByIndex        uint16 = 32
	listRemoveByRank         uint16 = 34
	listRemoveByValue        uint16 = 35
	listRemoveByValueList    uint16 = 36
	listRemoveByIndexRange   uint16 = 37
	listRemoveByValueRange   uint16 = 38
	listRemoveByRankRange    uint16 = 39
	listRemoveByValueRelRank uint16 = 40
)

// ListSortFlags modify ListSortOp.
type ListSortFlags int

const (
	// ListSortDefault preserves duplicates.
	ListSortDefault ListSortFlags = 0
	// ListSortDropDuplicates deletes duplicate values while sorting.
	ListSortDropDuplicates ListSortFlags = 2
)

func listPolicyOrDefault(p *policy.ListPolicy) *policy.ListPolicy {
	if p == nil {
		return policy.NewListPolicy()
	}
	return p
}

// ListSetOrderOp sets the list bin's order attribute.
func ListSetOrderOp(binName string, order types.ListOrder, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, listSetType, types.IntegerValue(order))
}

// ListAppendOp appends a value to the end of the list.
func ListAppendOp(p *policy.ListPolicy, binName string, value types.Value, ctx ...Context) (*types.Operation, error) {
	p = listPolicyOrDefault(p)
	return op(types.OpCDTModify, binName, ctx, listAppend,
		value, types.IntegerValue(p.Order), types.IntegerValue(p.Flags))
}

// ListAppendItemsOp appends multiple values at once.
func ListAppendItemsOp(p *policy.ListPolicy, binName string, values types.ListValue, ctx ...Context) (*types.Operation, error) {
	p = listPolicyOrDefault(p)
	return op(types.OpCDTModify, binName, ctx, listAppendItems,
		values, types.IntegerValue(p.Order), types.IntegerValue(p.Flags))
}

// ListInsertOp inserts a value before the given index.
func ListInsertOp(p *policy.ListPolicy, binName string, index int, value types.Value, ctx ...Context) (*types.Operation, error) {
	p = listPolicyOrDefault(p)
	return op(types.OpCDTModify, binName, ctx, listInsert,
		types.IntegerValue(index), value, types.IntegerValue(p.Flags))
}

// ListInsertItemsOp inserts multiple values before the given index.
func ListInsertItemsOp(p *policy.ListPolicy, binName string, index int, values types.ListValue, ctx ...Context) (*types.Operation, error) {
	p = listPolicyOrDefault(p)
	return op(types.OpCDTModify, binName, ctx, listInsertItems,
		types.IntegerValue(index), values, types.IntegerValue(p.Flags))
}

// ListPopOp removes and returns the element at index.
func ListPopOp(binName string, index int, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, listPop, types.IntegerValue(index))
}

// ListPopRangeOp removes and returns count elements starting at index.
func ListPopRangeOp(binName string, index, count int, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, listPopRange,
		types.IntegerValue(index), types.IntegerValue(count))
}

// ListRemoveOp removes the element at index.
func ListRemoveOp(binName string, index int, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, listRemove, types.IntegerValue(index))
}

// ListRemoveRangeOp removes count elements starting at index.
func ListRemoveRangeOp(binName string, index, count int, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, listRemoveRange,
		types.IntegerValue(index), types.IntegerValue(count))
}

// ListSetOp overwrites the element at index.
func ListSetOp(p *policy.ListPolicy, binName string, index int, value types.Value, ctx ...Context) (*types.Operation, error) {
	p = listPolicyOrDefault(p)
	return op(types.OpCDTModify, binName, ctx, listSet,
		types.IntegerValue(index), value, types.IntegerValue(p.Flags))
}

// ListTrimOp removes everything outside [index, index+count).
func ListTrimOp(binName string, index, count int, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, listTrim,
		types.IntegerValue(index), types.IntegerValue(count))
}

// ListClearOp removes all elements.
func ListClearOp(binName string, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, listClear)
}

// ListIncrementOp adds delta to the numeric element at index.
func ListIncrementOp(p *policy.ListPolicy, binName string, index int, delta types.Value, ctx ...Context) (*types.Operation, error) {
	p = listPolicyOrDefault(p)
	switch delta.(type) {
	case types.IntegerValue, types.FloatValue:
	default:
		return nil, types.NewErrorf(types.ErrValue,
			"list increment delta must be numeric, got %s", delta.Type())
	}
	return op(types.OpCDTModify, binName, ctx, listIncrement,
		types.IntegerValue(index), delta,
		types.IntegerValue(p.Order), types.IntegerValue(p.Flags))
}

// ListSortOp sorts the list.
func ListSortOp(binName string, flags ListSortFlags, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, listSort, types.IntegerValue(flags))
}

// ListSizeOp returns the element count.
func ListSizeOp(binName string, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, listSize)
}

// ListGetOp returns the element at index.
func ListGetOp(binName string, index int, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, listGet, types.IntegerValue(index))
}

// ListGetRangeOp returns count elements starting at index.
func ListGetRangeOp(binName string, index, count int, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, listGetRange,
		types.IntegerValue(index), types.IntegerValue(count))
}

// ListGetByIndexOp selects the element at index.
func ListGetByIndexOp(binName string, index int, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, listGetByIndex,
		types.IntegerValue(rt), types.IntegerValue(index))
}

// ListGetByIndexRangeOp selects count elements starting at index.
func ListGetByIndexRangeOp(binName string, index, count int, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, listGetByIndexRange,
		types.IntegerValue(rt), types.IntegerValue(index), types.IntegerValue(count))
}

// ListGetByRankOp selects the element with the given rank.
func ListGetByRankOp(binName string, rank int, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, listGetByRank,
		types.IntegerValue(rt), types.IntegerValue(rank))
}

// ListGetByRankRangeOp selects count elements starting at rank.
func ListGetByRankRangeOp(binName string, rank, count int, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, listGetByRankRange,
		types.IntegerValue(rt), types.IntegerValue(rank), types.IntegerValue(count))
}

// ListGetByValueOp selects all elements equal to value.
func ListGetByValueOp(binName string, value types.Value, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, listGetByValue,
		types.IntegerValue(rt), value)
}

// ListGetByValueListOp selects all elements equal to any listed value.
func ListGetByValueListOp(binName string, values types.ListValue, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, listGetByValueList,
		types.IntegerValue(rt), values)
}

// ListGetByValueRangeOp selects elements in [begin, end).
func ListGetByValueRangeOp(binName string, begin, end types.Value, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, listGetByValueInterval,
		types.IntegerValue(rt), begin, end)
}

// ListGetByValueRelRankRangeOp selects count elements whose rank is
// relative to the first element equal to value.
func ListGetByValueRelRankRangeOp(binName string, value types.Value, rank, count int, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTRead, binName, ctx, listGetByValueRelRank,
		types.IntegerValue(rt), value, types.IntegerValue(rank), types.IntegerValue(count))
}

// ListRemoveByIndexOp removes the element at index.
func ListRemoveByIndexOp(binName string, index int, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, listRemoveByIndex,
		types.IntegerValue(rt), types.IntegerValue(index))
}

// ListRemoveByIndexRangeOp removes count elements starting at index.
func ListRemoveByIndexRangeOp(binName string, index, count int, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, listRemoveByIndexRange,
		types.IntegerValue(rt), types.IntegerValue(index), types.IntegerValue(count))
}

// ListRemoveByRankOp removes the element with the given rank.
func ListRemoveByRankOp(binName string, rank int, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, listRemoveByRank,
		types.IntegerValue(rt), types.IntegerValue(rank))
}

// ListRemoveByRankRangeOp removes count elements starting at rank.
func ListRemoveByRankRangeOp(binName string, rank, count int, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, listRemoveByRankRange,
		types.IntegerValue(rt), types.IntegerValue(rank), types.IntegerValue(count))
}

// ListRemoveByValueOp removes all elements equal to value.
func ListRemoveByValueOp(binName string, value types.Value, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, listRemoveByValue,
		types.IntegerValue(rt), value)
}

// ListRemoveByValueListOp removes all elements equal to any listed value.
func ListRemoveByValueListOp(binName string, values types.ListValue, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, listRemoveByValueList,
		types.IntegerValue(rt), values)
}

// ListRemoveByValueRangeOp removes elements in [begin, end).
func ListRemoveByValueRangeOp(binName string, begin, end types.Value, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, listRemoveByValueRange,
		types.IntegerValue(rt), begin, end)
}

// ListRemoveByValueRelRankRangeOp removes count elements whose rank is
// relative to the first element equal to value.
func ListRemoveByValueRelRankRangeOp(binName string, value types.Value, rank, count int, rt ReturnType, ctx ...Context) (*types.Operation, error) {
	return op(types.OpCDTModify, binName, ctx, listRemoveByValueRelRank,
		types.IntegerValue(rt), value, types.IntegerValue(rank), types.IntegerValue(count))
}
