package cdt

import (
	"github.com/ValentinKolb/aspike/lib/policy"
	"github.com/ValentinKolb/aspike/lib/types"
)

// Bit opcodes.
const (
	bitResize   uint16 = 0
	bitInsert   uint16 = 1
	bitRemove   uint16 = 2
	bitSet      uint16 = 3
	bitOr       uint16 = 4
	bitXor      uint16 = 5
	bitAnd      uint16 = 6
	bitNot      uint16 = 7
	bitLShift   uint16 = 8
	bitRShift   uint16 = 9
	bitAdd      uint16 = 10
	bitSubtract uint16 = 11
	bitSetInt   uint16 = 12
	bitGet      uint16 = 50
	bitCount    uint16 = 51
	bitLScan    uint16 = 52
	bitRScan    uint16 = 53
	bitGetInt   uint16 = 54
)

// BitResizeFlags modify BitResizeOp.
type BitResizeFlags int

const (
	// BitResizeDefault grows or shrinks at the end of the blob.
	BitResizeDefault BitResizeFlags = 0
	// BitResizeFromFront grows or shrinks at the front of the blob.
	BitResizeFromFront BitResizeFlags = 1
	// BitResizeGrowOnly rejects a shrinking resize.
	BitResizeGrowOnly BitResizeFlags = 2
	// BitResizeShrinkOnly rejects a growing resize.
	BitResizeShrinkOnly BitResizeFlags = 4
)

// BitOverflowAction selects what BitAddOp and BitSubtractOp do when the
// result exceeds the addressed bit width.
type BitOverflowAction int

const (
	// BitOverflowFail rejects the operation.
	BitOverflowFail BitOverflowAction = 0
	// BitOverflowSaturate clamps to the largest or smallest representable value.
	BitOverflowSaturate BitOverflowAction = 2
	// BitOverflowWrap wraps around.
	BitOverflowWrap BitOverflowAction = 4
)

// arithmetic sign bit carried alongside the overflow action
const bitArithmeticSigned = 1

func bitPolicyOrDefault(p *policy.BitPolicy) *policy.BitPolicy {
	if p == nil {
		return policy.NewBitPolicy()
	}
	return p
}

// BitResizeOp resizes the blob to byteSize bytes.
func BitResizeOp(p *policy.BitPolicy, binName string, byteSize int, flags BitResizeFlags, ctx ...Context) (*types.Operation, error) {
	p = bitPolicyOrDefault(p)
	return op(types.OpBitModify, binName, ctx, bitResize,
		types.IntegerValue(byteSize), types.IntegerValue(p.Flags), types.IntegerValue(flags))
}

// BitInsertOp inserts value at byteOffset, shifting the rest right.
func BitInsertOp(p *policy.BitPolicy, binName string, byteOffset int, value []byte, ctx ...Context) (*types.Operation, error) {
	p = bitPolicyOrDefault(p)
	return op(types.OpBitModify, binName, ctx, bitInsert,
		types.IntegerValue(byteOffset), types.BytesValue(value), types.IntegerValue(p.Flags))
}

// BitRemoveOp removes byteSize bytes starting at byteOffset.
func BitRemoveOp(p *policy.BitPolicy, binName string, byteOffset, byteSize int, ctx ...Context) (*types.Operation, error) {
	p = bitPolicyOrDefault(p)
	return op(types.OpBitModify, binName, ctx, bitRemove,
		types.IntegerValue(byteOffset), types.IntegerValue(byteSize), types.IntegerValue(p.Flags))
}

// BitSetOp overwrites bitSize bits starting at bitOffset with value.
func BitSetOp(p *policy.BitPolicy, binName string, bitOffset, bitSize int, value []byte, ctx ...Context) (*types.Operation, error) {
	p = bitPolicyOrDefault(p)
	return op(types.OpBitModify, binName, ctx, bitSet,
		types.IntegerValue(bitOffset), types.IntegerValue(bitSize),
		types.BytesValue(value), types.IntegerValue(p.Flags))
}

// BitOrOp ors value into bitSize bits starting at bitOffset.
func BitOrOp(p *policy.BitPolicy, binName string, bitOffset, bitSize int, value []byte, ctx ...Context) (*types.Operation, error) {
	p = bitPolicyOrDefault(p)
	return op(types.OpBitModify, binName, ctx, bitOr,
		types.IntegerValue(bitOffset), types.IntegerValue(bitSize),
		types.BytesValue(value), types.IntegerValue(p.Flags))
}

// BitXorOp xors value into bitSize bits starting at bitOffset.
func BitXorOp(p *policy.BitPolicy, binName string, bitOffset, bitSize int, value []byte, ctx ...Context) (*types.Operation, error) {
	p = bitPolicyOrDefault(p)
	return op(types.OpBitModify, binName, ctx, bitXor,
		types.IntegerValue(bitOffset), types.IntegerValue(bitSize),
		types.BytesValue(value), types.IntegerValue(p.Flags))
}

// BitAndOp ands value into bitSize bits starting at bitOffset.
func BitAndOp(p *policy.BitPolicy, binName string, bitOffset, bitSize int, value []byte, ctx ...Context) (*types.Operation, error) {
	p = bitPolicyOrDefault(p)
	return op(types.OpBitModify, binName, ctx, bitAnd,
		types.IntegerValue(bitOffset), types.IntegerValue(bitSize),
		types.BytesValue(value), types.IntegerValue(p.Flags))
}

// BitNotOp negates bitSize bits starting at bitOffset.
func BitNotOp(p *policy.BitPolicy, binName string, bitOffset, bitSize int, ctx ...Context) (*types.Operation, error) {
	p = bitPolicyOrDefault(p)
	return op(types.OpBitModify, binName, ctx, bitNot,
		types.IntegerValue(bitOffset), types.IntegerValue(bitSize), types.IntegerValue(p.Flags))
}

// BitLShiftOp shifts bitSize bits starting at bitOffset left by shift.
func BitLShiftOp(p *policy.BitPolicy, binName string, bitOffset, bitSize, shift int, ctx ...Context) (*types.Operation, error) {
	p = bitPolicyOrDefault(p)
	return op(types.OpBitModify, binName, ctx, bitLShift,
		types.IntegerValue(bitOffset), types.IntegerValue(bitSize),
		types.IntegerValue(shift), types.IntegerValue(p.Flags))
}

// BitRShiftOp shifts bitSize bits starting at bitOffset right by shift.
func BitRShiftOp(p *policy.BitPolicy, binName string, bitOffset, bitSize, shift int, ctx ...Context) (*types.Operation, error) {
	p = bitPolicyOrDefault(p)
	return op(types.OpBitModify, binName, ctx, bitRShift,
		types.IntegerValue(bitOffset), types.IntegerValue(bitSize),
		types.IntegerValue(shift), types.IntegerValue(p.Flags))
}

// BitAddOp adds value to the bitSize-bit integer at bitOffset.
func BitAddOp(p *policy.BitPolicy, binName string, bitOffset, bitSize int, value int64, signed bool, action BitOverflowAction, ctx ...Context) (*types.Operation, error) {
	p = bitPolicyOrDefault(p)
	flags := int(action)
	if signed {
		flags |= bitArithmeticSigned
	}
	return op(types.OpBitModify, binName, ctx, bitAdd,
		types.IntegerValue(bitOffset), types.IntegerValue(bitSize),
		types.IntegerValue(value), types.IntegerValue(p.Flags), types.IntegerValue(flags))
}

// BitSubtractOp subtracts value from the bitSize-bit integer at bitOffset.
func BitSubtractOp(p *policy.BitPolicy, binName string, bitOffset, bitSize int, value int64, signed bool, action BitOverflowAction, ctx ...Context) (*types.Operation, error) {
	p = bitPolicyOrDefault(p)
	flags := int(action)
	if signed {
		flags |= bitArithmeticSigned
	}
	return op(types.OpBitModify, binName, ctx, bitSubtract,
		types.IntegerValue(bitOffset), types.IntegerValue(bitSize),
		types.IntegerValue(value), types.IntegerValue(p.Flags), types.IntegerValue(flags))
}

// BitSetIntOp overwrites the bitSize-bit integer at bitOffset with value.
func BitSetIntOp(p *policy.BitPolicy, binName string, bitOffset, bitSize int, value int64, ctx ...Context) (*types.Operation, error) {
	p = bitPolicyOrDefault(p)
	return op(types.OpBitModify, binName, ctx, bitSetInt,
		types.IntegerValue(bitOffset), types.IntegerValue(bitSize),
		types.IntegerValue(value), types.IntegerValue(p.Flags))
}

// BitGetOp returns bitSize bits starting at bitOffset.
func BitGetOp(binName string, bitOffset, bitSize int, ctx ...Context) (*types.Operation, error) {
	return op(types.OpBitRead, binName, ctx, bitGet,
		types.IntegerValue(bitOffset), types.IntegerValue(bitSize))
}

// BitCountOp returns the number of set bits in the addressed range.
func BitCountOp(binName string, bitOffset, bitSize int, ctx ...Context) (*types.Operation, error) {
	return op(types.OpBitRead, binName, ctx, bitCount,
		types.IntegerValue(bitOffset), types.IntegerValue(bitSize))
}

// BitLScanOp returns the offset of the first bit equal to value in the
// addressed range, or -1.
func BitLScanOp(binName string, bitOffset, bitSize int, value bool, ctx ...Context) (*types.Operation, error) {
	return op(types.OpBitRead, binName, ctx, bitLScan,
		types.IntegerValue(bitOffset), types.IntegerValue(bitSize), types.BoolValue(value))
}

// BitRScanOp returns the offset of the last bit equal to value in the
// addressed range, or -1.
func BitRScanOp(binName string, bitOffset, bitSize int, value bool, ctx ...Context) (*types.Operation, error) {
	return op(types.OpBitRead, binName, ctx, bitRScan,
		types.IntegerValue(bitOffset), types.IntegerValue(bitSize), types.BoolValue(value))
}

// BitGetIntOp returns the bitSize-bit integer at bitOffset.
func BitGetIntOp(binName string, bitOffset, bitSize int, signed bool, ctx ...Context) (*types.Operation, error) {
	args := []types.Value{types.IntegerValue(bitOffset), types.IntegerValue(bitSize)}
	if signed {
		args = append(args, types.IntegerValue(bitArithmeticSigned))
	}
	return op(types.OpBitRead, binName, ctx, bitGetInt, args...)
}
