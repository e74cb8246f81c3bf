package cdt

import (
	"github.com/ValentinKolb/aspike/lib/policy"
	"github.com/ValentinKolb/aspike/lib/types"
)

// HLL opcodes.
const (
	hllInit           uint16 = 0
	hllAdd            uint16 = 1
	hllSetUnion       uint16 = 2
	hllRefreshCount   uint16 = 3
	hllFold           uint16 = 4
	hllCount          uint16 = 50
	hllUnion          uint16 = 51
	hllUnionCount     uint16 = 52
	hllIntersectCount uint16 = 53
	hllSimilarity     uint16 = 54
	hllDescribe       uint16 = 55
)

func hllPolicyOrDefault(p *policy.HLLPolicy) *policy.HLLPolicy {
	if p == nil {
		return policy.NewHLLPolicy()
	}
	return p
}

// hllSketches converts raw HLL bin payloads into the list argument the
// multi-sketch operations take.
func hllSketches(sketches [][]byte) types.ListValue {
	list := make(types.ListValue, len(sketches))
	for i, s := range sketches {
		list[i] = types.HLLValue(s)
	}
	return list
}

// HLLInitOp creates an empty sketch with the given precision. A
// minHashBitCount of zero disables the minhash section.
func HLLInitOp(p *policy.HLLPolicy, binName string, indexBitCount, minHashBitCount int) (*types.Operation, error) {
	p = hllPolicyOrDefault(p)
	return op(types.OpHLLModify, binName, nil, hllInit,
		types.IntegerValue(indexBitCount), types.IntegerValue(minHashBitCount),
		types.IntegerValue(p.Flags))
}

// HLLAddOp folds values into the sketch, creating it with the given
// precision when absent. The result reports how many registers changed.
func HLLAddOp(p *policy.HLLPolicy, binName string, values types.ListValue, indexBitCount, minHashBitCount int) (*types.Operation, error) {
	p = hllPolicyOrDefault(p)
	return op(types.OpHLLModify, binName, nil, hllAdd,
		values, types.IntegerValue(indexBitCount), types.IntegerValue(minHashBitCount),
		types.IntegerValue(p.Flags))
}

// HLLSetUnionOp merges the given sketches into the bin.
func HLLSetUnionOp(p *policy.HLLPolicy, binName string, sketches [][]byte) (*types.Operation, error) {
	p = hllPolicyOrDefault(p)
	return op(types.OpHLLModify, binName, nil, hllSetUnion,
		hllSketches(sketches), types.IntegerValue(p.Flags))
}

// HLLRefreshCountOp recomputes and caches the sketch's cardinality.
func HLLRefreshCountOp(binName string) (*types.Operation, error) {
	return op(types.OpHLLModify, binName, nil, hllRefreshCount)
}

// HLLFoldOp folds the sketch down to a smaller index bit count. Only valid
// when the sketch carries no minhash section.
func HLLFoldOp(binName string, indexBitCount int) (*types.Operation, error) {
	return op(types.OpHLLModify, binName, nil, hllFold,
		types.IntegerValue(indexBitCount))
}

// HLLGetCountOp returns the estimated cardinality.
func HLLGetCountOp(binName string) (*types.Operation, error) {
	return op(types.OpHLLRead, binName, nil, hllCount)
}

// HLLGetUnionOp returns a sketch holding the union of the bin and the
// given sketches, without writing it back.
func HLLGetUnionOp(binName string, sketches [][]byte) (*types.Operation, error) {
	return op(types.OpHLLRead, binName, nil, hllUnion, hllSketches(sketches))
}

// HLLGetUnionCountOp returns the estimated cardinality of the union of the
// bin and the given sketches.
func HLLGetUnionCountOp(binName string, sketches [][]byte) (*types.Operation, error) {
	return op(types.OpHLLRead, binName, nil, hllUnionCount, hllSketches(sketches))
}

// HLLGetIntersectCountOp returns the estimated cardinality of the
// intersection of the bin and the given sketches.
func HLLGetIntersectCountOp(binName string, sketches [][]byte) (*types.Operation, error) {
	return op(types.OpHLLRead, binName, nil, hllIntersectCount, hllSketches(sketches))
}

// HLLGetSimilarityOp returns the estimated Jaccard similarity of the bin
// and the given sketches.
func HLLGetSimilarityOp(binName string, sketches [][]byte) (*types.Operation, error) {
	return op(types.OpHLLRead, binName, nil, hllSimilarity, hllSketches(sketches))
}

// HLLDescribeOp returns the sketch's index and minhash bit counts.
func HLLDescribeOp(binName string) (*types.Operation, error) {
	return op(types.OpHLLRead, binName, nil, hllDescribe)
}
