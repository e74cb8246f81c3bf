package client

import (
	"github.com/ValentinKolb/aspike/lib/codec"
	"github.com/ValentinKolb/aspike/lib/types"
)

// --------------------------------------------------------------------------
// Basic Operation Constructors (for Operate)
// --------------------------------------------------------------------------

// particleOp encodes a value into particle form under the given op type
func particleOp(opType types.OperationType, binName string, value interface{}) (*types.Operation, error) {
	v, err := types.NewValue(value)
	if err != nil {
		return nil, err
	}
	ptype, data, err := codec.EncodeParticle(v)
	if err != nil {
		return nil, err
	}
	return &types.Operation{
		OpType:       opType,
		BinName:      binName,
		ParticleType: ptype,
		Data:         data,
	}, nil
}

// GetBinOp reads one bin.
func GetBinOp(binName string) *types.Operation {
	return &types.Operation{OpType: types.OpRead, BinName: binName}
}

// GetAllOp reads all bins of the record.
func GetAllOp() *types.Operation {
	return &types.Operation{OpType: types.OpRead}
}

// PutOp writes one bin.
func PutOp(binName string, value interface{}) (*types.Operation, error) {
	return particleOp(types.OpWrite, binName, value)
}

// AddOp adds delta to an integer bin, creating it at delta when absent.
func AddOp(binName string, delta int64) (*types.Operation, error) {
	return particleOp(types.OpAdd, binName, delta)
}

// AppendOp appends to a string or blob bin.
func AppendOp(binName string, value interface{}) (*types.Operation, error) {
	op, err := particleOp(types.OpAppend, binName, value)
	if err != nil {
		return nil, err
	}
	if op.ParticleType != types.ParticleString && op.ParticleType != types.ParticleBlob {
		return nil, types.NewErrorf(types.ErrValue,
			"append needs a string or blob value, got particle %d", op.ParticleType)
	}
	return op, nil
}

// PrependOp prepends to a string or blob bin.
func PrependOp(binName string, value interface{}) (*types.Operation, error) {
	op, err := particleOp(types.OpPrepend, binName, value)
	if err != nil {
		return nil, err
	}
	if op.ParticleType != types.ParticleString && op.ParticleType != types.ParticleBlob {
		return nil, types.NewErrorf(types.ErrValue,
			"prepend needs a string or blob value, got particle %d", op.ParticleType)
	}
	return op, nil
}

// TouchOp updates the record's metadata (generation, expiration) without
// touching bins.
func TouchOp() *types.Operation {
	return &types.Operation{OpType: types.OpTouch}
}

// DeleteBinOp removes one bin by writing the null particle.
func DeleteBinOp(binName string) *types.Operation {
	return &types.Operation{
		OpType:       types.OpWrite,
		BinName:      binName,
		ParticleType: types.ParticleNull,
	}
}
