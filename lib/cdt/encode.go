package cdt

import (
	"github.com/ValentinKolb/aspike/lib/codec"
	"github.com/ValentinKolb/aspike/lib/types"
)

// packSubCommand builds the binary sub-message for one CDT command.
//
// Without context: raw big-endian uint16 opcode, then an argument array
// when arguments exist. With context: a packed [0xff, ctx-pairs, command]
// triple, the context flattened as alternating id/value elements.
func packSubCommand(ctx []Context, cmd uint16, args ...types.Value) ([]byte, error) {
	for i, a := range args {
		if a == nil {
			return nil, types.NewErrorf(types.ErrValue,
				"cdt command %d: argument %d is nil", cmd, i)
		}
	}

	p := codec.NewPacker()

	if len(ctx) == 0 {
		p.PackRawUint16(cmd)
		if len(args) > 0 {
			p.PackArrayHeader(len(args))
			for _, a := range args {
				if err := p.PackValue(a); err != nil {
					return nil, err
				}
			}
		}
		return p.Bytes(), nil
	}

	p.PackArrayHeader(3)
	p.PackInt64(0xff)

	p.PackArrayHeader(len(ctx) * 2)
	for _, c := range ctx {
		if c.value == nil {
			return nil, types.NewErrorf(types.ErrValue,
				"cdt command %d: context step 0x%x has no value", cmd, c.id)
		}
		p.PackInt64(int64(c.id))
		if err := p.PackValue(c.value); err != nil {
			return nil, err
		}
	}

	p.PackArrayHeader(len(args) + 1)
	p.PackInt64(int64(cmd))
	for _, a := range args {
		if err := p.PackValue(a); err != nil {
			return nil, err
		}
	}

	return p.Bytes(), nil
}

// op assembles a types.Operation around a packed CDT sub-command. CDT
// payloads travel as blob particles.
func op(opType types.OperationType, binName string, ctx []Context, cmd uint16, args ...types.Value) (*types.Operation, error) {
	data, err := packSubCommand(ctx, cmd, args...)
	if err != nil {
		return nil, err
	}
	return &types.Operation{
		OpType:       opType,
		BinName:      binName,
		ParticleType: types.ParticleBlob,
		Data:         data,
	}, nil
}
