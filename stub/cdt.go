package stub

import (
	"encoding/binary"
	"sort"

	"github.com/ValentinKolb/aspike/lib/codec"
	"github.com/ValentinKolb/aspike/lib/types"
	"github.com/ValentinKolb/aspike/proto"
)

// --------------------------------------------------------------------------
// CDT Sub-Commands
// --------------------------------------------------------------------------

// Context descriptor ids and return-type selectors, as they appear on the
// wire. The low six bits of a context id select the addressing mode, the
// 0x40/0x80 bits carry create-if-absent order flags.
const (
	cdtCtxListIndex = 0x10
	cdtCtxListRank  = 0x11
	cdtCtxListValue = 0x13
	cdtCtxMapIndex  = 0x20
	cdtCtxMapRank   = 0x21
	cdtCtxMapKey    = 0x22
	cdtCtxMapValue  = 0x23

	cdtReturnNone     = 0
	cdtReturnIndex    = 1
	cdtReturnCount    = 5
	cdtReturnKey      = 6
	cdtReturnValue    = 7
	cdtReturnKeyValue = 8
	cdtReturnExists   = 13
)

// Map and list opcodes the stub interprets. Everything outside this set
// answers with the unsupported-feature result code.
const (
	cdtListAppend        uint16 = 1
	cdtListAppendItems   uint16 = 2
	cdtListInsert        uint16 = 3
	cdtListPop           uint16 = 5
	cdtListSet           uint16 = 9
	cdtListClear         uint16 = 11
	cdtListSize          uint16 = 16
	cdtListGet           uint16 = 17
	cdtListGetByIndex    uint16 = 19
	cdtListRemoveByIndex uint16 = 32

	cdtMapSetType    uint16 = 64
	cdtMapPut        uint16 = 67
	cdtMapPutItems   uint16 = 68
	cdtMapIncrement  uint16 = 73
	cdtMapClear      uint16 = 75
	cdtMapRemoveKey  uint16 = 76
	cdtMapSize       uint16 = 96
	cdtMapGetByKey   uint16 = 97
	cdtMapGetByIndex uint16 = 98
)

// cdtCommand is one decoded CDT sub-command: the opcode, its argument list
// and the context path addressing the target collection.
type cdtCommand struct {
	opcode uint16
	args   types.ListValue
	ctx    []cdtCtxStep
}

type cdtCtxStep struct {
	id    int64
	value types.Value
}

// parseCDTCommand decodes an operation payload. Without context the
// payload is a raw big-endian uint16 opcode followed by an optional packed
// argument array; with context it is a packed [0xff, ctx-pairs, command]
// triple.
func parseCDTCommand(data []byte) (*cdtCommand, bool) {
	if len(data) > 0 && data[0]&0xf0 == 0x90 {
		return parseCDTEnvelope(data)
	}

	if len(data) < 2 {
		return nil, false
	}
	cmd := &cdtCommand{opcode: binary.BigEndian.Uint16(data[:2])}
	if len(data) > 2 {
		v, err := codec.UnpackedValue(data[2:])
		if err != nil {
			return nil, false
		}
		args, ok := v.(types.ListValue)
		if !ok {
			return nil, false
		}
		cmd.args = args
	}
	return cmd, true
}

func parseCDTEnvelope(data []byte) (*cdtCommand, bool) {
	v, err := codec.UnpackedValue(data)
	if err != nil {
		return nil, false
	}
	outer, ok := v.(types.ListValue)
	if !ok || len(outer) != 3 {
		return nil, false
	}
	if marker, ok := outer[0].(types.IntegerValue); !ok || marker != 0xff {
		return nil, false
	}

	pairs, ok := outer[1].(types.ListValue)
	if !ok || len(pairs)%2 != 0 {
		return nil, false
	}
	cmd := &cdtCommand{}
	for i := 0; i < len(pairs); i += 2 {
		id, ok := pairs[i].(types.IntegerValue)
		if !ok {
			return nil, false
		}
		cmd.ctx = append(cmd.ctx, cdtCtxStep{id: int64(id), value: pairs[i+1]})
	}

	inner, ok := outer[2].(types.ListValue)
	if !ok || len(inner) == 0 {
		return nil, false
	}
	opcode, ok := inner[0].(types.IntegerValue)
	if !ok {
		return nil, false
	}
	cmd.opcode = uint16(opcode)
	cmd.args = inner[1:]
	return cmd, true
}

// --------------------------------------------------------------------------
// Application
// --------------------------------------------------------------------------

// applyCDT runs one CDT operation against the record bin, appending the
// command's result to resp when it produces one.
func applyCDT(rec *storedRecord, op *types.Operation, resp *proto.Message) types.ResultCode {
	cmd, ok := parseCDTCommand(op.Data)
	if !ok {
		return types.ResultParameterError
	}

	root := rec.bins[op.BinName]
	updated, result, rc := cdtDescend(root, cmd.ctx, func(v types.Value) (types.Value, types.Value, types.ResultCode) {
		return applyCDTCommand(v, cmd)
	})
	if rc != types.ResultOK {
		return rc
	}

	if op.OpType == types.OpCDTModify {
		if updated == nil {
			delete(rec.bins, op.BinName)
		} else {
			rec.bins[op.BinName] = updated
		}
	}
	if result != nil {
		return emitBin(op.BinName, result, resp)
	}
	return types.ResultOK
}

// cdtDescend walks the context path left to right, applies fn to the
// collection the path resolves to and writes the updated sub-collection
// back through every step on the way out. Resolving a step against a
// non-collection is a bin type error; a missing element without a create
// flag makes the whole operation not applicable.
func cdtDescend(v types.Value, ctx []cdtCtxStep, fn func(types.Value) (types.Value, types.Value, types.ResultCode)) (types.Value, types.Value, types.ResultCode) {
	if len(ctx) == 0 {
		return fn(v)
	}

	step := ctx[0]
	mode := step.id & 0x3f
	create := step.id&0xc0 != 0

	switch mode {
	case cdtCtxMapKey:
		m, rc := cdtAsMap(v, cdtCreateOrder(step.id), create)
		if rc != types.ResultOK {
			return nil, nil, rc
		}
		idx := -1
		for i, e := range m.Entries {
			if types.Compare(e.Key, step.value) == 0 {
				idx = i
				break
			}
		}
		if idx < 0 && !create {
			return nil, nil, types.ResultOpNotApplicable
		}
		var child types.Value
		if idx >= 0 {
			child = m.Entries[idx].Value
		}
		newChild, result, rc := cdtDescend(child, ctx[1:], fn)
		if rc != types.ResultOK {
			return nil, nil, rc
		}
		entries := make([]types.MapPair, len(m.Entries))
		copy(entries, m.Entries)
		if idx >= 0 {
			entries[idx].Value = newChild
		} else {
			entries = append(entries, types.MapPair{Key: step.value, Value: newChild})
		}
		return types.NewMapValue(entries, m.Order), result, types.ResultOK

	case cdtCtxMapIndex, cdtCtxMapRank:
		m, ok := v.(types.MapValue)
		if !ok {
			return nil, nil, types.ResultBinTypeError
		}
		byValue := mode == cdtCtxMapRank
		idx, rc := cdtMapPosition(m, step.value, byValue)
		if rc != types.ResultOK {
			return nil, nil, rc
		}
		newChild, result, rc := cdtDescend(m.Entries[idx].Value, ctx[1:], fn)
		if rc != types.ResultOK {
			return nil, nil, rc
		}
		entries := make([]types.MapPair, len(m.Entries))
		copy(entries, m.Entries)
		entries[idx].Value = newChild
		return types.NewMapValue(entries, m.Order), result, types.ResultOK

	case cdtCtxMapValue:
		m, ok := v.(types.MapValue)
		if !ok {
			return nil, nil, types.ResultBinTypeError
		}
		idx := -1
		for i, e := range m.Entries {
			if types.Compare(e.Value, step.value) == 0 {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, nil, types.ResultOpNotApplicable
		}
		newChild, result, rc := cdtDescend(m.Entries[idx].Value, ctx[1:], fn)
		if rc != types.ResultOK {
			return nil, nil, rc
		}
		entries := make([]types.MapPair, len(m.Entries))
		copy(entries, m.Entries)
		entries[idx].Value = newChild
		return types.NewMapValue(entries, m.Order), result, types.ResultOK

	case cdtCtxListIndex, cdtCtxListRank, cdtCtxListValue:
		l, ok := v.(types.ListValue)
		if !ok {
			return nil, nil, types.ResultBinTypeError
		}
		idx := -1
		switch mode {
		case cdtCtxListIndex:
			want, ok := step.value.(types.IntegerValue)
			if !ok {
				return nil, nil, types.ResultParameterError
			}
			idx = cdtNormalizeIndex(int(want), len(l))
		case cdtCtxListRank:
			rank, ok := step.value.(types.IntegerValue)
			if !ok {
				return nil, nil, types.ResultParameterError
			}
			idx = cdtListRankIndex(l, int(rank))
		case cdtCtxListValue:
			for i, e := range l {
				if types.Compare(e, step.value) == 0 {
					idx = i
					break
				}
			}
		}
		if idx < 0 || idx >= len(l) {
			return nil, nil, types.ResultOpNotApplicable
		}
		newChild, result, rc := cdtDescend(l[idx], ctx[1:], fn)
		if rc != types.ResultOK {
			return nil, nil, rc
		}
		out := make(types.ListValue, len(l))
		copy(out, l)
		out[idx] = newChild
		return out, result, types.ResultOK

	default:
		return nil, nil, types.ResultUnsupportedFeature
	}
}

// cdtCreateOrder maps a context-create descriptor's flag bits to the map
// order the created map carries.
func cdtCreateOrder(id int64) types.MapOrder {
	switch id & 0xc0 {
	case 0x80:
		return types.MapKeyOrdered
	case 0xc0:
		return types.MapKeyValueOrdered
	default:
		return types.MapUnordered
	}
}

// cdtAsMap coerces the resolved value into a map, materializing an empty
// one for an absent bin or sub-element when create allows it.
func cdtAsMap(v types.Value, order types.MapOrder, create bool) (types.MapValue, types.ResultCode) {
	switch m := v.(type) {
	case nil:
		if !create {
			return types.MapValue{}, types.ResultOK
		}
		return types.MapValue{Order: order}, types.ResultOK
	case types.MapValue:
		return m, types.ResultOK
	default:
		return types.MapValue{}, types.ResultBinTypeError
	}
}

// cdtMapPosition resolves an index (in key order) or rank (in value order)
// context argument to an entry position.
func cdtMapPosition(m types.MapValue, arg types.Value, byValue bool) (int, types.ResultCode) {
	want, ok := arg.(types.IntegerValue)
	if !ok {
		return 0, types.ResultParameterError
	}
	pos := cdtNormalizeIndex(int(want), len(m.Entries))
	if pos < 0 || pos >= len(m.Entries) {
		return 0, types.ResultOpNotApplicable
	}

	order := make([]int, len(m.Entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		if byValue {
			return types.Compare(m.Entries[order[i]].Value, m.Entries[order[j]].Value) < 0
		}
		return types.Compare(m.Entries[order[i]].Key, m.Entries[order[j]].Key) < 0
	})
	return order[pos], types.ResultOK
}

// cdtListRankIndex resolves a value rank to a list index.
func cdtListRankIndex(l types.ListValue, rank int) int {
	pos := cdtNormalizeIndex(rank, len(l))
	if pos < 0 || pos >= len(l) {
		return -1
	}
	order := make([]int, len(l))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return types.Compare(l[order[i]], l[order[j]]) < 0
	})
	return order[pos]
}

// cdtNormalizeIndex folds a negative index (counted from the end) into the
// positive range.
func cdtNormalizeIndex(idx, length int) int {
	if idx < 0 {
		idx += length
	}
	return idx
}
