package stub

import (
	"sort"

	"github.com/ValentinKolb/aspike/lib/policy"
	"github.com/ValentinKolb/aspike/lib/types"
)

// applyCDTCommand runs one sub-command against the resolved collection and
// returns the updated collection plus the command's read result, if any.
// Map and list opcodes live in disjoint ranges.
func applyCDTCommand(v types.Value, cmd *cdtCommand) (types.Value, types.Value, types.ResultCode) {
	if cmd.opcode >= cdtMapSetType {
		return applyMapCommand(v, cmd)
	}
	return applyListCommand(v, cmd)
}

// --------------------------------------------------------------------------
// Map Commands
// --------------------------------------------------------------------------

func applyMapCommand(v types.Value, cmd *cdtCommand) (types.Value, types.Value, types.ResultCode) {
	args := cmd.args

	switch cmd.opcode {
	case cdtMapSetType:
		order, ok := cdtIntArg(args, 0)
		if !ok {
			return nil, nil, types.ResultParameterError
		}
		m, rc := cdtAsMap(v, types.MapOrder(order), true)
		if rc != types.ResultOK {
			return nil, nil, rc
		}
		return types.NewMapValue(m.Entries, types.MapOrder(order)), nil, types.ResultOK

	case cdtMapPut:
		if len(args) < 2 {
			return nil, nil, types.ResultParameterError
		}
		order, _ := cdtIntArg(args, 2)
		flags, _ := cdtIntArg(args, 3)
		m, rc := cdtAsMap(v, types.MapOrder(order), true)
		if rc != types.ResultOK {
			return nil, nil, rc
		}
		return mapPutEntry(m, args[0], args[1], policy.MapWriteFlags(flags))

	case cdtMapPutItems:
		if len(args) < 1 {
			return nil, nil, types.ResultParameterError
		}
		items, ok := args[0].(types.MapValue)
		if !ok {
			return nil, nil, types.ResultParameterError
		}
		order, _ := cdtIntArg(args, 1)
		flags, _ := cdtIntArg(args, 2)
		m, rc := cdtAsMap(v, types.MapOrder(order), true)
		if rc != types.ResultOK {
			return nil, nil, rc
		}
		for _, e := range items.Entries {
			updated, _, rc := mapPutEntry(m, e.Key, e.Value, policy.MapWriteFlags(flags))
			if rc != types.ResultOK {
				return nil, nil, rc
			}
			m = updated.(types.MapValue)
		}
		return m, types.IntegerValue(len(m.Entries)), types.ResultOK

	case cdtMapIncrement:
		if len(args) < 2 {
			return nil, nil, types.ResultParameterError
		}
		order, _ := cdtIntArg(args, 2)
		m, rc := cdtAsMap(v, types.MapOrder(order), true)
		if rc != types.ResultOK {
			return nil, nil, rc
		}
		return mapIncrementEntry(m, args[0], args[1])

	case cdtMapClear:
		m, rc := cdtAsMap(v, types.MapUnordered, false)
		if rc != types.ResultOK {
			return nil, nil, rc
		}
		return types.MapValue{Order: m.Order}, nil, types.ResultOK

	case cdtMapRemoveKey:
		rt, ok := cdtIntArg(args, 0)
		if !ok || len(args) < 2 {
			return nil, nil, types.ResultParameterError
		}
		m, rc := cdtAsMap(v, types.MapUnordered, false)
		if rc != types.ResultOK {
			return nil, nil, rc
		}
		idx := mapFindKey(m, args[1])
		found := idx >= 0
		var key, value types.Value
		entries := m.Entries
		if found {
			key, value = m.Entries[idx].Key, m.Entries[idx].Value
			entries = make([]types.MapPair, 0, len(m.Entries)-1)
			entries = append(entries, m.Entries[:idx]...)
			entries = append(entries, m.Entries[idx+1:]...)
		}
		result, rc := cdtSelection(rt, idx, key, value, found)
		if rc != types.ResultOK {
			return nil, nil, rc
		}
		return types.MapValue{Entries: entries, Order: m.Order}, result, types.ResultOK

	case cdtMapSize:
		m, rc := cdtAsMap(v, types.MapUnordered, false)
		if rc != types.ResultOK {
			return nil, nil, rc
		}
		return v, types.IntegerValue(len(m.Entries)), types.ResultOK

	case cdtMapGetByKey:
		rt, ok := cdtIntArg(args, 0)
		if !ok || len(args) < 2 {
			return nil, nil, types.ResultParameterError
		}
		m, rc := cdtAsMap(v, types.MapUnordered, false)
		if rc != types.ResultOK {
			return nil, nil, rc
		}
		idx := mapFindKey(m, args[1])
		var key, value types.Value
		if idx >= 0 {
			key, value = m.Entries[idx].Key, m.Entries[idx].Value
		}
		result, rc := cdtSelection(rt, idx, key, value, idx >= 0)
		if rc != types.ResultOK {
			return nil, nil, rc
		}
		return v, result, types.ResultOK

	case cdtMapGetByIndex:
		rt, ok := cdtIntArg(args, 0)
		if !ok {
			return nil, nil, types.ResultParameterError
		}
		index, ok := cdtIntArg(args, 1)
		if !ok {
			return nil, nil, types.ResultParameterError
		}
		m, rc := cdtAsMap(v, types.MapUnordered, false)
		if rc != types.ResultOK {
			return nil, nil, rc
		}
		idx, rc := cdtMapPosition(m, types.IntegerValue(index), false)
		if rc != types.ResultOK {
			return nil, nil, rc
		}
		result, rc := cdtSelection(rt, int(index), m.Entries[idx].Key, m.Entries[idx].Value, true)
		if rc != types.ResultOK {
			return nil, nil, rc
		}
		return v, result, types.ResultOK

	default:
		return nil, nil, types.ResultUnsupportedFeature
	}
}

// mapPutEntry creates or updates one entry under the write flags and
// returns the updated map plus its new size.
func mapPutEntry(m types.MapValue, key, value types.Value, flags policy.MapWriteFlags) (types.Value, types.Value, types.ResultCode) {
	idx := mapFindKey(m, key)

	if idx >= 0 && flags&policy.MapWriteCreateOnly != 0 {
		if flags&policy.MapWriteNoFail != 0 {
			return m, types.IntegerValue(len(m.Entries)), types.ResultOK
		}
		return nil, nil, types.ResultElementExists
	}
	if idx < 0 && flags&policy.MapWriteUpdateOnly != 0 {
		if flags&policy.MapWriteNoFail != 0 {
			return m, types.IntegerValue(len(m.Entries)), types.ResultOK
		}
		return nil, nil, types.ResultElementNotFound
	}

	entries := make([]types.MapPair, len(m.Entries))
	copy(entries, m.Entries)
	if idx >= 0 {
		entries[idx].Value = value
	} else {
		entries = append(entries, types.MapPair{Key: key, Value: value})
	}
	out := types.NewMapValue(entries, m.Order)
	return out, types.IntegerValue(len(out.Entries)), types.ResultOK
}

// mapIncrementEntry adds a numeric delta to the value stored under key,
// creating the entry when absent. The new value is the result.
func mapIncrementEntry(m types.MapValue, key, delta types.Value) (types.Value, types.Value, types.ResultCode) {
	switch delta.(type) {
	case types.IntegerValue, types.FloatValue:
	default:
		return nil, nil, types.ResultParameterError
	}

	idx := mapFindKey(m, key)
	var updated types.Value
	if idx < 0 {
		updated = delta
	} else {
		switch old := m.Entries[idx].Value.(type) {
		case types.IntegerValue:
			d, ok := delta.(types.IntegerValue)
			if !ok {
				return nil, nil, types.ResultBinTypeError
			}
			updated = old + d
		case types.FloatValue:
			switch d := delta.(type) {
			case types.FloatValue:
				updated = old + d
			case types.IntegerValue:
				updated = old + types.FloatValue(d)
			}
		default:
			return nil, nil, types.ResultBinTypeError
		}
	}

	entries := make([]types.MapPair, len(m.Entries))
	copy(entries, m.Entries)
	if idx >= 0 {
		entries[idx].Value = updated
	} else {
		entries = append(entries, types.MapPair{Key: key, Value: updated})
	}
	return types.NewMapValue(entries, m.Order), updated, types.ResultOK
}

func mapFindKey(m types.MapValue, key types.Value) int {
	for i, e := range m.Entries {
		if types.Compare(e.Key, key) == 0 {
			return i
		}
	}
	return -1
}

// --------------------------------------------------------------------------
// List Commands
// --------------------------------------------------------------------------

func applyListCommand(v types.Value, cmd *cdtCommand) (types.Value, types.Value, types.ResultCode) {
	args := cmd.args

	l, rc := cdtAsList(v)
	if rc != types.ResultOK {
		return nil, nil, rc
	}

	switch cmd.opcode {
	case cdtListAppend:
		if len(args) < 1 {
			return nil, nil, types.ResultParameterError
		}
		order, _ := cdtIntArg(args, 1)
		flags, _ := cdtIntArg(args, 2)
		return listAppendValues(l, types.ListValue{args[0]}, types.ListOrder(order), policy.ListWriteFlags(flags))

	case cdtListAppendItems:
		if len(args) < 1 {
			return nil, nil, types.ResultParameterError
		}
		values, ok := args[0].(types.ListValue)
		if !ok {
			return nil, nil, types.ResultParameterError
		}
		order, _ := cdtIntArg(args, 1)
		flags, _ := cdtIntArg(args, 2)
		return listAppendValues(l, values, types.ListOrder(order), policy.ListWriteFlags(flags))

	case cdtListInsert:
		index, ok := cdtIntArg(args, 0)
		if !ok || len(args) < 2 {
			return nil, nil, types.ResultParameterError
		}
		idx := cdtNormalizeIndex(int(index), len(l))
		if idx < 0 || idx > len(l) {
			return nil, nil, types.ResultOpNotApplicable
		}
		out := make(types.ListValue, 0, len(l)+1)
		out = append(out, l[:idx]...)
		out = append(out, args[1])
		out = append(out, l[idx:]...)
		return out, types.IntegerValue(len(out)), types.ResultOK

	case cdtListPop:
		index, ok := cdtIntArg(args, 0)
		if !ok {
			return nil, nil, types.ResultParameterError
		}
		idx := cdtNormalizeIndex(int(index), len(l))
		if idx < 0 || idx >= len(l) {
			return nil, nil, types.ResultOpNotApplicable
		}
		popped := l[idx]
		out := make(types.ListValue, 0, len(l)-1)
		out = append(out, l[:idx]...)
		out = append(out, l[idx+1:]...)
		return out, popped, types.ResultOK

	case cdtListSet:
		index, ok := cdtIntArg(args, 0)
		if !ok || len(args) < 2 {
			return nil, nil, types.ResultParameterError
		}
		idx := cdtNormalizeIndex(int(index), len(l))
		if idx < 0 || idx >= len(l) {
			return nil, nil, types.ResultOpNotApplicable
		}
		out := make(types.ListValue, len(l))
		copy(out, l)
		out[idx] = args[1]
		return out, nil, types.ResultOK

	case cdtListClear:
		return types.ListValue{}, nil, types.ResultOK

	case cdtListSize:
		return v, types.IntegerValue(len(l)), types.ResultOK

	case cdtListGet:
		index, ok := cdtIntArg(args, 0)
		if !ok {
			return nil, nil, types.ResultParameterError
		}
		idx := cdtNormalizeIndex(int(index), len(l))
		if idx < 0 || idx >= len(l) {
			return nil, nil, types.ResultOpNotApplicable
		}
		return v, l[idx], types.ResultOK

	case cdtListGetByIndex:
		rt, ok := cdtIntArg(args, 0)
		if !ok {
			return nil, nil, types.ResultParameterError
		}
		index, ok := cdtIntArg(args, 1)
		if !ok {
			return nil, nil, types.ResultParameterError
		}
		idx := cdtNormalizeIndex(int(index), len(l))
		found := idx >= 0 && idx < len(l)
		var value types.Value
		if found {
			value = l[idx]
		}
		result, rc := cdtSelection(rt, idx, nil, value, found)
		if rc != types.ResultOK {
			return nil, nil, rc
		}
		return v, result, types.ResultOK

	case cdtListRemoveByIndex:
		rt, ok := cdtIntArg(args, 0)
		if !ok {
			return nil, nil, types.ResultParameterError
		}
		index, ok := cdtIntArg(args, 1)
		if !ok {
			return nil, nil, types.ResultParameterError
		}
		idx := cdtNormalizeIndex(int(index), len(l))
		found := idx >= 0 && idx < len(l)
		var value types.Value
		out := l
		if found {
			value = l[idx]
			out = make(types.ListValue, 0, len(l)-1)
			out = append(out, l[:idx]...)
			out = append(out, l[idx+1:]...)
		}
		result, rc := cdtSelection(rt, idx, nil, value, found)
		if rc != types.ResultOK {
			return nil, nil, rc
		}
		return out, result, types.ResultOK

	default:
		return nil, nil, types.ResultUnsupportedFeature
	}
}

// listAppendValues appends values honoring the order attribute and the
// add-unique write flag. The new size is the result.
func listAppendValues(l, values types.ListValue, order types.ListOrder, flags policy.ListWriteFlags) (types.Value, types.Value, types.ResultCode) {
	out := make(types.ListValue, len(l), len(l)+len(values))
	copy(out, l)

	for _, value := range values {
		if flags&policy.ListWriteAddUnique != 0 {
			duplicate := false
			for _, e := range out {
				if types.Compare(e, value) == 0 {
					duplicate = true
					break
				}
			}
			if duplicate {
				if flags&policy.ListWriteNoFail != 0 {
					continue
				}
				return nil, nil, types.ResultElementExists
			}
		}
		out = append(out, value)
	}

	if order == types.ListOrdered {
		sort.SliceStable(out, func(i, j int) bool {
			return types.Compare(out[i], out[j]) < 0
		})
	}
	return out, types.IntegerValue(len(out)), types.ResultOK
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func cdtAsList(v types.Value) (types.ListValue, types.ResultCode) {
	switch l := v.(type) {
	case nil:
		return nil, types.ResultOK
	case types.ListValue:
		return l, types.ResultOK
	default:
		return nil, types.ResultBinTypeError
	}
}

func cdtIntArg(args types.ListValue, i int) (int64, bool) {
	if i < 0 || i >= len(args) {
		return 0, false
	}
	n, ok := args[i].(types.IntegerValue)
	return int64(n), ok
}

// cdtSelection shapes what a get or remove command echoes back, per the
// wire return-type selector. An inverted selection is not interpreted.
func cdtSelection(rt int64, idx int, key, value types.Value, found bool) (types.Value, types.ResultCode) {
	if rt&0x10000 != 0 {
		return nil, types.ResultUnsupportedFeature
	}

	switch rt {
	case cdtReturnNone:
		return nil, types.ResultOK
	case cdtReturnIndex:
		if !found {
			return nil, types.ResultOK
		}
		return types.IntegerValue(idx), types.ResultOK
	case cdtReturnCount:
		if found {
			return types.IntegerValue(1), types.ResultOK
		}
		return types.IntegerValue(0), types.ResultOK
	case cdtReturnKey:
		if !found {
			return nil, types.ResultOK
		}
		return key, types.ResultOK
	case cdtReturnValue:
		if !found {
			return nil, types.ResultOK
		}
		return value, types.ResultOK
	case cdtReturnKeyValue:
		if !found {
			return types.ListValue{}, types.ResultOK
		}
		return types.ListValue{key, value}, types.ResultOK
	case cdtReturnExists:
		return types.BoolValue(found), types.ResultOK
	default:
		return nil, types.ResultUnsupportedFeature
	}
}
