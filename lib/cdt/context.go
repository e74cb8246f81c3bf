package cdt

import "github.com/ValentinKolb/aspike/lib/types"

// Context descriptor ids. The low nibble selects the addressing mode, the
// 0x40/0x80 bits carry create-if-absent order flags.
const (
	ctxListIndex = 0x10
	ctxListRank  = 0x11
	ctxListValue = 0x13
	ctxMapIndex  = 0x20
	ctxMapRank   = 0x21
	ctxMapKey    = 0x22
	ctxMapValue  = 0x23
)

// Context is one immutable step of an addressing path into nested
// collections. Steps are consumed left to right; each narrows into the
// sub-collection the previous step resolved. Resolving a step against a
// non-collection is a server-side error, a structurally invalid step (nil
// value) fails at encode time.
type Context struct {
	id    int
	value types.Value
}

// --------------------------------------------------------------------------
// List Context Steps
// --------------------------------------------------------------------------

// CtxListIndex addresses the list element at index (negative counts from
// the end).
func CtxListIndex(index int) Context {
	return Context{id: ctxListIndex, value: types.IntegerValue(index)}
}

// CtxListIndexCreate addresses the list element at index, creating it with
// the given order when absent. Pad fills the gap with nils when the index
// is past the end of an unordered list.
func CtxListIndexCreate(index int, order types.ListOrder, pad bool) Context {
	flag := 0x40
	if order == types.ListOrdered {
		flag = 0xc0
	} else if pad {
		flag = 0x80
	}
	return Context{id: ctxListIndex | flag, value: types.IntegerValue(index)}
}

// CtxListRank addresses the list element with the given value rank.
func CtxListRank(rank int) Context {
	return Context{id: ctxListRank, value: types.IntegerValue(rank)}
}

// CtxListValue addresses the first list element equal to value.
func CtxListValue(value types.Value) Context {
	return Context{id: ctxListValue, value: value}
}

// --------------------------------------------------------------------------
// Map Context Steps
// --------------------------------------------------------------------------

// CtxMapIndex addresses the map entry at index in key order.
func CtxMapIndex(index int) Context {
	return Context{id: ctxMapIndex, value: types.IntegerValue(index)}
}

// CtxMapRank addresses the map entry with the given value rank.
func CtxMapRank(rank int) Context {
	return Context{id: ctxMapRank, value: types.IntegerValue(rank)}
}

// CtxMapKey addresses the map entry with the given key.
func CtxMapKey(key types.Value) Context {
	return Context{id: ctxMapKey, value: key}
}

// CtxMapKeyCreate addresses the map entry with the given key, creating it
// with the given order when absent.
func CtxMapKeyCreate(key types.Value, order types.MapOrder) Context {
	return Context{id: ctxMapKey | order.Flag(), value: key}
}

// CtxMapValue addresses the first map entry holding the given value.
func CtxMapValue(value types.Value) Context {
	return Context{id: ctxMapValue, value: value}
}
