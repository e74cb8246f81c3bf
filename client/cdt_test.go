package client

import (
	"testing"

	"github.com/ValentinKolb/aspike/lib/cdt"
	"github.com/ValentinKolb/aspike/lib/codec"
	"github.com/ValentinKolb/aspike/lib/policy"
	"github.com/ValentinKolb/aspike/lib/types"
)

func mustOp(t *testing.T, op *types.Operation, err error) *types.Operation {
	t.Helper()
	if err != nil {
		t.Fatalf("failed to build operation: %v", err)
	}
	return op
}

// TestOperateMapNestedContext writes through a map-key context path:
// only the addressed nested map may change.
func TestOperateMapNestedContext(t *testing.T) {
	client, _ := testClient(t)
	key := mustKey(t, "cdt-nested")

	tree := types.MapValue{Entries: []types.MapPair{
		{Key: types.StringValue("key1"), Value: types.MapValue{Entries: []types.MapPair{
			{Key: types.StringValue("key11"), Value: types.IntegerValue(9)},
		}}},
		{Key: types.StringValue("key2"), Value: types.MapValue{Entries: []types.MapPair{
			{Key: types.StringValue("key21"), Value: types.IntegerValue(3)},
		}}},
	}}
	if err := client.Put(nil, key, types.BinMap{"tree": tree}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	rawOp, opErr := cdt.MapPutOp(nil, "tree",
		types.StringValue("key21"), types.IntegerValue(11),
		cdt.CtxMapKey(types.StringValue("key2")))
	op := mustOp(t, rawOp, opErr)
	if _, err := client.Operate(nil, key, op); err != nil {
		t.Fatalf("operate failed: %v", err)
	}

	record, err := client.Get(nil, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	got, ok := record.Bins["tree"].(types.MapValue)
	if !ok {
		t.Fatalf("tree bin = %#v, want a map", record.Bins["tree"])
	}

	inner2, ok := got.Get(types.StringValue("key2"))
	if !ok {
		t.Fatal("key2 missing after context write")
	}
	if v, _ := inner2.(types.MapValue).Get(types.StringValue("key21")); types.Compare(v, types.IntegerValue(11)) != 0 {
		t.Errorf("key2.key21 = %v, want 11", v)
	}

	inner1, ok := got.Get(types.StringValue("key1"))
	if !ok {
		t.Fatal("key1 missing after context write")
	}
	if v, _ := inner1.(types.MapValue).Get(types.StringValue("key11")); types.Compare(v, types.IntegerValue(9)) != 0 {
		t.Errorf("key1.key11 = %v, want untouched 9", v)
	}
}

// TestOperateMapPutAndGet builds a key-ordered map bin operation by
// operation and reads entries back.
func TestOperateMapPutAndGet(t *testing.T) {
	client, _ := testClient(t)
	key := mustKey(t, "cdt-map")
	mp := policy.NewOrderedMapPolicy()

	entries := []struct {
		k string
		v int64
	}{{"cherry", 3}, {"apple", 1}, {"banana", 2}}

	for i, e := range entries {
		rawOp, opErr := cdt.MapPutOp(mp, "fruit",
			types.StringValue(e.k), types.IntegerValue(e.v))
		op := mustOp(t, rawOp, opErr)
		record, err := client.Operate(nil, key, op)
		if err != nil {
			t.Fatalf("map put %q failed: %v", e.k, err)
		}
		// a map put returns the map size
		if size := record.Bins["fruit"]; types.Compare(size, types.IntegerValue(i+1)) != 0 {
			t.Errorf("put %q size = %v, want %d", e.k, size, i+1)
		}
	}

	rawSizeOp, sizeErr := cdt.MapSizeOp("fruit")
	sizeOp := mustOp(t, rawSizeOp, sizeErr)
	record, err := client.Operate(nil, key, sizeOp)
	if err != nil {
		t.Fatalf("map size failed: %v", err)
	}
	if v := record.Bins["fruit"]; types.Compare(v, types.IntegerValue(3)) != 0 {
		t.Errorf("map size = %v, want 3", v)
	}

	rawGetOp, getErr := cdt.MapGetByKeyOp("fruit", types.StringValue("banana"), cdt.ReturnValue)
	getOp := mustOp(t, rawGetOp, getErr)
	record, err = client.Operate(nil, key, getOp)
	if err != nil {
		t.Fatalf("map get failed: %v", err)
	}
	if v := record.Bins["fruit"]; types.Compare(v, types.IntegerValue(2)) != 0 {
		t.Errorf("banana = %v, want 2", v)
	}

	// the whole bin reads back key-ordered
	full, err := client.Get(nil, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	m, ok := full.Bins["fruit"].(types.MapValue)
	if !ok || m.Order != types.MapKeyOrdered {
		t.Fatalf("fruit bin = %#v, want a key-ordered map", full.Bins["fruit"])
	}
	wantOrder := []string{"apple", "banana", "cherry"}
	for i, e := range m.Entries {
		if string(e.Key.(types.StringValue)) != wantOrder[i] {
			t.Errorf("entry %d key = %v, want %q", i, e.Key, wantOrder[i])
		}
	}
}

// TestOperateListOps appends to a list bin and reads elements back by
// index.
func TestOperateListOps(t *testing.T) {
	client, _ := testClient(t)
	key := mustKey(t, "cdt-list")

	for i, v := range []int64{10, 20, 30} {
		rawOp, opErr := cdt.ListAppendOp(nil, "seq", types.IntegerValue(v))
		op := mustOp(t, rawOp, opErr)
		record, err := client.Operate(nil, key, op)
		if err != nil {
			t.Fatalf("list append failed: %v", err)
		}
		if size := record.Bins["seq"]; types.Compare(size, types.IntegerValue(i+1)) != 0 {
			t.Errorf("append size = %v, want %d", size, i+1)
		}
	}

	rawGetOp, getErr := cdt.ListGetByIndexOp("seq", 1, cdt.ReturnValue)
	getOp := mustOp(t, rawGetOp, getErr)
	record, err := client.Operate(nil, key, getOp)
	if err != nil {
		t.Fatalf("list get failed: %v", err)
	}
	if v := record.Bins["seq"]; types.Compare(v, types.IntegerValue(20)) != 0 {
		t.Errorf("seq[1] = %v, want 20", v)
	}

	rawSizeOp, sizeErr := cdt.ListSizeOp("seq")
	sizeOp := mustOp(t, rawSizeOp, sizeErr)
	record, err = client.Operate(nil, key, sizeOp)
	if err != nil {
		t.Fatalf("list size failed: %v", err)
	}
	if v := record.Bins["seq"]; types.Compare(v, types.IntegerValue(3)) != 0 {
		t.Errorf("list size = %v, want 3", v)
	}
}

// TestOperateContextOnScalar tests that a context step resolving against
// a non-collection bin is a hard server error.
func TestOperateContextOnScalar(t *testing.T) {
	client, _ := testClient(t)
	key := mustKey(t, "cdt-scalar")

	if err := client.Put(nil, key, types.BinMap{"flat": types.StringValue("scalar")}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	rawOp, opErr := cdt.MapPutOp(nil, "flat",
		types.StringValue("k"), types.IntegerValue(1),
		cdt.CtxMapKey(types.StringValue("missing")))
	op := mustOp(t, rawOp, opErr)
	_, err := client.Operate(nil, key, op)
	if !types.IsServerError(err, types.ResultBinTypeError) {
		t.Errorf("expected bin-type error, got %v", err)
	}
}

// TestFilterExpression tests that a non-matching filter expression
// surfaces the filtered-out result code, and a matching one passes.
func TestFilterExpression(t *testing.T) {
	client, _ := testClient(t)
	key := mustKey(t, "filtered")

	if err := client.Put(nil, key, types.BinMap{"x": types.IntegerValue(1)}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	noMatch, err := codec.PackedValue(types.BoolValue(false))
	if err != nil {
		t.Fatalf("failed to pack expression: %v", err)
	}
	p := policy.NewBasePolicy()
	p.FilterExpression = noMatch
	if _, err := client.Get(p, key); !types.IsServerError(err, types.ResultFilteredOut) {
		t.Errorf("expected filtered-out, got %v", err)
	}

	match, err := codec.PackedValue(types.BoolValue(true))
	if err != nil {
		t.Fatalf("failed to pack expression: %v", err)
	}
	p = policy.NewBasePolicy()
	p.FilterExpression = match
	if _, err := client.Get(p, key); err != nil {
		t.Errorf("matching filter should pass, got %v", err)
	}
}
