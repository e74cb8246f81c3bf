package client

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ValentinKolb/aspike/lib/policy"
	"github.com/ValentinKolb/aspike/lib/types"
	"github.com/ValentinKolb/aspike/stub"
)

// testClient starts a stub node and a client connected to it
func testClient(t *testing.T) (*Client, *stub.Stub) {
	t.Helper()

	node, err := stub.Serve("stub-a")
	if err != nil {
		t.Fatalf("failed to start stub: %v", err)
	}
	t.Cleanup(node.Close)

	client, err := NewClient(nil, node.Addr())
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(client.Close)

	return client, node
}

func mustKey(t *testing.T, userKey interface{}) *types.Key {
	t.Helper()
	key, err := types.NewKey("test", "demo", userKey)
	if err != nil {
		t.Fatalf("failed to create key: %v", err)
	}
	return key
}

func TestPutGetRoundTrip(t *testing.T) {
	client, _ := testClient(t)
	key := mustKey(t, "user-1")

	bins := types.BinMap{
		"name":   types.StringValue("alice"),
		"age":    types.IntegerValue(42),
		"raw":    types.BytesValue{0xde, 0xad},
		"active": types.BoolValue(true),
	}
	if err := client.Put(nil, key, bins); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	record, err := client.Get(nil, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !reflect.DeepEqual(record.Bins, bins) {
		t.Errorf("bins mismatch: got %v, want %v", record.Bins, bins)
	}
	if record.Generation != 1 {
		t.Errorf("expected generation 1, got %d", record.Generation)
	}
}

func TestGetSelectedBins(t *testing.T) {
	client, _ := testClient(t)
	key := mustKey(t, "user-2")

	bins := types.BinMap{
		"a": types.IntegerValue(1),
		"b": types.IntegerValue(2),
		"c": types.IntegerValue(3),
	}
	if err := client.Put(nil, key, bins); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	record, err := client.Get(nil, key, "a", "c")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	want := types.BinMap{"a": types.IntegerValue(1), "c": types.IntegerValue(3)}
	if !reflect.DeepEqual(record.Bins, want) {
		t.Errorf("bins mismatch: got %v, want %v", record.Bins, want)
	}
}

func TestGetMissingRecord(t *testing.T) {
	client, _ := testClient(t)

	_, err := client.Get(nil, mustKey(t, "nobody"))
	if !types.IsServerError(err, types.ResultKeyNotFound) {
		t.Errorf("expected key-not-found, got %v", err)
	}
}

func TestGetHeaderOmitsBins(t *testing.T) {
	client, _ := testClient(t)
	key := mustKey(t, "user-3")

	if err := client.Put(nil, key, types.BinMap{"x": types.IntegerValue(7)}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	record, err := client.GetHeader(nil, key)
	if err != nil {
		t.Fatalf("get header failed: %v", err)
	}
	if len(record.Bins) != 0 {
		t.Errorf("expected no bins, got %v", record.Bins)
	}
	if record.Generation != 1 {
		t.Errorf("expected generation 1, got %d", record.Generation)
	}
}

func TestExists(t *testing.T) {
	client, _ := testClient(t)
	key := mustKey(t, "user-4")

	exists, err := client.Exists(nil, key)
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if exists {
		t.Error("record should not exist yet")
	}

	if err := client.Put(nil, key, types.BinMap{"x": types.IntegerValue(1)}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	exists, err = client.Exists(nil, key)
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if !exists {
		t.Error("record should exist")
	}
}

func TestDelete(t *testing.T) {
	client, _ := testClient(t)
	key := mustKey(t, "user-5")

	existed, err := client.Delete(nil, key)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if existed {
		t.Error("delete of a missing record reported existed")
	}

	if err := client.Put(nil, key, types.BinMap{"x": types.IntegerValue(1)}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	existed, err = client.Delete(nil, key)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !existed {
		t.Error("delete of an existing record reported missing")
	}

	if _, err := client.Get(nil, key); !types.IsServerError(err, types.ResultKeyNotFound) {
		t.Errorf("expected key-not-found after delete, got %v", err)
	}
}

func TestTouchBumpsGeneration(t *testing.T) {
	client, _ := testClient(t)
	key := mustKey(t, "user-6")

	if err := client.Put(nil, key, types.BinMap{"x": types.IntegerValue(1)}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := client.Touch(nil, key); err != nil {
		t.Fatalf("touch failed: %v", err)
	}

	record, err := client.GetHeader(nil, key)
	if err != nil {
		t.Fatalf("get header failed: %v", err)
	}
	if record.Generation != 2 {
		t.Errorf("expected generation 2 after touch, got %d", record.Generation)
	}
}

// --------------------------------------------------------------------------
// Write Policies
// --------------------------------------------------------------------------

func TestRecordExistsActions(t *testing.T) {
	client, _ := testClient(t)
	key := mustKey(t, "user-7")
	bins := types.BinMap{"x": types.IntegerValue(1)}

	updateOnly := policy.NewWritePolicy()
	updateOnly.RecordExistsAction = policy.UpdateOnly
	if err := client.Put(updateOnly, key, bins); !types.IsServerError(err, types.ResultKeyNotFound) {
		t.Errorf("update-only on a missing record: expected key-not-found, got %v", err)
	}

	createOnly := policy.NewWritePolicy()
	createOnly.RecordExistsAction = policy.CreateOnly
	if err := client.Put(createOnly, key, bins); err != nil {
		t.Fatalf("create-only put failed: %v", err)
	}
	if err := client.Put(createOnly, key, bins); !types.IsServerError(err, types.ResultKeyExists) {
		t.Errorf("create-only on an existing record: expected key-exists, got %v", err)
	}
}

func TestReplaceDropsOtherBins(t *testing.T) {
	client, _ := testClient(t)
	key := mustKey(t, "user-8")

	if err := client.Put(nil, key, types.BinMap{
		"a": types.IntegerValue(1),
		"b": types.IntegerValue(2),
	}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	replace := policy.NewWritePolicy()
	replace.RecordExistsAction = policy.Replace
	if err := client.Put(replace, key, types.BinMap{"c": types.IntegerValue(3)}); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	record, err := client.Get(nil, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	want := types.BinMap{"c": types.IntegerValue(3)}
	if !reflect.DeepEqual(record.Bins, want) {
		t.Errorf("bins mismatch after replace: got %v, want %v", record.Bins, want)
	}
}

func TestGenerationCheck(t *testing.T) {
	client, _ := testClient(t)
	key := mustKey(t, "user-9")

	if err := client.Put(nil, key, types.BinMap{"x": types.IntegerValue(1)}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	stale := policy.NewWritePolicy()
	stale.GenerationPolicy = policy.ExpectGenEqual
	stale.Generation = 99
	err := client.Put(stale, key, types.BinMap{"x": types.IntegerValue(2)})
	if !types.IsServerError(err, types.ResultGenerationError) {
		t.Errorf("expected generation error, got %v", err)
	}

	current := policy.NewWritePolicy()
	current.GenerationPolicy = policy.ExpectGenEqual
	current.Generation = 1
	if err := client.Put(current, key, types.BinMap{"x": types.IntegerValue(2)}); err != nil {
		t.Fatalf("generation-checked put failed: %v", err)
	}
}

// --------------------------------------------------------------------------
// Operate
// --------------------------------------------------------------------------

func TestOperateMixedOps(t *testing.T) {
	client, _ := testClient(t)
	key := mustKey(t, "user-10")

	if err := client.Put(nil, key, types.BinMap{
		"count": types.IntegerValue(10),
		"tag":   types.StringValue("v"),
	}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	add, err := AddOp("count", 5)
	if err != nil {
		t.Fatalf("add op: %v", err)
	}
	app, err := AppendOp("tag", "1")
	if err != nil {
		t.Fatalf("append op: %v", err)
	}

	record, err := client.Operate(nil, key, add, app, GetBinOp("count"), GetBinOp("tag"))
	if err != nil {
		t.Fatalf("operate failed: %v", err)
	}
	want := types.BinMap{
		"count": types.IntegerValue(15),
		"tag":   types.StringValue("v1"),
	}
	if !reflect.DeepEqual(record.Bins, want) {
		t.Errorf("bins mismatch: got %v, want %v", record.Bins, want)
	}
}

func TestOperateDeleteBin(t *testing.T) {
	client, _ := testClient(t)
	key := mustKey(t, "user-11")

	if err := client.Put(nil, key, types.BinMap{
		"keep": types.IntegerValue(1),
		"drop": types.IntegerValue(2),
	}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	if _, err := client.Operate(nil, key, DeleteBinOp("drop")); err != nil {
		t.Fatalf("operate failed: %v", err)
	}

	record, err := client.Get(nil, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	want := types.BinMap{"keep": types.IntegerValue(1)}
	if !reflect.DeepEqual(record.Bins, want) {
		t.Errorf("bins mismatch: got %v, want %v", record.Bins, want)
	}
}

func TestOperateNoOps(t *testing.T) {
	client, _ := testClient(t)

	_, err := client.Operate(nil, mustKey(t, "user-12"))
	if !errors.Is(err, types.ErrValue) {
		t.Errorf("expected value error, got %v", err)
	}
}

// --------------------------------------------------------------------------
// Executor Behavior
// --------------------------------------------------------------------------

func TestReadRetriesOnDroppedConnection(t *testing.T) {
	client, node := testClient(t)
	key := mustKey(t, "user-13")

	if err := client.Put(nil, key, types.BinMap{"x": types.IntegerValue(1)}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	node.DropConnections(1)

	p := policy.NewBasePolicy()
	p.MaxRetries = 2
	record, err := client.Get(p, key)
	if err != nil {
		t.Fatalf("get should have retried past the dropped connection: %v", err)
	}
	if !reflect.DeepEqual(record.Bins["x"], types.IntegerValue(1)) {
		t.Errorf("unexpected bins: %v", record.Bins)
	}
}

func TestWriteConnectionErrorSurfaces(t *testing.T) {
	client, node := testClient(t)
	key := mustKey(t, "user-14")

	// Writes retry connection errors too - only timeouts are special.
	// Exhaust the retries instead to check the error surfaces.
	node.DropConnections(3)

	p := policy.NewWritePolicy()
	p.MaxRetries = 1
	err := client.Put(p, key, types.BinMap{"x": types.IntegerValue(1)})
	if !errors.Is(err, types.ErrConnection) {
		t.Errorf("expected connection error after exhausted retries, got %v", err)
	}
}

func TestTotalTimeout(t *testing.T) {
	client, node := testClient(t)
	key := mustKey(t, "user-15")

	node.DropConnections(100)

	p := policy.NewBasePolicy()
	p.TotalTimeout = 50 * time.Millisecond
	p.MaxRetries = 100
	p.SleepBetweenRetries = 10 * time.Millisecond

	_, err := client.Get(p, key)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, types.ErrTotalTimeout) && !errors.Is(err, types.ErrConnection) {
		t.Errorf("expected total-timeout or connection error, got %v", err)
	}
}

func TestClosedClient(t *testing.T) {
	client, _ := testClient(t)
	client.Close()

	_, err := client.Get(nil, mustKey(t, "user-16"))
	if !errors.Is(err, types.ErrClientClosed) {
		t.Errorf("expected client-closed error, got %v", err)
	}
}

func TestRequestInfo(t *testing.T) {
	client, _ := testClient(t)

	values, err := client.RequestInfo(nil, "node", "features")
	if err != nil {
		t.Fatalf("request info failed: %v", err)
	}
	if values["node"] != "stub-a" {
		t.Errorf("expected node id stub-a, got %q", values["node"])
	}
}
