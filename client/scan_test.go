package client

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/ValentinKolb/aspike/lib/policy"
	"github.com/ValentinKolb/aspike/lib/types"
)

// seedRecords writes n records and returns them keyed by user key
func seedRecords(t *testing.T, client *Client, setName string, n int) map[string]types.BinMap {
	t.Helper()

	want := make(map[string]types.BinMap, n)
	for i := 0; i < n; i++ {
		userKey := fmt.Sprintf("scan-%d", i)
		key, err := types.NewKey("test", setName, userKey)
		if err != nil {
			t.Fatalf("failed to create key: %v", err)
		}
		bins := types.BinMap{
			"id":   types.IntegerValue(int64(i)),
			"name": types.StringValue(userKey),
		}
		if err := client.Put(nil, key, bins); err != nil {
			t.Fatalf("put failed: %v", err)
		}
		want[userKey] = bins
	}
	return want
}

// drain collects a recordset into bins-by-name, failing on stream errors
func drain(t *testing.T, rs *Recordset) []types.BinMap {
	t.Helper()

	var records []types.BinMap
	for res := range rs.Results() {
		if res.Err != nil {
			t.Fatalf("stream error: %v", res.Err)
		}
		records = append(records, res.Record.Bins)
	}
	return records
}

func TestScanAllPartitions(t *testing.T) {
	client, _ := testClient(t)
	want := seedRecords(t, client, "scan", 25)

	pf := NewPartitionFilterAll()
	rs, err := client.ScanPartitions(nil, pf, "test", "scan")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	records := drain(t, rs)
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(records))
	}
	for _, bins := range records {
		name := string(bins["name"].(types.StringValue))
		if !reflect.DeepEqual(bins, want[name]) {
			t.Errorf("record %s mismatch: got %v, want %v", name, bins, want[name])
		}
	}
	if !pf.Done() {
		t.Error("filter should report done after a full scan")
	}
}

func TestScanSelectedBins(t *testing.T) {
	client, _ := testClient(t)
	seedRecords(t, client, "scan", 5)

	rs, err := client.ScanPartitions(nil, NewPartitionFilterAll(), "test", "scan", "id")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	for _, bins := range drain(t, rs) {
		if len(bins) != 1 {
			t.Errorf("expected only the id bin, got %v", bins)
		}
		if _, ok := bins["id"]; !ok {
			t.Errorf("id bin missing: %v", bins)
		}
	}
}

func TestScanWithoutBinData(t *testing.T) {
	client, _ := testClient(t)
	seedRecords(t, client, "scan", 5)

	p := policy.NewScanPolicy()
	p.IncludeBinData = false

	rs, err := client.ScanPartitions(p, NewPartitionFilterAll(), "test", "scan")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	count := 0
	for res := range rs.Results() {
		if res.Err != nil {
			t.Fatalf("stream error: %v", res.Err)
		}
		if len(res.Record.Bins) != 0 {
			t.Errorf("expected no bins, got %v", res.Record.Bins)
		}
		count++
	}
	if count != 5 {
		t.Errorf("expected 5 records, got %d", count)
	}
}

func TestScanSetFiltering(t *testing.T) {
	client, _ := testClient(t)
	seedRecords(t, client, "left", 4)
	seedRecords(t, client, "right", 3)

	rs, err := client.ScanPartitions(nil, NewPartitionFilterAll(), "test", "right")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if got := len(drain(t, rs)); got != 3 {
		t.Errorf("expected 3 records from set right, got %d", got)
	}
}

func TestScanMaxRecordsAndResume(t *testing.T) {
	client, _ := testClient(t)
	want := seedRecords(t, client, "scan", 20)

	pf := NewPartitionFilterAll()
	seen := make(map[string]struct{})

	// Page through the namespace until the filter reports done.
	for pages := 0; !pf.Done(); pages++ {
		if pages > 10 {
			t.Fatal("scan did not converge")
		}

		p := policy.NewScanPolicy()
		p.MaxRecords = 6

		rs, err := client.ScanPartitions(p, pf, "test", "scan")
		if err != nil {
			t.Fatalf("scan page failed: %v", err)
		}
		for _, bins := range drain(t, rs) {
			name := string(bins["name"].(types.StringValue))
			if _, dup := seen[name]; dup {
				t.Errorf("record %s returned twice across pages", name)
			}
			seen[name] = struct{}{}
		}
	}

	if len(seen) != len(want) {
		t.Errorf("expected %d distinct records across pages, got %d", len(want), len(seen))
	}
}

func TestScanPartitionRange(t *testing.T) {
	client, _ := testClient(t)
	want := seedRecords(t, client, "scan", 30)

	// Two disjoint halves must cover every record exactly once.
	lower, err := client.ScanPartitions(nil, NewPartitionFilterRange(0, 2048), "test", "scan")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	upper, err := client.ScanPartitions(nil, NewPartitionFilterRange(2048, 2048), "test", "scan")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	seen := make(map[string]struct{})
	for _, bins := range append(drain(t, lower), drain(t, upper)...) {
		name := string(bins["name"].(types.StringValue))
		if _, dup := seen[name]; dup {
			t.Errorf("record %s returned by both halves", name)
		}
		seen[name] = struct{}{}
	}
	if len(seen) != len(want) {
		t.Errorf("expected %d records across both halves, got %d", len(want), len(seen))
	}
}

func TestScanFilterSingleOwner(t *testing.T) {
	client, _ := testClient(t)

	// More records than the result buffer holds, so the producer is still
	// running (and the filter still owned) when the second scan starts.
	seedRecords(t, client, "scan", 200)

	pf := NewPartitionFilterAll()
	rs, err := client.ScanPartitions(nil, pf, "test", "scan")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	if _, err := client.ScanPartitions(nil, pf, "test", "scan"); err == nil {
		t.Error("second scan on a busy filter should fail")
	}

	drain(t, rs)
}

func TestScanInvalidRange(t *testing.T) {
	client, _ := testClient(t)

	if _, err := client.ScanPartitions(nil, NewPartitionFilterRange(4000, 200), "test", "scan"); err == nil {
		t.Error("out-of-range filter should fail")
	}
}

func TestRecordsetClose(t *testing.T) {
	client, _ := testClient(t)
	seedRecords(t, client, "scan", 50)

	rs, err := client.ScanPartitions(nil, NewPartitionFilterAll(), "test", "scan")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	rs.Close()
	for range rs.Results() {
		// Drain whatever was in flight; the channel must close.
	}
}

func TestQueryProjection(t *testing.T) {
	client, _ := testClient(t)
	seedRecords(t, client, "scan", 8)

	rs, err := client.QueryPartitions(nil, NewPartitionFilterAll(), "test", "scan", "name")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	records := drain(t, rs)
	if len(records) != 8 {
		t.Fatalf("expected 8 records, got %d", len(records))
	}
	for _, bins := range records {
		if len(bins) != 1 {
			t.Errorf("expected only the name bin, got %v", bins)
		}
	}
}
