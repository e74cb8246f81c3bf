package stub

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/ValentinKolb/aspike/lib/codec"
	"github.com/ValentinKolb/aspike/lib/types"
	"github.com/ValentinKolb/aspike/proto"
)

func dialStub(t *testing.T) (*Stub, net.Conn) {
	t.Helper()

	s, err := Serve("stub-test", "test", "other")
	if err != nil {
		t.Fatalf("failed to start stub: %v", err)
	}
	t.Cleanup(s.Close)

	conn, err := net.Dial("tcp", s.Addr())
	if err != nil {
		t.Fatalf("failed to dial stub: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return s, conn
}

func TestInfoBootstrap(t *testing.T) {
	_, conn := dialStub(t)

	values, err := proto.RequestInfo(conn, "node", "partition-generation", "features", "namespaces")
	if err != nil {
		t.Fatalf("info request failed: %v", err)
	}

	if values["node"] != "stub-test" {
		t.Errorf("expected node id stub-test, got %q", values["node"])
	}
	if values["partition-generation"] != "0" {
		t.Errorf("expected generation 0, got %q", values["partition-generation"])
	}
	if values["namespaces"] != "test;other" {
		t.Errorf("unexpected namespaces: %q", values["namespaces"])
	}
}

func TestPartitionGenerationBump(t *testing.T) {
	s, conn := dialStub(t)

	s.BumpPartitionGeneration()

	values, err := proto.RequestInfo(conn, "partition-generation")
	if err != nil {
		t.Fatalf("info request failed: %v", err)
	}
	if values["partition-generation"] != "1" {
		t.Errorf("expected generation 1 after bump, got %q", values["partition-generation"])
	}
}

// TestRackIDUpdateDuringInfo changes the rack id while a connection keeps
// querying it; the final answer must be the last value set.
func TestRackIDUpdateDuringInfo(t *testing.T) {
	s, conn := dialStub(t)

	done := make(chan error, 1)
	go func() {
		for i := 0; i < 50; i++ {
			if _, err := proto.RequestInfo(conn, "rack-id"); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	for i := 1; i <= 50; i++ {
		s.SetRackID(i)
	}
	if err := <-done; err != nil {
		t.Fatalf("info request failed: %v", err)
	}

	values, err := proto.RequestInfo(conn, "rack-id")
	if err != nil {
		t.Fatalf("info request failed: %v", err)
	}
	if values["rack-id"] != "50" {
		t.Errorf("expected rack-id 50, got %q", values["rack-id"])
	}
}

// TestBinListCountBound tests that a bin list declaring more names than
// its payload can hold is rejected instead of trusted.
func TestBinListCountBound(t *testing.T) {
	forged := binary.BigEndian.AppendUint32(nil, 0xffffffff)
	if names, ok := parseBinList(forged); ok {
		t.Errorf("expected rejection, got %d names", len(names))
	}

	valid := binary.BigEndian.AppendUint32(nil, 2)
	valid = append(valid, 1, 'a', 1, 'b')
	names, ok := parseBinList(valid)
	if !ok || len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("valid bin list = %v (%v), want [a b]", names, ok)
	}
}

func TestRawWriteRead(t *testing.T) {
	_, conn := dialStub(t)

	key, err := types.NewKey("test", "demo", "raw-1")
	if err != nil {
		t.Fatalf("failed to create key: %v", err)
	}

	ptype, data, err := codec.EncodeParticle(types.IntegerValue(7))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	write := &proto.Message{
		Info2: proto.Info2Write,
		Fields: []proto.Field{
			proto.NamespaceField("test"),
			proto.SetNameField("demo"),
			proto.DigestField(key.Digest()),
		},
		Ops: []*types.Operation{{
			OpType:       types.OpWrite,
			BinName:      "x",
			ParticleType: ptype,
			Data:         data,
		}},
	}
	if _, err := conn.Write(write.Marshal()); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	frameType, payload, err := proto.ReadFrame(conn)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if frameType != proto.FrameMessage {
		t.Fatalf("expected message frame, got %d", frameType)
	}
	if _, err := proto.ParseRecord(key, payload); err != nil {
		t.Fatalf("write response: %v", err)
	}

	read := &proto.Message{
		Info1: proto.Info1Read | proto.Info1GetAll,
		Fields: []proto.Field{
			proto.NamespaceField("test"),
			proto.SetNameField("demo"),
			proto.DigestField(key.Digest()),
		},
	}
	if _, err := conn.Write(read.Marshal()); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, payload, err = proto.ReadFrame(conn); err != nil {
		t.Fatalf("read failed: %v", err)
	}

	record, err := proto.ParseRecord(key, payload)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if record.Bins["x"] != types.IntegerValue(7) {
		t.Errorf("expected x=7, got %v", record.Bins)
	}
	if record.Generation != 1 {
		t.Errorf("expected generation 1, got %d", record.Generation)
	}
}
