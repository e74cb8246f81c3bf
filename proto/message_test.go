package proto

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/ValentinKolb/aspike/lib/codec"
	"github.com/ValentinKolb/aspike/lib/types"
)

// readOp builds a response operation carrying a particle-encoded value
func readOp(t *testing.T, name string, v types.Value) *types.Operation {
	t.Helper()
	ptype, data, err := codec.EncodeParticle(v)
	if err != nil {
		t.Fatalf("encode particle: %v", err)
	}
	return &types.Operation{
		OpType:       types.OpRead,
		BinName:      name,
		ParticleType: ptype,
		Data:         data,
	}
}

func TestMarshalHeaderLayout(t *testing.T) {
	msg := &Message{
		Info1:      Info1Read | Info1GetAll,
		Generation: 7,
		Expiration: 300,
	}
	frame := msg.Marshal()

	if len(frame) != TotalHeaderSize {
		t.Fatalf("frame length = %d, want %d", len(frame), TotalHeaderSize)
	}

	want := []byte{
		2, 3, 0, 0, 0, 0, 0, 22, // proto header: version, message type, length 22
		22,                      // header size
		Info1Read | Info1GetAll, // info1
		0, 0, 0,                 // info2, info3, unused
		0,                       // result code
		0, 0, 0, 7, // generation
		0, 0, 1, 44, // expiration (300)
		0, 0, 0, 0, // transaction ttl
		0, 0, // field count
		0, 0, // op count
	}
	if !bytes.Equal(frame, want) {
		t.Errorf("frame = % x, want % x", frame, want)
	}
}

func TestMarshalDeclaredLengthMatches(t *testing.T) {
	key, err := types.NewKey("test", "demo", "user1")
	if err != nil {
		t.Fatalf("new key: %v", err)
	}

	digest := key.Digest()
	msg := &Message{
		Info2: Info2Write,
		Fields: []Field{
			NamespaceField("test"),
			SetNameField("demo"),
			DigestField(digest),
		},
		Ops: []*types.Operation{
			readOp(t, "a", types.IntegerValue(1)),
			readOp(t, "b", types.StringValue("hello")),
		},
	}
	frame := msg.Marshal()

	declared := int(uint64(frame[2])<<40 | uint64(frame[3])<<32 |
		uint64(frame[4])<<24 | uint64(frame[5])<<16 |
		uint64(frame[6])<<8 | uint64(frame[7]))
	if declared != len(frame)-protoHeaderSize {
		t.Errorf("declared length %d, serialized body %d", declared, len(frame)-protoHeaderSize)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	key, err := types.NewKey("test", "demo", 42)
	if err != nil {
		t.Fatalf("new key: %v", err)
	}

	bins := types.BinMap{
		"count": types.IntegerValue(12),
		"name":  types.StringValue("aspike"),
		"raw":   types.BytesValue{0x01, 0x02},
		"ratio": types.FloatValue(0.5),
		"tags":  types.ListValue{types.IntegerValue(1), types.StringValue("x")},
	}

	msg := &Message{Generation: 3, Expiration: 60}
	for name, v := range bins {
		msg.Ops = append(msg.Ops, readOp(t, name, v))
	}

	frameType, payload, err := ReadFrame(bytes.NewReader(msg.Marshal()))
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if frameType != FrameMessage {
		t.Fatalf("frame type = %d, want %d", frameType, FrameMessage)
	}

	rec, err := ParseRecord(key, payload)
	if err != nil {
		t.Fatalf("parse record: %v", err)
	}
	if rec.Generation != 3 || rec.Expiration != 60 {
		t.Errorf("metadata = (%d, %d), want (3, 60)", rec.Generation, rec.Expiration)
	}
	if !reflect.DeepEqual(rec.Bins, bins) {
		t.Errorf("bins = %v, want %v", rec.Bins, bins)
	}
}

func TestParseRecordServerError(t *testing.T) {
	msg := &Message{ResultCode: types.ResultKeyNotFound}
	_, payload, err := ReadFrame(bytes.NewReader(msg.Marshal()))
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}

	_, err = ParseRecord(nil, payload)
	if !types.IsServerError(err, types.ResultKeyNotFound) {
		t.Errorf("error = %v, want server error %d", err, types.ResultKeyNotFound)
	}
}

func TestParseRecordTruncated(t *testing.T) {
	msg := &Message{
		Fields: []Field{NamespaceField("test")},
		Ops:    []*types.Operation{readOp(t, "a", types.IntegerValue(1))},
	}
	full := msg.Marshal()[protoHeaderSize:]

	// Every proper prefix of the body must fail cleanly.
	for cut := 0; cut < len(full); cut++ {
		if _, err := ParseRecord(nil, full[:cut]); !errors.Is(err, types.ErrBadResponse) {
			t.Fatalf("cut %d: error = %v, want ErrBadResponse", cut, err)
		}
	}

	// Trailing garbage is rejected too.
	if _, err := ParseRecord(nil, append(append([]byte{}, full...), 0x00)); !errors.Is(err, types.ErrBadResponse) {
		t.Errorf("trailing byte: error = %v, want ErrBadResponse", err)
	}
}

func TestReadFrameBadVersion(t *testing.T) {
	frame := []byte{9, 3, 0, 0, 0, 0, 0, 0}
	if _, _, err := ReadFrame(bytes.NewReader(frame)); !errors.Is(err, types.ErrBadResponse) {
		t.Errorf("error = %v, want ErrBadResponse", err)
	}
}

func TestReadFrameShortPayload(t *testing.T) {
	frame := []byte{2, 3, 0, 0, 0, 0, 0, 22} // declares 22 bytes, sends none
	if _, _, err := ReadFrame(bytes.NewReader(frame)); !errors.Is(err, types.ErrConnection) {
		t.Errorf("error = %v, want ErrConnection", err)
	}
}

// streamBody marshals a message and strips the proto header, for
// assembling multi-record frames
func streamBody(msg *Message) []byte {
	return msg.Marshal()[protoHeaderSize:]
}

func TestParseStream(t *testing.T) {
	key1, _ := types.NewKey("test", "demo", 1)
	key2, _ := types.NewKey("test", "demo", 2)

	var buf []byte
	for i, key := range []*types.Key{key1, key2} {
		digest := key.Digest()
		buf = append(buf, streamBody(&Message{
			Generation: uint32(i + 1),
			Fields: []Field{
				NamespaceField("test"),
				SetNameField("demo"),
				DigestField(digest),
			},
			Ops: []*types.Operation{
				{OpType: types.OpRead, BinName: "n", ParticleType: types.ParticleInteger,
					Data: []byte{0, 0, 0, 0, 0, 0, 0, byte(i + 1)}},
			},
		})...)
	}
	// Partition 17 drained, then end of stream.
	buf = append(buf, streamBody(&Message{Info3: Info3PartitionDone, Generation: 17})...)
	buf = append(buf, streamBody(&Message{Info3: Info3Last})...)

	var records []*StreamRecord
	var donePIDs []uint16
	last, err := ParseStream(buf,
		func(sr *StreamRecord) error { records = append(records, sr); return nil },
		func(pid uint16) error { donePIDs = append(donePIDs, pid); return nil })
	if err != nil {
		t.Fatalf("parse stream: %v", err)
	}
	if !last {
		t.Error("last = false, want true")
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	for i, sr := range records {
		wantDigest := []*types.Key{key1, key2}[i].Digest()
		if sr.Key.Digest() != wantDigest {
			t.Errorf("record %d: digest mismatch", i)
		}
		if sr.Key.Namespace != "test" || sr.Key.SetName != "demo" {
			t.Errorf("record %d: key = %s:%s", i, sr.Key.Namespace, sr.Key.SetName)
		}
		want := types.BinMap{"n": types.IntegerValue(i + 1)}
		if !reflect.DeepEqual(sr.Record.Bins, want) {
			t.Errorf("record %d: bins = %v, want %v", i, sr.Record.Bins, want)
		}
	}
	if !reflect.DeepEqual(donePIDs, []uint16{17}) {
		t.Errorf("done partitions = %v, want [17]", donePIDs)
	}
}

func TestParseStreamErrorTermination(t *testing.T) {
	buf := streamBody(&Message{Info3: Info3Last, ResultCode: types.ResultTimeout})
	_, err := ParseStream(buf, func(*StreamRecord) error { return nil }, nil)
	if !types.IsServerError(err, types.ResultTimeout) {
		t.Errorf("error = %v, want server error %d", err, types.ResultTimeout)
	}
}

func TestParseStreamMissingDigest(t *testing.T) {
	buf := streamBody(&Message{
		Fields: []Field{NamespaceField("test")},
	})
	_, err := ParseStream(buf, func(*StreamRecord) error { return nil }, nil)
	if !errors.Is(err, types.ErrBadResponse) {
		t.Errorf("error = %v, want ErrBadResponse", err)
	}
}

func TestUserKeyFieldRoundTrip(t *testing.T) {
	tests := map[string]types.Value{
		"Integer": types.IntegerValue(-7),
		"String":  types.StringValue("user1"),
		"Bytes":   types.BytesValue{0xde, 0xad},
	}
	for name, v := range tests {
		t.Run(name, func(t *testing.T) {
			f, err := UserKeyField(v)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, err := parseUserKeyField(f.Data)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if !reflect.DeepEqual(got, v) {
				t.Errorf("round trip = %v, want %v", got, v)
			}
		})
	}

	t.Run("Float", func(t *testing.T) {
		if _, err := UserKeyField(types.FloatValue(1.5)); !errors.Is(err, types.ErrInvalidKeyType) {
			t.Errorf("error = %v, want ErrInvalidKeyType", err)
		}
	})
}
