package proto

import (
	"encoding/binary"
	"io"

	"github.com/ValentinKolb/aspike/lib/codec"
	"github.com/ValentinKolb/aspike/lib/types"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("proto")

// --------------------------------------------------------------------------
// Wire Constants
// --------------------------------------------------------------------------

const (
	protoVersion = 2

	// FrameMessage carries binary record messages.
	FrameMessage byte = 3
	// FrameInfo carries the text based admin protocol.
	FrameInfo byte = 1

	protoHeaderSize   = 8
	messageHeaderSize = 22

	// TotalHeaderSize is the proto header plus the message header.
	TotalHeaderSize = protoHeaderSize + messageHeaderSize

	// maxFrameSize guards against reading garbage lengths from a broken
	// peer. 128 MiB is far above any legitimate response.
	maxFrameSize = 128 << 20
)

// Read attribute flags (info1).
const (
	Info1Read      uint8 = 1 << 0
	Info1GetAll    uint8 = 1 << 1
	Info1NoBinData uint8 = 1 << 5
)

// Write attribute flags (info2).
const (
	Info2Write         uint8 = 1 << 0
	Info2Delete        uint8 = 1 << 1
	Info2Generation    uint8 = 1 << 2
	Info2GenerationGT  uint8 = 1 << 3
	Info2DurableDelete uint8 = 1 << 4
	Info2CreateOnly    uint8 = 1 << 5
	Info2RespondAllOps uint8 = 1 << 7
)

// Extended attribute flags (info3).
const (
	Info3Last            uint8 = 1 << 0
	Info3PartitionDone   uint8 = 1 << 2
	Info3UpdateOnly      uint8 = 1 << 3
	Info3CreateOrReplace uint8 = 1 << 4
	Info3ReplaceOnly     uint8 = 1 << 5
)

// FieldType identifies an entry of a message's field section.
type FieldType uint8

const (
	FieldNamespace    FieldType = 0
	FieldSetName      FieldType = 1
	FieldUserKey      FieldType = 2
	FieldDigest       FieldType = 4
	FieldTaskID       FieldType = 7
	FieldPIDArray     FieldType = 11
	FieldDigestArray  FieldType = 12
	FieldMaxRecords   FieldType = 13
	FieldBValArray    FieldType = 15
	FieldQueryBinList FieldType = 40
	FieldFilterExp    FieldType = 43
)

// --------------------------------------------------------------------------
// Fields
// --------------------------------------------------------------------------

// Field is one entry of a message's field section. The wire size prefix
// counts the type byte plus the payload.
type Field struct {
	Type FieldType
	Data []byte
}

// NamespaceField addresses a namespace.
func NamespaceField(ns string) Field {
	return Field{Type: FieldNamespace, Data: []byte(ns)}
}

// SetNameField addresses a set.
func SetNameField(set string) Field {
	return Field{Type: FieldSetName, Data: []byte(set)}
}

// DigestField addresses a record by digest.
func DigestField(digest [types.DigestSize]byte) Field {
	return Field{Type: FieldDigest, Data: digest[:]}
}

// UserKeyField carries the user key for servers configured to store it.
// The payload is the particle type byte followed by the key bytes in
// digest layout.
func UserKeyField(userKey types.Value) (Field, error) {
	var keyBytes []byte
	switch v := userKey.(type) {
	case types.IntegerValue:
		keyBytes = binary.BigEndian.AppendUint64(nil, uint64(int64(v)))
	case types.StringValue:
		keyBytes = []byte(v)
	case types.BytesValue:
		keyBytes = v
	default:
		return Field{}, types.NewErrorf(types.ErrInvalidKeyType,
			"user key must be string, integer or bytes, got %s", userKey.Type())
	}

	data := make([]byte, 0, len(keyBytes)+1)
	data = append(data, byte(userKey.Type()))
	data = append(data, keyBytes...)
	return Field{Type: FieldUserKey, Data: data}, nil
}

// TaskIDField tags a scan or query stream.
func TaskIDField(id uint64) Field {
	return Field{Type: FieldTaskID, Data: binary.BigEndian.AppendUint64(nil, id)}
}

// PIDArrayField lists the partitions a scan message addresses, as
// little-endian uint16s.
func PIDArrayField(pids []uint16) Field {
	data := make([]byte, 0, len(pids)*2)
	for _, pid := range pids {
		data = binary.LittleEndian.AppendUint16(data, pid)
	}
	return Field{Type: FieldPIDArray, Data: data}
}

// DigestArrayField lists per-partition resume digests.
func DigestArrayField(digests [][types.DigestSize]byte) Field {
	data := make([]byte, 0, len(digests)*types.DigestSize)
	for i := range digests {
		data = append(data, digests[i][:]...)
	}
	return Field{Type: FieldDigestArray, Data: data}
}

// BValArrayField lists per-partition resume bvals, as little-endian
// uint64s.
func BValArrayField(bvals []uint64) Field {
	data := make([]byte, 0, len(bvals)*8)
	for _, b := range bvals {
		data = binary.LittleEndian.AppendUint64(data, b)
	}
	return Field{Type: FieldBValArray, Data: data}
}

// FilterExpressionField carries a packed filter expression the server
// evaluates before applying the operation.
func FilterExpressionField(expr []byte) Field {
	return Field{Type: FieldFilterExp, Data: expr}
}

// MaxRecordsField caps how many records a scan message returns.
func MaxRecordsField(n uint64) Field {
	return Field{Type: FieldMaxRecords, Data: binary.BigEndian.AppendUint64(nil, n)}
}

// QueryBinListField selects the bins a query projects: a 4 byte count
// followed by length-prefixed names.
func QueryBinListField(binNames []string) Field {
	size := 4
	for _, name := range binNames {
		size += 1 + len(name)
	}
	data := make([]byte, 4, size)
	binary.BigEndian.PutUint32(data, uint32(len(binNames)))
	for _, name := range binNames {
		data = append(data, byte(len(name)))
		data = append(data, name...)
	}
	return Field{Type: FieldQueryBinList, Data: data}
}

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message is one request or response message: the 22 byte header values
// plus field and operation sections. Marshal produces the full frame
// including the proto header.
type Message struct {
	Info1, Info2, Info3 uint8
	ResultCode          types.ResultCode
	Generation          uint32
	Expiration          uint32
	TransactionTTL      uint32

	Fields []Field
	Ops    []*types.Operation
}

// sizeBytes calculates the message body size (without the proto header)
func (m *Message) sizeBytes() int {
	size := messageHeaderSize
	for _, f := range m.Fields {
		size += 4 + 1 + len(f.Data)
	}
	for _, op := range m.Ops {
		size += 4 + 4 + len(op.BinName) + len(op.Data)
	}
	return size
}

// Marshal serializes the message into a single frame. The declared proto
// length always equals the serialized body length.
func (m *Message) Marshal() []byte {
	bodySize := m.sizeBytes()
	result := make([]byte, protoHeaderSize+bodySize)

	// Proto header: version, type, 6 byte big-endian length
	result[0] = protoVersion
	result[1] = FrameMessage
	result[2] = byte(bodySize >> 40)
	result[3] = byte(bodySize >> 32)
	binary.BigEndian.PutUint32(result[4:8], uint32(bodySize))

	// Message header
	pos := protoHeaderSize
	result[pos] = messageHeaderSize
	result[pos+1] = m.Info1
	result[pos+2] = m.Info2
	result[pos+3] = m.Info3
	// result[pos+4] unused
	result[pos+5] = byte(m.ResultCode)
	binary.BigEndian.PutUint32(result[pos+6:pos+10], m.Generation)
	binary.BigEndian.PutUint32(result[pos+10:pos+14], m.Expiration)
	binary.BigEndian.PutUint32(result[pos+14:pos+18], m.TransactionTTL)
	binary.BigEndian.PutUint16(result[pos+18:pos+20], uint16(len(m.Fields)))
	binary.BigEndian.PutUint16(result[pos+20:pos+22], uint16(len(m.Ops)))
	pos += messageHeaderSize

	// Field section
	for _, f := range m.Fields {
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(1+len(f.Data)))
		result[pos+4] = byte(f.Type)
		pos += 5
		copy(result[pos:], f.Data)
		pos += len(f.Data)
	}

	// Operation section
	for _, op := range m.Ops {
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(4+len(op.BinName)+len(op.Data)))
		result[pos+4] = byte(op.OpType)
		result[pos+5] = byte(op.ParticleType)
		result[pos+6] = 0 // bin version
		result[pos+7] = byte(len(op.BinName))
		pos += 8
		copy(result[pos:], op.BinName)
		pos += len(op.BinName)
		copy(result[pos:], op.Data)
		pos += len(op.Data)
	}

	return result
}

// --------------------------------------------------------------------------
// Frame I/O
// --------------------------------------------------------------------------

// ReadFrame reads one frame: the 8 byte proto header, then the declared
// payload. Deadlines are the caller's business.
func ReadFrame(r io.Reader) (frameType byte, payload []byte, err error) {
	header := make([]byte, protoHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, types.WrapError(types.ErrConnection, "read frame header", err)
	}

	if header[0] != protoVersion {
		return 0, nil, types.NewErrorf(types.ErrBadResponse,
			"unsupported protocol version %d", header[0])
	}

	size := uint64(header[2])<<40 | uint64(header[3])<<32 |
		uint64(binary.BigEndian.Uint32(header[4:8]))
	if size > maxFrameSize {
		return 0, nil, types.NewErrorf(types.ErrBadResponse,
			"declared frame size %d exceeds limit", size)
	}

	payload = make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, types.WrapError(types.ErrConnection, "read frame payload", err)
	}
	return header[1], payload, nil
}

// --------------------------------------------------------------------------
// Response Parsing
// --------------------------------------------------------------------------

// Header holds the fixed message header of a parsed response.
type Header struct {
	Info1, Info2, Info3 uint8
	ResultCode          types.ResultCode
	Generation          uint32
	Expiration          uint32
	TransactionTTL      uint32
	FieldCount          uint16
	OpCount             uint16
}

// parseHeader reads the 22 byte header at the start of data
func parseHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < messageHeaderSize {
		return h, types.NewErrorf(types.ErrBadResponse,
			"message header truncated: %d bytes", len(data))
	}
	if data[0] < messageHeaderSize {
		return h, types.NewErrorf(types.ErrBadResponse,
			"declared header size %d too small", data[0])
	}

	h.Info1 = data[1]
	h.Info2 = data[2]
	h.Info3 = data[3]
	h.ResultCode = types.ResultCode(data[5])
	h.Generation = binary.BigEndian.Uint32(data[6:10])
	h.Expiration = binary.BigEndian.Uint32(data[10:14])
	h.TransactionTTL = binary.BigEndian.Uint32(data[14:18])
	h.FieldCount = binary.BigEndian.Uint16(data[18:20])
	h.OpCount = binary.BigEndian.Uint16(data[20:22])
	return h, nil
}

// parseFields walks the field section, returning the parsed fields and the
// offset of the operation section
func parseFields(data []byte, offset int, count uint16) ([]Field, int, error) {
	fields := make([]Field, 0, count)
	for i := 0; i < int(count); i++ {
		if offset+4 > len(data) {
			return nil, 0, types.NewErrorf(types.ErrBadResponse,
				"field %d size truncated", i)
		}
		size := int(binary.BigEndian.Uint32(data[offset : offset+4]))
		offset += 4

		if size < 1 || offset+size > len(data) {
			return nil, 0, types.NewErrorf(types.ErrBadResponse,
				"field %d payload truncated (size %d)", i, size)
		}
		fields = append(fields, Field{
			Type: FieldType(data[offset]),
			Data: data[offset+1 : offset+size],
		})
		offset += size
	}
	return fields, offset, nil
}

// parseOps walks the operation section into a bin map, returning the
// offset past the last operation. When a bin appears more than once
// (RESPOND_ALL_OPS) the last value wins.
func parseOps(data []byte, offset int, count uint16) (types.BinMap, int, error) {
	bins := make(types.BinMap, count)
	for i := 0; i < int(count); i++ {
		if offset+8 > len(data) {
			return nil, 0, types.NewErrorf(types.ErrBadResponse,
				"operation %d header truncated", i)
		}
		size := int(binary.BigEndian.Uint32(data[offset : offset+4]))
		particleType := types.ParticleType(data[offset+5])
		nameLen := int(data[offset+7])
		offset += 8

		valueLen := size - 4 - nameLen
		if valueLen < 0 || offset+nameLen+valueLen > len(data) {
			return nil, 0, types.NewErrorf(types.ErrBadResponse,
				"operation %d payload truncated (size %d, name %d)", i, size, nameLen)
		}

		name := string(data[offset : offset+nameLen])
		offset += nameLen

		value, err := codec.DecodeParticle(particleType, data[offset:offset+valueLen])
		if err != nil {
			return nil, 0, err
		}
		offset += valueLen

		// Null-particle ops are write acknowledgments, not bin values.
		if _, isNull := value.(types.NullValue); !isNull {
			bins[name] = value
		}
	}
	return bins, offset, nil
}

// Request is a message as the serving side sees it: the raw header,
// fields and operations of one request.
type Request struct {
	Header Header
	Fields []Field
	Ops    []*types.Operation
}

// Field returns the first field of the given type, or nil.
func (r *Request) Field(t FieldType) *Field {
	for i := range r.Fields {
		if r.Fields[i].Type == t {
			return &r.Fields[i]
		}
	}
	return nil
}

// ParseRequest decodes a request message, keeping the operations in wire
// form (type, bin name, particle bytes) instead of folding them into a
// bin map.
func ParseRequest(payload []byte) (*Request, error) {
	h, err := parseHeader(payload)
	if err != nil {
		return nil, err
	}

	fields, offset, err := parseFields(payload, messageHeaderSize, h.FieldCount)
	if err != nil {
		return nil, err
	}

	ops := make([]*types.Operation, 0, h.OpCount)
	for i := 0; i < int(h.OpCount); i++ {
		if offset+8 > len(payload) {
			return nil, types.NewErrorf(types.ErrBadResponse,
				"operation %d header truncated", i)
		}
		size := int(binary.BigEndian.Uint32(payload[offset : offset+4]))
		opType := types.OperationType(payload[offset+4])
		particleType := types.ParticleType(payload[offset+5])
		nameLen := int(payload[offset+7])
		offset += 8

		dataLen := size - 4 - nameLen
		if dataLen < 0 || offset+nameLen+dataLen > len(payload) {
			return nil, types.NewErrorf(types.ErrBadResponse,
				"operation %d payload truncated (size %d, name %d)", i, size, nameLen)
		}
		ops = append(ops, &types.Operation{
			OpType:       opType,
			BinName:      string(payload[offset : offset+nameLen]),
			ParticleType: particleType,
			Data:         payload[offset+nameLen : offset+nameLen+dataLen],
		})
		offset += nameLen + dataLen
	}
	if offset != len(payload) {
		return nil, types.NewErrorf(types.ErrBadResponse,
			"%d trailing bytes after last operation", len(payload)-offset)
	}

	return &Request{Header: h, Fields: fields, Ops: ops}, nil
}

// WrapFrame prepends the proto header to a payload. Used on the serving
// side, where a stream frame concatenates several message bodies.
func WrapFrame(frameType byte, payload []byte) []byte {
	result := make([]byte, protoHeaderSize+len(payload))
	result[0] = protoVersion
	result[1] = frameType
	result[2] = byte(len(payload) >> 40)
	result[3] = byte(len(payload) >> 32)
	binary.BigEndian.PutUint32(result[4:8], uint32(len(payload)))
	copy(result[protoHeaderSize:], payload)
	return result
}

// MarshalBody serializes the message body without the proto header.
func (m *Message) MarshalBody() []byte {
	return m.Marshal()[protoHeaderSize:]
}

// ParseRecord parses a single-record response frame. A non-zero result
// code surfaces as *types.ServerError and the payload is not interpreted
// further.
func ParseRecord(key *types.Key, payload []byte) (*types.Record, error) {
	h, err := parseHeader(payload)
	if err != nil {
		return nil, err
	}
	if h.ResultCode != types.ResultOK {
		return nil, types.NewServerError(h.ResultCode)
	}

	_, offset, err := parseFields(payload, messageHeaderSize, h.FieldCount)
	if err != nil {
		return nil, err
	}

	bins, offset, err := parseOps(payload, offset, h.OpCount)
	if err != nil {
		return nil, err
	}
	if offset != len(payload) {
		return nil, types.NewErrorf(types.ErrBadResponse,
			"%d trailing bytes after last operation", len(payload)-offset)
	}

	return &types.Record{
		Key:        key,
		Bins:       bins,
		Generation: h.Generation,
		Expiration: h.Expiration,
	}, nil
}

// --------------------------------------------------------------------------
// Multi-Record Parsing (scan / query streams)
// --------------------------------------------------------------------------

// StreamRecord is one record of a scan or query stream, with the bval
// cursor needed to resume a partition.
type StreamRecord struct {
	Key    *types.Key
	Record *types.Record
	BVal   int64
}

// ParseStream walks the consecutive messages of a multi-record frame.
// onRecord receives each record; onPartitionDone receives the partition id
// of every drained partition. Returns true when the stream's final message
// (LAST flag) was seen.
func ParseStream(payload []byte, onRecord func(*StreamRecord) error, onPartitionDone func(pid uint16) error) (bool, error) {
	offset := 0
	for offset < len(payload) {
		h, err := parseHeader(payload[offset:])
		if err != nil {
			return false, err
		}

		if h.Info3&Info3Last != 0 {
			if h.ResultCode != types.ResultOK {
				return false, types.NewServerError(h.ResultCode)
			}
			return true, nil
		}

		if h.Info3&Info3PartitionDone != 0 {
			// The drained partition id travels in the generation slot.
			if h.ResultCode == types.ResultOK && onPartitionDone != nil {
				if err := onPartitionDone(uint16(h.Generation)); err != nil {
					return false, err
				}
			}
			offset += messageHeaderSize
			continue
		}

		if h.ResultCode != types.ResultOK {
			return false, types.NewServerError(h.ResultCode)
		}

		fields, next, err := parseFields(payload, offset+messageHeaderSize, h.FieldCount)
		if err != nil {
			return false, err
		}

		var (
			namespace, setName string
			digest             [types.DigestSize]byte
			haveDigest         bool
			userKey            types.Value
			bval               int64
		)
		for _, f := range fields {
			switch f.Type {
			case FieldNamespace:
				namespace = string(f.Data)
			case FieldSetName:
				setName = string(f.Data)
			case FieldDigest:
				if len(f.Data) != types.DigestSize {
					return false, types.NewErrorf(types.ErrBadResponse,
						"digest field has %d bytes", len(f.Data))
				}
				copy(digest[:], f.Data)
				haveDigest = true
			case FieldUserKey:
				if userKey, err = parseUserKeyField(f.Data); err != nil {
					return false, err
				}
			case FieldBValArray:
				if len(f.Data) != 8 {
					return false, types.NewErrorf(types.ErrBadResponse,
						"bval field has %d bytes", len(f.Data))
				}
				bval = int64(binary.LittleEndian.Uint64(f.Data))
			}
		}
		if !haveDigest {
			return false, types.NewErrorf(types.ErrBadResponse,
				"stream record without digest field")
		}

		bins, next, err := parseOps(payload, next, h.OpCount)
		if err != nil {
			return false, err
		}
		offset = next

		key := types.NewKeyWithDigest(namespace, setName, digest, userKey)
		sr := &StreamRecord{
			Key: key,
			Record: &types.Record{
				Key:        key,
				Bins:       bins,
				Generation: h.Generation,
				Expiration: h.Expiration,
			},
			BVal: bval,
		}
		if err := onRecord(sr); err != nil {
			return false, err
		}
	}
	return false, nil
}

// parseUserKeyField decodes a stored user key: particle type byte plus key
// bytes in digest layout
func parseUserKeyField(data []byte) (types.Value, error) {
	if len(data) < 1 {
		return nil, types.NewErrorf(types.ErrBadResponse, "empty user key field")
	}
	switch types.ParticleType(data[0]) {
	case types.ParticleInteger:
		if len(data) != 9 {
			return nil, types.NewErrorf(types.ErrBadResponse,
				"integer user key has %d bytes", len(data)-1)
		}
		return types.IntegerValue(int64(binary.BigEndian.Uint64(data[1:]))), nil
	case types.ParticleString:
		return types.StringValue(data[1:]), nil
	case types.ParticleBlob:
		blob := make([]byte, len(data)-1)
		copy(blob, data[1:])
		return types.BytesValue(blob), nil
	default:
		return nil, types.NewErrorf(types.ErrBadResponse,
			"user key field with particle type %d", data[0])
	}
}
