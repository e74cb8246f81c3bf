package stub

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/ValentinKolb/aspike/cluster"
	"github.com/ValentinKolb/aspike/lib/types"
	"github.com/ValentinKolb/aspike/proto"
)

// --------------------------------------------------------------------------
// Partition Scans
// --------------------------------------------------------------------------

// scanRequest is the decoded partition selection of a scan message
type scanRequest struct {
	namespace string
	setName   string
	// cursors maps every requested partition to its resume digest (nil
	// for a fresh partition).
	cursors    map[int][]byte
	maxRecords uint64
	binNames   []string
	noBinData  bool
}

// handleScan streams the matching records back in a single frame:
// record messages in digest order per partition, a partition-done marker
// after each drained partition and the last-message trailer.
func (s *Stub) handleScan(req *proto.Request) []byte {
	sreq, ok := parseScanRequest(req)
	if !ok {
		return (&proto.Message{ResultCode: types.ResultParameterError}).Marshal()
	}

	var body []byte

	// Partitions in ascending order keeps the stream deterministic.
	pids := make([]int, 0, len(sreq.cursors))
	for pid := range sreq.cursors {
		pids = append(pids, pid)
	}
	sort.Ints(pids)

	remaining := sreq.maxRecords
	unlimited := sreq.maxRecords == 0

	for _, pid := range pids {
		records := s.partitionRecords(sreq, pid)

		drained := true
		for _, rec := range records {
			if !unlimited && remaining == 0 {
				drained = false
				break
			}
			body = append(body, recordMessage(sreq, rec)...)
			if !unlimited {
				remaining--
			}
		}

		if drained {
			done := &proto.Message{
				Info3:      proto.Info3PartitionDone,
				Generation: uint32(pid),
			}
			body = append(body, done.MarshalBody()...)
		}
	}

	last := &proto.Message{Info3: proto.Info3Last}
	body = append(body, last.MarshalBody()...)
	return proto.WrapFrame(proto.FrameMessage, body)
}

// parseScanRequest decodes the partition selection fields
func parseScanRequest(req *proto.Request) (*scanRequest, bool) {
	nsField := req.Field(proto.FieldNamespace)
	if nsField == nil {
		return nil, false
	}

	sreq := &scanRequest{
		namespace: string(nsField.Data),
		cursors:   make(map[int][]byte),
		noBinData: req.Header.Info1&proto.Info1NoBinData != 0,
	}
	if f := req.Field(proto.FieldSetName); f != nil {
		sreq.setName = string(f.Data)
	}

	if f := req.Field(proto.FieldPIDArray); f != nil {
		if len(f.Data)%2 != 0 {
			return nil, false
		}
		for i := 0; i < len(f.Data); i += 2 {
			sreq.cursors[int(binary.LittleEndian.Uint16(f.Data[i:i+2]))] = nil
		}
	}
	if f := req.Field(proto.FieldDigestArray); f != nil {
		if len(f.Data)%types.DigestSize != 0 {
			return nil, false
		}
		for i := 0; i < len(f.Data); i += types.DigestSize {
			digest := f.Data[i : i+types.DigestSize]
			var fixed [types.DigestSize]byte
			copy(fixed[:], digest)
			sreq.cursors[cluster.PartitionID(fixed)] = digest
		}
	}
	if f := req.Field(proto.FieldMaxRecords); f != nil {
		if len(f.Data) != 8 {
			return nil, false
		}
		sreq.maxRecords = binary.BigEndian.Uint64(f.Data)
	}

	// Bin projection: a query bin list or scan read operations.
	if f := req.Field(proto.FieldQueryBinList); f != nil {
		names, ok := parseBinList(f.Data)
		if !ok {
			return nil, false
		}
		sreq.binNames = names
	}
	for _, op := range req.Ops {
		if op.OpType == types.OpRead && op.BinName != "" {
			sreq.binNames = append(sreq.binNames, op.BinName)
		}
	}

	return sreq, true
}

// parseBinList decodes a query bin list field: 4 byte count, then
// length-prefixed names
func parseBinList(data []byte) ([]string, bool) {
	if len(data) < 4 {
		return nil, false
	}
	count := int(binary.BigEndian.Uint32(data))
	offset := 4

	// every name costs at least its length prefix, so the declared count
	// can never exceed the remaining payload
	if count > len(data)-offset {
		return nil, false
	}

	names := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if offset >= len(data) {
			return nil, false
		}
		nameLen := int(data[offset])
		offset++
		if offset+nameLen > len(data) {
			return nil, false
		}
		names = append(names, string(data[offset:offset+nameLen]))
		offset += nameLen
	}
	return names, true
}

// partitionRecords returns the partition's matching records in digest
// order, skipping past the resume cursor
func (s *Stub) partitionRecords(sreq *scanRequest, pid int) []*storedRecord {
	cursor := sreq.cursors[pid]

	s.mu.Lock()
	defer s.mu.Unlock()

	var records []*storedRecord
	for digest, rec := range s.records {
		if cluster.PartitionID(digest) != pid {
			continue
		}
		if rec.key.Namespace != sreq.namespace {
			continue
		}
		if sreq.setName != "" && rec.key.SetName != sreq.setName {
			continue
		}
		if cursor != nil && bytes.Compare(digest[:], cursor) <= 0 {
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		di, dj := records[i].key.Digest(), records[j].key.Digest()
		return bytes.Compare(di[:], dj[:]) < 0
	})
	return records
}

// recordMessage serializes one record of the stream
func recordMessage(sreq *scanRequest, rec *storedRecord) []byte {
	digest := rec.key.Digest()
	msg := &proto.Message{
		Generation: rec.generation,
		Expiration: rec.expiration,
		Fields: []proto.Field{
			proto.NamespaceField(rec.key.Namespace),
			proto.SetNameField(rec.key.SetName),
			proto.DigestField(digest),
		},
	}

	if !sreq.noBinData {
		if len(sreq.binNames) == 0 {
			emitAllBins(rec, msg)
		} else {
			for _, name := range sreq.binNames {
				if value, ok := rec.bins[name]; ok {
					emitBin(name, value, msg)
				}
			}
		}
	}
	return msg.MarshalBody()
}
