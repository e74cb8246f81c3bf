package stub

import (
	"bytes"

	"github.com/ValentinKolb/aspike/lib/codec"
	"github.com/ValentinKolb/aspike/lib/types"
	"github.com/ValentinKolb/aspike/proto"
)

// --------------------------------------------------------------------------
// Record Messages
// --------------------------------------------------------------------------

// handleMessage dispatches one message frame: scans carry a partition
// field, everything else addresses a single record by digest.
func (s *Stub) handleMessage(payload []byte) []byte {
	req, err := proto.ParseRequest(payload)
	if err != nil {
		Logger.Errorf("stub %s: bad request: %v", s.name, err)
		return (&proto.Message{ResultCode: types.ResultParameterError}).Marshal()
	}

	if req.Field(proto.FieldPIDArray) != nil || req.Field(proto.FieldDigestArray) != nil {
		return s.handleScan(req)
	}
	return s.handleRecord(req).Marshal()
}

// handleRecord runs a single-record request against the table
func (s *Stub) handleRecord(req *proto.Request) *proto.Message {
	digestField := req.Field(proto.FieldDigest)
	nsField := req.Field(proto.FieldNamespace)
	if digestField == nil || nsField == nil || len(digestField.Data) != types.DigestSize {
		return &proto.Message{ResultCode: types.ResultParameterError}
	}
	var digest [types.DigestSize]byte
	copy(digest[:], digestField.Data)

	setName := ""
	if f := req.Field(proto.FieldSetName); f != nil {
		setName = string(f.Data)
	}

	if f := req.Field(proto.FieldFilterExp); f != nil {
		if rc := evalFilter(f.Data); rc != types.ResultOK {
			return &proto.Message{ResultCode: rc}
		}
	}

	h := req.Header

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.records[digest]

	// Delete is decided before any operations run.
	if h.Info2&proto.Info2Delete != 0 {
		if rec == nil {
			return &proto.Message{ResultCode: types.ResultKeyNotFound}
		}
		delete(s.records, digest)
		return &proto.Message{}
	}

	if h.Info2&proto.Info2Write != 0 {
		if rc := checkWritePolicies(h, rec); rc != types.ResultOK {
			return &proto.Message{ResultCode: rc}
		}
		if rec == nil {
			rec = &storedRecord{
				key:  types.NewKeyWithDigest(string(nsField.Data), setName, digest, nil),
				bins: make(types.BinMap),
			}
			s.records[digest] = rec
		} else if h.Info3&(proto.Info3CreateOrReplace|proto.Info3ReplaceOnly) != 0 {
			rec.bins = make(types.BinMap)
		}
	} else if rec == nil {
		return &proto.Message{ResultCode: types.ResultKeyNotFound}
	}

	resp := &proto.Message{}
	emittedAll := false
	for _, op := range req.Ops {
		if rc := s.applyOp(rec, op, resp, &emittedAll); rc != types.ResultOK {
			return &proto.Message{ResultCode: rc}
		}
	}

	if h.Info1&proto.Info1GetAll != 0 && h.Info1&proto.Info1NoBinData == 0 && !emittedAll {
		if rc := emitAllBins(rec, resp); rc != types.ResultOK {
			return &proto.Message{ResultCode: rc}
		}
	}

	if h.Info2&proto.Info2Write != 0 {
		rec.generation++
		rec.expiration = h.Expiration
		if len(rec.bins) == 0 {
			// A write that leaves no bins deletes the record.
			delete(s.records, digest)
		}
	}

	resp.Generation = rec.generation
	resp.Expiration = rec.expiration
	return resp
}

// evalFilter interprets a filter expression the minimal way: a packed
// boolean decides the match, anything else passes. The expression is
// evaluated before the record is consulted, so a false filter rejects
// reads and writes alike.
func evalFilter(data []byte) types.ResultCode {
	v, err := codec.UnpackedValue(data)
	if err != nil {
		return types.ResultParameterError
	}
	if b, ok := v.(types.BoolValue); ok && !bool(b) {
		return types.ResultFilteredOut
	}
	return types.ResultOK
}

// checkWritePolicies maps the existence and generation flags to their
// result codes
func checkWritePolicies(h proto.Header, rec *storedRecord) types.ResultCode {
	if h.Info2&proto.Info2CreateOnly != 0 && rec != nil {
		return types.ResultKeyExists
	}
	if h.Info3&(proto.Info3UpdateOnly|proto.Info3ReplaceOnly) != 0 && rec == nil {
		return types.ResultKeyNotFound
	}
	if h.Info2&proto.Info2Generation != 0 && rec != nil && h.Generation != rec.generation {
		return types.ResultGenerationError
	}
	if h.Info2&proto.Info2GenerationGT != 0 && rec != nil && h.Generation <= rec.generation {
		return types.ResultGenerationError
	}
	return types.ResultOK
}

// applyOp runs one operation against the record, appending read results
// to resp
func (s *Stub) applyOp(rec *storedRecord, op *types.Operation, resp *proto.Message, emittedAll *bool) types.ResultCode {
	switch op.OpType {
	case types.OpRead:
		if op.BinName == "" {
			if *emittedAll {
				return types.ResultOK
			}
			*emittedAll = true
			return emitAllBins(rec, resp)
		}
		if value, ok := rec.bins[op.BinName]; ok {
			return emitBin(op.BinName, value, resp)
		}
		return types.ResultOK

	case types.OpWrite:
		value, err := codec.DecodeParticle(op.ParticleType, op.Data)
		if err != nil {
			return types.ResultParameterError
		}
		if _, isNull := value.(types.NullValue); isNull {
			delete(rec.bins, op.BinName)
		} else {
			rec.bins[op.BinName] = value
		}
		return types.ResultOK

	case types.OpAdd:
		delta, ok := decodeAs[types.IntegerValue](op)
		if !ok {
			return types.ResultParameterError
		}
		switch existing := rec.bins[op.BinName].(type) {
		case nil:
			rec.bins[op.BinName] = delta
		case types.IntegerValue:
			rec.bins[op.BinName] = existing + delta
		default:
			return types.ResultBinTypeError
		}
		return types.ResultOK

	case types.OpAppend, types.OpPrepend:
		return applyConcat(rec, op)

	case types.OpTouch:
		// Generation and expiration are updated by the write path.
		return types.ResultOK

	case types.OpDelete:
		rec.bins = make(types.BinMap)
		return types.ResultOK

	case types.OpCDTRead, types.OpCDTModify:
		return applyCDT(rec, op, resp)

	default:
		return types.ResultUnsupportedFeature
	}
}

// applyConcat handles append and prepend for strings and blobs
func applyConcat(rec *storedRecord, op *types.Operation) types.ResultCode {
	value, err := codec.DecodeParticle(op.ParticleType, op.Data)
	if err != nil {
		return types.ResultParameterError
	}

	existing, ok := rec.bins[op.BinName]
	if !ok {
		rec.bins[op.BinName] = value
		return types.ResultOK
	}

	prepend := op.OpType == types.OpPrepend
	switch old := existing.(type) {
	case types.StringValue:
		add, ok := value.(types.StringValue)
		if !ok {
			return types.ResultBinTypeError
		}
		if prepend {
			rec.bins[op.BinName] = add + old
		} else {
			rec.bins[op.BinName] = old + add
		}
	case types.BytesValue:
		add, ok := value.(types.BytesValue)
		if !ok {
			return types.ResultBinTypeError
		}
		if prepend {
			rec.bins[op.BinName] = types.BytesValue(append(bytes.Clone(add), old...))
		} else {
			rec.bins[op.BinName] = types.BytesValue(append(bytes.Clone(old), add...))
		}
	default:
		return types.ResultBinTypeError
	}
	return types.ResultOK
}

// decodeAs decodes an operation's particle into the given value type
func decodeAs[T types.Value](op *types.Operation) (T, bool) {
	var zero T
	value, err := codec.DecodeParticle(op.ParticleType, op.Data)
	if err != nil {
		return zero, false
	}
	typed, ok := value.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// emitBin appends one read result to the response
func emitBin(name string, value types.Value, resp *proto.Message) types.ResultCode {
	ptype, data, err := codec.EncodeParticle(value)
	if err != nil {
		return types.ResultServerError
	}
	resp.Ops = append(resp.Ops, &types.Operation{
		OpType:       types.OpRead,
		BinName:      name,
		ParticleType: ptype,
		Data:         data,
	})
	return types.ResultOK
}

// emitAllBins appends every bin of the record to the response
func emitAllBins(rec *storedRecord, resp *proto.Message) types.ResultCode {
	for name, value := range rec.bins {
		if rc := emitBin(name, value, resp); rc != types.ResultOK {
			return rc
		}
	}
	return types.ResultOK
}
