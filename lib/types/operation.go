package types

// OperationType is the wire op-type byte of an entry in the operation
// section of a message.
type OperationType uint8

const (
	OpRead      OperationType = 1
	OpWrite     OperationType = 2
	OpCDTRead   OperationType = 3
	OpCDTModify OperationType = 4
	OpAdd       OperationType = 5
	OpAppend    OperationType = 9
	OpPrepend   OperationType = 10
	OpTouch     OperationType = 11
	OpBitRead   OperationType = 12
	OpBitModify OperationType = 13
	OpDelete    OperationType = 14
	OpHLLRead   OperationType = 15
	OpHLLModify OperationType = 16
)

// Operation is one entry of a message's operation section, with its value
// already in particle form. Constructed by the op builders in the client
// and cdt packages; the framer serializes it verbatim.
type Operation struct {
	OpType       OperationType
	BinName      string
	ParticleType ParticleType
	Data         []byte
}

// Writable reports whether the operation mutates the record, which decides
// the message's read/write info flags and the idempotency of retries.
func (o *Operation) Writable() bool {
	switch o.OpType {
	case OpRead, OpCDTRead, OpBitRead, OpHLLRead:
		return false
	default:
		return true
	}
}
