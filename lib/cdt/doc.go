// Package cdt builds the binary sub-commands for complex-data-type
// operations: lists, maps, bitwise blobs and HyperLogLog bins.
//
// Every CDT family has its own opcode space and argument layout but all
// share the same envelope: without context the sub-command is the raw
// big-endian 16-bit opcode followed by packed arguments; with context it
// is a packed three-element array [0xff, [ctx-id, ctx-value, ...],
// [opcode, args...]]. The server resolves the context steps left to right,
// each step narrowing into the sub-collection resolved by the previous
// one, before applying the command.
//
// Constructors return types.Operation values ready for the message framer.
// Structural errors - a nil context value, a create step without an order,
// arguments the family cannot express - surface at construction time as
// ValueError; semantic failures (type mismatch at the server, element not
// found) only show up in the response result code.
//
// The ReturnType argument of read and remove operations controls what the
// server echoes back; ReturnType.Inverted() flips the selection to the
// complement where the family supports it.
package cdt
