// Package stub runs an in-process node speaking the real wire protocol
// on a loopback listener: the info bootstrap commands (node id, features,
// partition generation, replicas-all), single-record messages and
// partition scan streams, backed by a digest-keyed in-memory table.
//
// It exists for the package tests - a client pointed at Stub.Addr()
// exercises the full stack from policy to socket without an external
// server. Scans return each partition's records in digest order, so the
// resume cursors behave like the real thing. The common list and map CDT
// sub-commands are interpreted, including context paths into nested
// collections; opcodes outside that set answer with the
// unsupported-feature result code.
package stub
