// Package proto implements the binary wire protocol spoken with server
// nodes.
//
// Two frame kinds share an 8 byte proto header (version, type, 6 byte
// big-endian payload length):
//
//   - Message frames (type 3) carry a 22 byte message header followed by a
//     field section and an operation section. Requests and responses use
//     the same layout; multi-record responses (scans, queries)
//     concatenate messages back to back inside one frame.
//   - Info frames (type 1) carry the text based admin protocol used for
//     node bootstrap and partition maps.
//
// Message serialization follows a two-pass scheme: sizes are computed
// first, then a single buffer is allocated and filled position by
// position. Parsing never reads past the declared frame length; any
// truncation or size inconsistency surfaces as types.ErrBadResponse
// rather than a panic.
//
// The package also hosts the logging facility for the whole module (see
// logger.go): all packages obtain their named logger via
// logger.GetLogger and share one output format.
package proto
