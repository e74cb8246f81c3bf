// Package codec converts values between their in-memory form (lib/types)
// and the on-wire packed representation.
//
// Two representations exist side by side:
//
//   - Particle form: the encoding used for top-level bin values inside the
//     operation section of a message. Scalars are fixed-width big-endian
//     (integers as 8 bytes, floats as IEEE-754 bits); strings and blobs are
//     raw bytes; collections fall back to the packed form below.
//
//   - Packed form: a MessagePack-derived, self-describing binary format
//     used for collection elements and every CDT sub-command argument. The
//     dialect differs from plain MessagePack in one important way: string
//     and blob payloads carry a leading 1-byte particle-type tag, since the
//     base format conflates "string" and "opaque bytes". Key-ordered maps
//     additionally carry a leading (ext(flags), nil) marker pair.
//
// The Packer appends to an internal buffer; the Unpacker is the exact
// inverse and fails with a BadResponse error on any unrecognized type tag
// or truncated input rather than reading past the declared bounds.
//
// Integers above the signed 64-bit range are rejected at the types.NewValue
// boundary, so the codec itself only ever sees representable values; an
// unsigned 64-bit wire value above that range is rejected at decode time
// under the same rule (one consistent policy, no silent wraparound).
package codec
