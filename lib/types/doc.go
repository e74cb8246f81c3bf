// Package types defines the data model shared by every layer of the client:
// keys and their RIPEMD-160 digests, the tagged Value union covering all
// particle types the server understands, records, server result codes and
// the typed error taxonomy.
//
// The package focuses on:
//   - A closed Value union with explicit, total conversion from Go literals
//     (ambiguous inputs are rejected, never coerced)
//   - Deterministic key digests driving partition routing and wire addressing
//   - Typed errors carrying enough structure (kind, numeric result code) for
//     programmatic branching
//
// Key Components:
//
//   - Key: immutable triple of namespace, set and user key. The digest is
//     computed once at construction time and is independent of the
//     namespace, matching the server's addressing rules.
//
//   - Value: interface implemented by one concrete type per particle type
//     (NullValue, BoolValue, IntegerValue, FloatValue, StringValue,
//     BytesValue, GeoJSONValue, HLLValue, ListValue, MapValue). MapValue
//     carries an explicit entry slice plus a declared MapOrder so that
//     key-ordered maps survive round trips byte-for-byte.
//
//   - Error / ServerError: the client-side and server-side halves of the
//     error taxonomy. Error wraps a Kind (invalid key, bad response,
//     timeout, ...) and supports errors.Is against the exported sentinels;
//     ServerError preserves the numeric result code verbatim.
//
// All types in this package are value objects: constructed once, never
// mutated afterwards.
package types
