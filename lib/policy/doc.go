// Package policy defines the read-only configuration objects consumed by
// the request executor and the CDT operation encoder. Each policy is a flat
// set of named options; the executor and encoder consult them but never
// mutate one mid-operation, so a single policy value can safely be shared
// across concurrent calls.
//
// Defaults returned by the New* constructors mirror the server's behavior
// for omitted options: no retries beyond two attempts for reads, none for
// writes, master-replica reads, unordered collections.
package policy
