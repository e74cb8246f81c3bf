// Package client is the public API: a Client owning a cluster, typed
// single-record operations and multi-record scans and queries.
//
// Every single-record call runs through one executor (command.go) that
// implements the retry state machine: resolve the node for the key's
// partition, borrow a pooled connection, exchange one frame, parse.
// Transport failures and socket timeouts retry under the policy's
// MaxRetries with exponential backoff and jitter, re-resolving the node
// each attempt; server result codes are terminal, as is the total
// timeout. Routing errors trigger a partition map refresh before the
// next attempt. Non-idempotent writes retry after a socket timeout only
// when the write policy explicitly allows it - the write may already
// have been applied.
//
// Scans and queries stream records through a Recordset fed by one
// goroutine per involved node. The caller owns a PartitionFilter
// tracking per-partition progress (resume digest and bval); a scan
// interrupted by Close or an error can be resumed by passing the same
// filter again. A PartitionFilter must not be shared across concurrent
// scans.
package client
