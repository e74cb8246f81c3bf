// Package cmd implements the command-line interface for the aspike
// client. It provides a hierarchical command structure for interacting
// with an Aerospike cluster over the native wire protocol.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for single-record operations (get, put, del, operate helpers)
//     including a performance testing tool
//   - scan: Command for streaming the records of a namespace or set
//   - info: Command for running admin info commands against a node
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Connection settings can also be given as ASPIKE_ environment variables
// or via .env files. See aspike -help for a list of all commands.
package cmd
