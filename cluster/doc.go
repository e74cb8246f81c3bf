// Package cluster tracks server nodes and routes record digests to them.
//
// A Cluster is seeded from one or more addresses. Each seed is validated
// over the info side channel (node id, partition generation, feature
// list) before it becomes a Node; nodes own a fixed-size connection pool
// backed by a buffered channel.
//
// Routing is digest based: the partition id is derived from the first two
// digest bytes, and the partition map - parsed from the replicas-all info
// command's base64 bitmaps - assigns every (namespace, partition, replica)
// cell to a node. Replica selection policies (master, sequence, random,
// prefer-rack) choose among the replica columns; when no live node covers
// a cell the lookup fails with types.ErrInvalidNode instead of silently
// picking an arbitrary node.
//
// The package refreshes the partition map only when a node's partition
// generation moves. Full cluster tending (periodic health checks, peer
// discovery) is out of scope; Refresh is driven by the client when it
// hits a routing error.
package cluster
