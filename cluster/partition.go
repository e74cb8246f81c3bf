package cluster

import (
	"encoding/base64"
	"encoding/binary"
	"math/rand"
	"strconv"
	"strings"

	"github.com/ValentinKolb/aspike/lib/policy"
	"github.com/ValentinKolb/aspike/lib/types"
)

// Partitions is the fixed number of partitions per namespace.
const Partitions = 4096

// bitmapSize is the byte length of one decoded replica bitmap (one bit
// per partition).
const bitmapSize = Partitions / 8

// PartitionID derives the partition of a digest: the little-endian uint16
// of its first two bytes, masked to 12 bits.
func PartitionID(digest [types.DigestSize]byte) int {
	return int(binary.LittleEndian.Uint16(digest[0:2])) & (Partitions - 1)
}

// partitionTable holds the replica columns of one namespace. Column 0 is
// the master replica; each column maps partition id to owning node.
type partitionTable struct {
	replicas [][]*Node
}

// PartitionMap maps namespaces to their partition tables. Maps are
// immutable once built; the cluster swaps whole maps on refresh.
type PartitionMap map[string]*partitionTable

// parseReplicasAll merges one node's replicas-all response into the map.
// The value has the form "ns:count,b64,b64,...;ns2:...", one base64
// bitmap per replica column, 4096 bits each.
func (pm PartitionMap) parseReplicasAll(node *Node, value string) error {
	if value == "" {
		return nil
	}

	for _, nsEntry := range strings.Split(value, ";") {
		ns, rest, ok := strings.Cut(nsEntry, ":")
		if !ok {
			return types.NewErrorf(types.ErrBadResponse,
				"malformed replicas-all entry %q", nsEntry)
		}

		parts := strings.Split(rest, ",")
		count, err := strconv.Atoi(parts[0])
		if err != nil || count != len(parts)-1 {
			return types.NewErrorf(types.ErrBadResponse,
				"replica count %q does not match %d bitmaps", parts[0], len(parts)-1)
		}

		table := pm[ns]
		if table == nil {
			table = &partitionTable{}
			pm[ns] = table
		}
		for len(table.replicas) < count {
			table.replicas = append(table.replicas, make([]*Node, Partitions))
		}

		for column, b64 := range parts[1:] {
			bitmap, err := base64.StdEncoding.DecodeString(b64)
			if err != nil {
				return types.WrapError(types.ErrBase64Decode,
					"replicas-all bitmap for namespace "+ns, err)
			}
			if len(bitmap) != bitmapSize {
				return types.NewErrorf(types.ErrBadResponse,
					"bitmap for namespace %s has %d bytes, want %d", ns, len(bitmap), bitmapSize)
			}

			for pid := 0; pid < Partitions; pid++ {
				if bitmap[pid>>3]&(0x80>>uint(pid&7)) != 0 {
					table.replicas[column][pid] = node
				}
			}
		}
	}
	return nil
}

// NodeFor resolves the node owning (namespace, partition) under the given
// replica policy. seq distinguishes successive attempts of one
// transaction so that sequence reads rotate over the replicas. Unknown
// namespaces and uncovered cells fail with ErrInvalidNode.
func (pm PartitionMap) NodeFor(namespace string, pid int, replica policy.Replica, seq int, rackIds []int) (*Node, error) {
	table, ok := pm[namespace]
	if !ok || len(table.replicas) == 0 {
		return nil, types.NewErrorf(types.ErrInvalidNode,
			"no partition table for namespace %q", namespace)
	}

	columns := len(table.replicas)
	switch replica {
	case policy.ReplicaMaster:
		if node := table.replicas[0][pid]; node != nil && node.Active() {
			return node, nil
		}

	case policy.ReplicaSequence:
		for i := 0; i < columns; i++ {
			if node := table.replicas[(seq+i)%columns][pid]; node != nil && node.Active() {
				return node, nil
			}
		}

	case policy.ReplicaRandom:
		start := rand.Intn(columns)
		for i := 0; i < columns; i++ {
			if node := table.replicas[(start+i)%columns][pid]; node != nil && node.Active() {
				return node, nil
			}
		}

	case policy.ReplicaPreferRack:
		// First pass restricted to the configured racks, then plain
		// sequence order.
		for i := 0; i < columns; i++ {
			node := table.replicas[(seq+i)%columns][pid]
			if node != nil && node.Active() && rackMatch(node.RackID, rackIds) {
				return node, nil
			}
		}
		for i := 0; i < columns; i++ {
			if node := table.replicas[(seq+i)%columns][pid]; node != nil && node.Active() {
				return node, nil
			}
		}
	}

	return nil, types.NewErrorf(types.ErrInvalidNode,
		"no live node for %s partition %d", namespace, pid)
}

func rackMatch(rackID int, rackIds []int) bool {
	for _, id := range rackIds {
		if id == rackID {
			return true
		}
	}
	return false
}
