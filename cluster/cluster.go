package cluster

import (
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/aspike/lib/policy"
	"github.com/ValentinKolb/aspike/lib/types"
	"github.com/puzpuzpuz/xsync/v3"
)

// infoTimeout bounds the info exchanges of seeding and refresh.
const infoTimeout = time.Second

// Cluster is the set of validated nodes plus the current partition map.
type Cluster struct {
	config *policy.ClientPolicy

	// nodes maps node id to node. Concurrent readers (executor, refresh)
	// far outnumber writers, hence xsync.
	nodes *xsync.MapOf[string, *Node]

	pmapMu sync.RWMutex
	pmap   PartitionMap

	closed atomic.Bool
}

// NewCluster validates the seed addresses and fetches the initial
// partition map. At least one seed must be reachable.
func NewCluster(config *policy.ClientPolicy, seeds []string) (*Cluster, error) {
	if config == nil {
		config = policy.NewClientPolicy()
	}
	if len(seeds) == 0 {
		return nil, types.NewError(types.ErrParseAddress, "no seed addresses")
	}

	c := &Cluster{
		config: config,
		nodes:  xsync.NewMapOf[string, *Node](),
		pmap:   PartitionMap{},
	}

	var lastErr error
	for _, seed := range seeds {
		node, err := validateNode(seed, config)
		if err != nil {
			Logger.Warningf("seed %s rejected: %v", seed, err)
			lastErr = err
			continue
		}
		// Two seeds may be the same server under different addresses.
		if _, loaded := c.nodes.LoadOrStore(node.Name, node); loaded {
			node.Close()
		}
	}

	if c.nodes.Size() == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, types.NewError(types.ErrConnection, "no seed reachable")
	}

	if err := c.Refresh(); err != nil {
		c.Close()
		return nil, err
	}

	Logger.Infof("cluster up with %d node(s)", c.nodes.Size())
	return c, nil
}

// Refresh rebuilds the partition map when any node's partition generation
// moved. The executor calls this after routing errors; callers may also
// drive it periodically.
func (c *Cluster) Refresh() error {
	if c.closed.Load() {
		return types.NewError(types.ErrClientClosed, "cluster closed")
	}

	stale := false
	var lastErr error
	c.nodes.Range(func(_ string, node *Node) bool {
		if !node.Active() {
			return true
		}
		values, err := node.RequestInfo(infoTimeout, "partition-generation")
		if err != nil {
			Logger.Warningf("node %s unreachable, deactivating: %v", node.Name, err)
			node.active.Store(false)
			lastErr = err
			return true
		}
		gen, err := strconv.Atoi(values["partition-generation"])
		if err != nil {
			lastErr = types.NewErrorf(types.ErrBadResponse,
				"node %s reported partition-generation %q", node.Name, values["partition-generation"])
			return true
		}
		if int32(gen) != node.partitionGeneration.Load() {
			stale = true
		}
		return true
	})

	if !stale {
		if c.liveNodes() == 0 {
			return lastErr
		}
		return nil
	}

	pmap := PartitionMap{}
	rebuilt := 0
	c.nodes.Range(func(_ string, node *Node) bool {
		if !node.Active() {
			return true
		}
		values, err := node.RequestInfo(infoTimeout, "partition-generation", "replicas-all")
		if err != nil {
			Logger.Warningf("node %s unreachable, deactivating: %v", node.Name, err)
			node.active.Store(false)
			lastErr = err
			return true
		}
		if err := pmap.parseReplicasAll(node, values["replicas-all"]); err != nil {
			lastErr = err
			return true
		}
		if gen, err := strconv.Atoi(values["partition-generation"]); err == nil {
			node.partitionGeneration.Store(int32(gen))
		}
		rebuilt++
		return true
	})

	if rebuilt == 0 {
		return lastErr
	}

	c.pmapMu.Lock()
	c.pmap = pmap
	c.pmapMu.Unlock()

	Logger.Debugf("partition map rebuilt from %d node(s)", rebuilt)
	return nil
}

// NodeFor routes a digest to a node under the given replica policy.
func (c *Cluster) NodeFor(namespace string, digest [types.DigestSize]byte, replica policy.Replica, seq int) (*Node, error) {
	if c.closed.Load() {
		return nil, types.NewError(types.ErrClientClosed, "cluster closed")
	}
	c.pmapMu.RLock()
	pmap := c.pmap
	c.pmapMu.RUnlock()

	return pmap.NodeFor(namespace, PartitionID(digest), replica, seq, c.config.RackIds)
}

// NodeForPartition routes a partition id directly (scan machinery).
func (c *Cluster) NodeForPartition(namespace string, pid int, replica policy.Replica, seq int) (*Node, error) {
	if c.closed.Load() {
		return nil, types.NewError(types.ErrClientClosed, "cluster closed")
	}
	c.pmapMu.RLock()
	pmap := c.pmap
	c.pmapMu.RUnlock()

	return pmap.NodeFor(namespace, pid, replica, seq, c.config.RackIds)
}

// Nodes returns the live nodes.
func (c *Cluster) Nodes() []*Node {
	nodes := make([]*Node, 0, c.nodes.Size())
	c.nodes.Range(func(_ string, node *Node) bool {
		if node.Active() {
			nodes = append(nodes, node)
		}
		return true
	})
	return nodes
}

// RandomNode returns any live node (info commands, task polling).
func (c *Cluster) RandomNode() (*Node, error) {
	nodes := c.Nodes()
	if len(nodes) == 0 {
		return nil, types.NewError(types.ErrInvalidNode, "no live nodes")
	}
	return nodes[rand.Intn(len(nodes))], nil
}

func (c *Cluster) liveNodes() int {
	count := 0
	c.nodes.Range(func(_ string, node *Node) bool {
		if node.Active() {
			count++
		}
		return true
	})
	return count
}

// Close tears down all nodes and their pools. Idempotent.
func (c *Cluster) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.nodes.Range(func(_ string, node *Node) bool {
		node.Close()
		return true
	})
	Logger.Infof("cluster closed")
}
