package cluster

import (
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/aspike/lib/policy"
	"github.com/ValentinKolb/aspike/lib/types"
	"github.com/ValentinKolb/aspike/proto"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("cluster")

// requiredFeature gates bootstrap: nodes without partition scan support
// cannot serve this client's scan machinery.
const requiredFeature = "pscans"

// DefaultPort is assumed when a seed address has no port.
const DefaultPort = 3000

// Node is one validated cluster member with its connection pool.
type Node struct {
	// Name is the server-reported node id.
	Name string
	// Address is the host:port the node was reached at.
	Address string
	// RackID places the node for ReplicaPreferRack routing (0 = unknown).
	RackID int

	pool   *connPool
	active atomic.Bool

	// partitionGeneration tracks the last generation a partition map was
	// fetched at; -1 forces the first fetch.
	partitionGeneration atomic.Int32
}

// ParseAddress normalizes a seed address, applying the default port.
func ParseAddress(addr string) (string, error) {
	if addr == "" {
		return "", types.NewError(types.ErrParseAddress, "empty address")
	}
	if !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, strconv.Itoa(DefaultPort)), nil
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", types.WrapError(types.ErrParseAddress, addr, err)
	}
	if _, err := strconv.Atoi(port); err != nil {
		return "", types.NewErrorf(types.ErrParseAddress, "invalid port %q", port)
	}
	return net.JoinHostPort(host, port), nil
}

// validateNode dials an address and interrogates it over the info channel.
// The node is accepted only when it reports a node id and the required
// feature set.
func validateNode(addr string, config *policy.ClientPolicy) (*Node, error) {
	address, err := ParseAddress(addr)
	if err != nil {
		return nil, err
	}

	dial := func() (net.Conn, error) {
		return net.DialTimeout("tcp", address, config.ConnectTimeout)
	}

	conn, err := dial()
	if err != nil {
		return nil, types.WrapError(types.ErrConnection, "dial seed "+address, err)
	}

	conn.SetDeadline(time.Now().Add(config.ConnectTimeout))
	values, err := proto.RequestInfo(conn, "node", "partition-generation", "features", "rack-id")
	if err != nil {
		conn.Close()
		return nil, err
	}

	name := values["node"]
	if name == "" {
		conn.Close()
		return nil, types.NewErrorf(types.ErrInvalidNode,
			"%s did not report a node id", address)
	}
	if !hasFeature(values["features"], requiredFeature) {
		conn.Close()
		return nil, types.NewErrorf(types.ErrInvalidNode,
			"node %s lacks required feature %q", name, requiredFeature)
	}

	rackID, _ := strconv.Atoi(values["rack-id"])

	node := &Node{
		Name:    name,
		Address: address,
		RackID:  rackID,
		pool:    newConnPool(config.ConnectionQueueSize, config.AcquireTimeout, dial),
	}
	node.active.Store(true)
	node.partitionGeneration.Store(-1)

	// The validation connection seeds the pool.
	conn.SetDeadline(time.Time{})
	node.pool.adopt(conn)

	// Pre-open the configured minimum.
	for i := 1; i < config.MinConnectionsPerNode; i++ {
		c, err := node.pool.Get()
		if err != nil {
			Logger.Warningf("pre-opening connection %d to %s: %v", i, name, err)
			break
		}
		node.pool.Put(c)
	}

	Logger.Infof("validated node %s at %s", name, address)
	return node, nil
}

func hasFeature(features, want string) bool {
	for _, f := range strings.Split(features, ";") {
		if f == want {
			return true
		}
	}
	return false
}

// Active reports whether the node is routable.
func (n *Node) Active() bool { return n.active.Load() }

// GetConnection hands out a pooled connection.
func (n *Node) GetConnection() (net.Conn, error) {
	if !n.Active() {
		return nil, types.NewErrorf(types.ErrInvalidNode, "node %s is inactive", n.Name)
	}
	return n.pool.Get()
}

// PutConnection returns a healthy connection to the pool.
func (n *Node) PutConnection(conn net.Conn) { n.pool.Put(conn) }

// DiscardConnection closes a connection whose state is suspect.
func (n *Node) DiscardConnection(conn net.Conn) { n.pool.Discard(conn) }

// RequestInfo runs info commands against this node on a pooled connection.
func (n *Node) RequestInfo(timeout time.Duration, names ...string) (map[string]string, error) {
	conn, err := n.GetConnection()
	if err != nil {
		return nil, err
	}

	if timeout > 0 {
		conn.SetDeadline(time.Now().Add(timeout))
	}
	values, err := proto.RequestInfo(conn, names...)
	if err != nil {
		n.DiscardConnection(conn)
		return nil, err
	}
	conn.SetDeadline(time.Time{})
	n.PutConnection(conn)
	return values, nil
}

// Close deactivates the node and tears down its pool.
func (n *Node) Close() {
	n.active.Store(false)
	n.pool.Close()
}

// String returns "name@address".
func (n *Node) String() string {
	return n.Name + "@" + n.Address
}
