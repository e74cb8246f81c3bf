package cluster

import (
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/aspike/lib/types"
)

// connPool is a fixed-capacity pool of connections to one node, backed by
// a buffered channel. Get hands out an idle connection, dials while the
// node is under its cap, and otherwise waits up to acquireTimeout.
type connPool struct {
	idle           chan net.Conn
	dial           func() (net.Conn, error)
	acquireTimeout time.Duration

	mu     sync.Mutex
	total  int // connections handed out or idle
	cap    int
	closed bool
}

func newConnPool(capacity int, acquireTimeout time.Duration, dial func() (net.Conn, error)) *connPool {
	if capacity < 1 {
		capacity = 1
	}
	return &connPool{
		idle:           make(chan net.Conn, capacity),
		dial:           dial,
		acquireTimeout: acquireTimeout,
		cap:            capacity,
	}
}

// Get returns an idle connection or dials a new one. When the pool is at
// capacity it waits up to the acquire timeout, then fails with
// ErrNoMoreConnections.
func (p *connPool) Get() (net.Conn, error) {
	select {
	case conn := <-p.idle:
		return conn, nil
	default:
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, types.NewError(types.ErrClientClosed, "connection pool closed")
	}
	if p.total < p.cap {
		p.total++
		p.mu.Unlock()

		conn, err := p.dial()
		if err != nil {
			p.mu.Lock()
			p.total--
			p.mu.Unlock()
			return nil, types.WrapError(types.ErrConnection, "dial", err)
		}
		return conn, nil
	}
	p.mu.Unlock()

	if p.acquireTimeout <= 0 {
		return nil, types.NewError(types.ErrNoMoreConnections,
			"connection pool exhausted")
	}

	select {
	case conn := <-p.idle:
		return conn, nil
	case <-time.After(p.acquireTimeout):
		return nil, types.NewErrorf(types.ErrNoMoreConnections,
			"connection pool exhausted after %v", p.acquireTimeout)
	}
}

// Put returns a healthy connection to the pool.
func (p *connPool) Put(conn net.Conn) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if closed {
		p.drop(conn)
		return
	}
	select {
	case p.idle <- conn:
	default:
		// Pool refilled concurrently, surplus connection is dropped.
		p.drop(conn)
	}
}

// Discard closes a connection whose state is suspect (failed request,
// stale deadline) instead of pooling it.
func (p *connPool) Discard(conn net.Conn) {
	p.drop(conn)
}

func (p *connPool) drop(conn net.Conn) {
	conn.Close()
	p.mu.Lock()
	p.total--
	p.mu.Unlock()
}

// adopt inserts an externally dialed connection into the pool's
// accounting and idle set.
func (p *connPool) adopt(conn net.Conn) {
	p.mu.Lock()
	p.total++
	p.mu.Unlock()
	p.Put(conn)
}

// Close drains and closes all idle connections. Connections currently
// handed out are closed by their holders via Discard.
func (p *connPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	for {
		select {
		case conn := <-p.idle:
			p.drop(conn)
		default:
			return
		}
	}
}
