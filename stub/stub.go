package stub

import (
	"encoding/base64"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/aspike/cluster"
	"github.com/ValentinKolb/aspike/lib/types"
	"github.com/ValentinKolb/aspike/proto"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("stub")

// --------------------------------------------------------------------------
// Stub Node
// --------------------------------------------------------------------------

// storedRecord is one record of the in-memory table.
type storedRecord struct {
	key        *types.Key
	bins       types.BinMap
	generation uint32
	expiration uint32
}

// Stub is a single in-process node. All exported methods are safe for
// concurrent use.
type Stub struct {
	name       string
	namespaces []string

	ln net.Listener

	mu      sync.Mutex
	records map[[types.DigestSize]byte]*storedRecord
	conns   map[net.Conn]struct{}

	partitionGeneration atomic.Int32
	rackID              atomic.Int32
	dropNext            atomic.Int64
	closed              atomic.Bool
	wg                  sync.WaitGroup
}

// Serve starts a stub node named name on a random loopback port. It
// reports owning every partition of the given namespaces ("test" when
// none are given).
func Serve(name string, namespaces ...string) (*Stub, error) {
	if len(namespaces) == 0 {
		namespaces = []string{"test"}
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	s := &Stub{
		name:       name,
		namespaces: namespaces,
		ln:         ln,
		records:    make(map[[types.DigestSize]byte]*storedRecord),
		conns:      make(map[net.Conn]struct{}),
	}

	s.wg.Add(1)
	go s.acceptLoop()

	Logger.Infof("stub node %s listening on %s", name, ln.Addr())
	return s, nil
}

// Addr returns the listener address, usable as a client seed.
func (s *Stub) Addr() string { return s.ln.Addr().String() }

// Close stops the listener and tears down all open connections.
func (s *Stub) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.ln.Close()

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// BumpPartitionGeneration makes the next refresh see a changed topology.
func (s *Stub) BumpPartitionGeneration() {
	s.partitionGeneration.Add(1)
}

// DropConnections makes the stub close the connection instead of
// answering the next n record messages, simulating a flaky peer.
func (s *Stub) DropConnections(n int) {
	s.dropNext.Store(int64(n))
}

// SetRackID changes the rack the stub reports. Takes effect on the next
// bootstrap. Safe to call while connections are being served.
func (s *Stub) SetRackID(id int) { s.rackID.Store(int32(id)) }

// RecordCount returns the number of stored records.
func (s *Stub) RecordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// --------------------------------------------------------------------------
// Connection Handling
// --------------------------------------------------------------------------

func (s *Stub) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		closed := s.closed.Load()
		s.mu.Unlock()
		if closed {
			conn.Close()
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// handleConn answers frames until the peer hangs up
func (s *Stub) handleConn(conn net.Conn) {
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		s.wg.Done()
	}()

	for {
		frameType, payload, err := proto.ReadFrame(conn)
		if err != nil {
			return
		}

		var resp []byte
		switch frameType {
		case proto.FrameInfo:
			resp = s.handleInfo(payload)
		case proto.FrameMessage:
			if s.dropNext.Load() > 0 && s.dropNext.Add(-1) >= 0 {
				Logger.Debugf("stub %s dropping connection on request", s.name)
				return
			}
			resp = s.handleMessage(payload)
		default:
			Logger.Errorf("stub %s: unknown frame type %d", s.name, frameType)
			return
		}

		if _, err := conn.Write(resp); err != nil {
			return
		}
	}
}

// --------------------------------------------------------------------------
// Info Protocol
// --------------------------------------------------------------------------

func (s *Stub) handleInfo(payload []byte) []byte {
	names := proto.ParseInfoRequest(payload)
	return proto.MarshalInfoResponse(names, s.infoValue)
}

func (s *Stub) infoValue(name string) string {
	switch name {
	case "node":
		return s.name
	case "partition-generation":
		return strconv.Itoa(int(s.partitionGeneration.Load()))
	case "features":
		return "pscans;peers;replicas-all"
	case "rack-id":
		return strconv.Itoa(int(s.rackID.Load()))
	case "replicas-all":
		return s.replicasAll()
	case "namespaces":
		return strings.Join(s.namespaces, ";")
	default:
		return ""
	}
}

// replicasAll claims full ownership: one replica column per namespace
// with every partition bit set
func (s *Stub) replicasAll() string {
	bitmap := make([]byte, cluster.Partitions/8)
	for i := range bitmap {
		bitmap[i] = 0xff
	}
	encoded := base64.StdEncoding.EncodeToString(bitmap)

	entries := make([]string, 0, len(s.namespaces))
	for _, ns := range s.namespaces {
		entries = append(entries, ns+":1,"+encoded)
	}
	return strings.Join(entries, ";")
}
