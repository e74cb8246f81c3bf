package client

import (
	"errors"
	"math/rand"
	"time"

	"github.com/ValentinKolb/aspike/cluster"
	"github.com/ValentinKolb/aspike/lib/policy"
	"github.com/ValentinKolb/aspike/lib/types"
	"github.com/ValentinKolb/aspike/proto"
)

// resultQueueSize buffers records between the node streams and the consumer
const resultQueueSize = 64

// errStreamAborted makes ParseStream unwind when the consumer closed the
// recordset; never surfaced to the caller
var errStreamAborted = errors.New("record stream aborted")

// ScanPartitions streams all records of the partitions covered by the
// filter. Bin names restrict the returned bins. The filter carries the
// per-partition cursors: rerunning an interrupted scan with the same
// filter resumes where it stopped.
func (c *Client) ScanPartitions(p *policy.ScanPolicy, pf *PartitionFilter, namespace, setName string, binNames ...string) (*Recordset, error) {
	if p == nil {
		p = policy.NewScanPolicy()
	}
	return c.streamPartitions(p, pf, namespace, setName, binNames, false)
}

// streamPartitions is the engine behind scans and queries: it groups the
// filter's pending partitions by owning node, runs one stream per node
// and funnels everything into a recordset.
func (c *Client) streamPartitions(p *policy.ScanPolicy, pf *PartitionFilter, namespace, setName string, binNames []string, isQuery bool) (*Recordset, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if err := pf.validate(); err != nil {
		return nil, err
	}
	if err := pf.acquire(); err != nil {
		return nil, err
	}
	pf.init()

	pending := pf.pending()
	groups := make(map[*cluster.Node][]*PartitionStatus)
	for _, ps := range pending {
		node, err := c.cluster.NodeForPartition(namespace, ps.ID, p.Replica, 0)
		if err != nil {
			pf.release()
			return nil, err
		}
		groups[node] = append(groups[node], ps)
	}

	// The record cap is split evenly across the participating nodes.
	quotas := make(map[*cluster.Node]uint64, len(groups))
	if p.MaxRecords > 0 && len(groups) > 0 {
		base := p.MaxRecords / uint64(len(groups))
		rem := p.MaxRecords % uint64(len(groups))
		for node := range groups {
			quotas[node] = base
			if rem > 0 {
				quotas[node]++
				rem--
			}
		}
	}

	rs := newRecordset(resultQueueSize)

	var sem chan struct{}
	if p.MaxConcurrentNodes > 0 {
		sem = make(chan struct{}, p.MaxConcurrentNodes)
	}

	for node, parts := range groups {
		rs.wg.Add(1)
		go func(node *cluster.Node, parts []*PartitionStatus, quota uint64) {
			defer rs.wg.Done()
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-rs.cancel:
					markRetry(parts)
					return
				}
			}
			c.streamNode(p, rs, node, namespace, setName, parts, binNames, quota, isQuery)
		}(node, parts, quotas[node])
	}

	go rs.finish(func() {
		pf.finalize()
		pf.release()
	})
	return rs, nil
}

// streamNode runs one node's share of the scan: a single request frame,
// then response frames until the LAST marker.
func (c *Client) streamNode(p *policy.ScanPolicy, rs *Recordset, node *cluster.Node,
	namespace, setName string, parts []*PartitionStatus, binNames []string,
	maxRecords uint64, isQuery bool) {

	fail := func(err error) {
		markRetry(parts)
		rs.send(&Result{Err: err})
	}

	frame := scanFrame(p, namespace, setName, parts, binNames, maxRecords, isQuery)

	byPID := make(map[int]*PartitionStatus, len(parts))
	for _, ps := range parts {
		byPID[ps.ID] = ps
	}

	conn, err := node.GetConnection()
	if err != nil {
		fail(err)
		return
	}

	deadline := func() {
		if p.SocketTimeout > 0 {
			conn.SetDeadline(time.Now().Add(p.SocketTimeout))
		}
	}

	deadline()
	if _, err := conn.Write(frame); err != nil {
		node.DiscardConnection(conn)
		fail(wrapNetError("write scan request", err))
		return
	}
	metricBytesSent.Add(len(frame))

	onRecord := func(sr *proto.StreamRecord) error {
		if ps := byPID[cluster.PartitionID(sr.Key.Digest())]; ps != nil {
			ps.Digest = sr.Key.Digest()
			ps.HasDigest = true
			ps.BVal = sr.BVal
		}
		if !rs.send(&Result{Record: sr.Record, BVal: sr.BVal}) {
			return errStreamAborted
		}
		return nil
	}
	onPartitionDone := func(pid uint16) error {
		if ps := byPID[int(pid)]; ps != nil {
			ps.Done = true
		}
		return nil
	}

	for {
		if rs.cancelled() {
			markRetry(parts)
			node.DiscardConnection(conn)
			return
		}

		deadline()
		frameType, payload, err := proto.ReadFrame(conn)
		if err != nil {
			node.DiscardConnection(conn)
			if errors.Is(err, types.ErrBadResponse) {
				fail(err)
			} else {
				fail(wrapNetError("read scan response", err))
			}
			return
		}
		metricBytesReceived.Add(len(payload) + 8) // payload plus proto header
		if frameType != proto.FrameMessage {
			node.DiscardConnection(conn)
			fail(types.NewErrorf(types.ErrBadResponse,
				"expected message frame, got type %d", frameType))
			return
		}

		last, err := proto.ParseStream(payload, onRecord, onPartitionDone)
		if err != nil {
			node.DiscardConnection(conn)
			if !errors.Is(err, errStreamAborted) {
				fail(err)
			} else {
				markRetry(parts)
			}
			return
		}
		if last {
			conn.SetDeadline(time.Time{})
			node.PutConnection(conn)
			return
		}
	}
}

// scanFrame assembles the request frame of one node's stream
func scanFrame(p *policy.ScanPolicy, namespace, setName string,
	parts []*PartitionStatus, binNames []string, maxRecords uint64, isQuery bool) []byte {

	msg := &proto.Message{Info1: proto.Info1Read}
	if !p.IncludeBinData {
		msg.Info1 |= proto.Info1NoBinData
	}
	if len(binNames) == 0 {
		msg.Info1 |= proto.Info1GetAll
	}

	msg.Fields = append(msg.Fields, proto.NamespaceField(namespace))
	if setName != "" {
		msg.Fields = append(msg.Fields, proto.SetNameField(setName))
	}
	msg.Fields = append(msg.Fields, proto.TaskIDField(rand.Uint64()))

	// Fresh partitions travel as a pid array, resumed ones as a digest
	// array (plus bvals for queries).
	var (
		fresh   []uint16
		digests [][types.DigestSize]byte
		bvals   []uint64
	)
	for _, ps := range parts {
		if ps.HasDigest {
			digests = append(digests, ps.Digest)
			bvals = append(bvals, uint64(ps.BVal))
		} else {
			fresh = append(fresh, uint16(ps.ID))
		}
	}
	if len(fresh) > 0 {
		msg.Fields = append(msg.Fields, proto.PIDArrayField(fresh))
	}
	if len(digests) > 0 {
		msg.Fields = append(msg.Fields, proto.DigestArrayField(digests))
		if isQuery {
			msg.Fields = append(msg.Fields, proto.BValArrayField(bvals))
		}
	}
	if maxRecords > 0 {
		msg.Fields = append(msg.Fields, proto.MaxRecordsField(maxRecords))
	}

	if len(binNames) > 0 {
		if isQuery {
			msg.Fields = append(msg.Fields, proto.QueryBinListField(binNames))
		} else {
			for _, name := range binNames {
				msg.Ops = append(msg.Ops, GetBinOp(name))
			}
		}
	}

	applyBasePolicy(msg, &p.BasePolicy)
	return msg.Marshal()
}

// markRetry flags the unfinished partitions for the next run of the filter
func markRetry(parts []*PartitionStatus) {
	for _, ps := range parts {
		if !ps.Done {
			ps.Retry = true
		}
	}
}
