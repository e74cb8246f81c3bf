package client

import (
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/aspike/cluster"
	"github.com/ValentinKolb/aspike/lib/codec"
	"github.com/ValentinKolb/aspike/lib/policy"
	"github.com/ValentinKolb/aspike/lib/types"
	"github.com/ValentinKolb/aspike/proto"
)

// Client is the entry point: it owns the cluster, its nodes and their
// connection pools. All methods are safe for concurrent use. Close tears
// everything down deterministically; a closed client fails all calls
// with ErrClientClosed.
type Client struct {
	cluster *cluster.Cluster
	closed  atomic.Bool
}

// NewClient connects to the cluster behind the seed addresses.
func NewClient(config *policy.ClientPolicy, seeds ...string) (*Client, error) {
	cl, err := cluster.NewCluster(config, seeds)
	if err != nil {
		return nil, err
	}
	return &Client{cluster: cl}, nil
}

// Close shuts down all connection pools. Idempotent.
func (c *Client) Close() {
	if c.closed.CompareAndSwap(false, true) {
		c.cluster.Close()
	}
}

// Nodes returns the live cluster nodes.
func (c *Client) Nodes() []*cluster.Node {
	return c.cluster.Nodes()
}

// RequestInfo runs info commands against a random live node.
func (c *Client) RequestInfo(p *policy.InfoPolicy, names ...string) (map[string]string, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if p == nil {
		p = policy.NewInfoPolicy()
	}
	node, err := c.cluster.RandomNode()
	if err != nil {
		return nil, err
	}
	return node.RequestInfo(p.Timeout, names...)
}

func (c *Client) checkOpen() error {
	if c.closed.Load() {
		return types.NewError(types.ErrClientClosed, "client closed")
	}
	return nil
}

// --------------------------------------------------------------------------
// Reads
// --------------------------------------------------------------------------

// Get reads a record. Without bin names all bins are returned; with
// names, only those. A missing record fails with the KeyNotFound server
// error.
func (c *Client) Get(p *policy.BasePolicy, key *types.Key, binNames ...string) (*types.Record, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if p == nil {
		p = policy.NewBasePolicy()
	}

	msg := &proto.Message{Info1: proto.Info1Read}
	if len(binNames) == 0 {
		msg.Info1 |= proto.Info1GetAll
	} else {
		for _, name := range binNames {
			msg.Ops = append(msg.Ops, GetBinOp(name))
		}
	}
	if err := addKeyFields(msg, key, false); err != nil {
		return nil, err
	}
	applyBasePolicy(msg, p)

	cmd := &command{cluster: c.cluster, policy: p, key: key, msg: msg}
	payload, err := cmd.execute()
	if err != nil {
		return nil, err
	}
	return proto.ParseRecord(key, payload)
}

// GetHeader reads only the record metadata (generation, expiration).
func (c *Client) GetHeader(p *policy.BasePolicy, key *types.Key) (*types.Record, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if p == nil {
		p = policy.NewBasePolicy()
	}

	msg := &proto.Message{Info1: proto.Info1Read | proto.Info1NoBinData}
	if err := addKeyFields(msg, key, false); err != nil {
		return nil, err
	}
	applyBasePolicy(msg, p)

	cmd := &command{cluster: c.cluster, policy: p, key: key, msg: msg}
	payload, err := cmd.execute()
	if err != nil {
		return nil, err
	}
	return proto.ParseRecord(key, payload)
}

// Exists reports whether the record exists.
func (c *Client) Exists(p *policy.BasePolicy, key *types.Key) (bool, error) {
	_, err := c.GetHeader(p, key)
	if err != nil {
		if types.IsServerError(err, types.ResultKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// --------------------------------------------------------------------------
// Writes
// --------------------------------------------------------------------------

// Put writes the given bins.
func (c *Client) Put(p *policy.WritePolicy, key *types.Key, bins types.BinMap) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if p == nil {
		p = policy.NewWritePolicy()
	}

	msg := &proto.Message{}
	for name, value := range bins {
		op, err := writeBinOp(name, value)
		if err != nil {
			return err
		}
		msg.Ops = append(msg.Ops, op)
	}
	applyWritePolicy(msg, p)
	if err := addKeyFields(msg, key, p.SendKey); err != nil {
		return err
	}

	cmd := &command{
		cluster: c.cluster, policy: &p.BasePolicy, key: key, msg: msg,
		isWrite: true, retryOnTimeout: p.RetryOnTimeout,
	}
	payload, err := cmd.execute()
	if err != nil {
		return err
	}
	_, err = proto.ParseRecord(key, payload)
	return err
}

// Delete removes a record. Returns whether it existed.
func (c *Client) Delete(p *policy.WritePolicy, key *types.Key) (bool, error) {
	if err := c.checkOpen(); err != nil {
		return false, err
	}
	if p == nil {
		p = policy.NewWritePolicy()
	}

	msg := &proto.Message{}
	applyWritePolicy(msg, p)
	msg.Info2 |= proto.Info2Delete
	if err := addKeyFields(msg, key, false); err != nil {
		return false, err
	}

	cmd := &command{
		cluster: c.cluster, policy: &p.BasePolicy, key: key, msg: msg,
		isWrite: true, retryOnTimeout: p.RetryOnTimeout,
	}
	payload, err := cmd.execute()
	if err != nil {
		if types.IsServerError(err, types.ResultKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if _, err := proto.ParseRecord(key, payload); err != nil {
		return false, err
	}
	return true, nil
}

// Touch resets the record's expiration and bumps its generation without
// writing bins.
func (c *Client) Touch(p *policy.WritePolicy, key *types.Key) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if p == nil {
		p = policy.NewWritePolicy()
	}

	msg := &proto.Message{Ops: []*types.Operation{TouchOp()}}
	applyWritePolicy(msg, p)
	if err := addKeyFields(msg, key, false); err != nil {
		return err
	}

	cmd := &command{
		cluster: c.cluster, policy: &p.BasePolicy, key: key, msg: msg,
		isWrite: true, retryOnTimeout: p.RetryOnTimeout,
	}
	payload, err := cmd.execute()
	if err != nil {
		return err
	}
	_, err = proto.ParseRecord(key, payload)
	return err
}

// --------------------------------------------------------------------------
// Operate
// --------------------------------------------------------------------------

// Operate runs a sequence of operations against one record atomically, in
// order. Mixing reads and writes is allowed; the returned record carries
// the read results.
func (c *Client) Operate(p *policy.WritePolicy, key *types.Key, ops ...*types.Operation) (*types.Record, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if p == nil {
		p = policy.NewWritePolicy()
	}
	if len(ops) == 0 {
		return nil, types.NewError(types.ErrValue, "operate needs at least one operation")
	}

	msg := &proto.Message{Ops: ops}
	hasWrite := false
	for _, op := range ops {
		if op.Writable() {
			hasWrite = true
		} else {
			msg.Info1 |= proto.Info1Read
			if op.OpType == types.OpRead && op.BinName == "" {
				msg.Info1 |= proto.Info1GetAll
			}
		}
	}
	if hasWrite {
		applyWritePolicy(msg, p)
		if p.RespondPerEachOp {
			msg.Info2 |= proto.Info2RespondAllOps
		}
	} else {
		applyBasePolicy(msg, &p.BasePolicy)
	}
	if err := addKeyFields(msg, key, p.SendKey && hasWrite); err != nil {
		return nil, err
	}

	cmd := &command{
		cluster: c.cluster, policy: &p.BasePolicy, key: key, msg: msg,
		isWrite: hasWrite, retryOnTimeout: p.RetryOnTimeout,
	}
	payload, err := cmd.execute()
	if err != nil {
		return nil, err
	}
	return proto.ParseRecord(key, payload)
}

// --------------------------------------------------------------------------
// Message Assembly Helpers
// --------------------------------------------------------------------------

// addKeyFields appends the addressing fields of a key
func addKeyFields(msg *proto.Message, key *types.Key, sendKey bool) error {
	msg.Fields = append(msg.Fields, proto.NamespaceField(key.Namespace))
	if key.SetName != "" {
		msg.Fields = append(msg.Fields, proto.SetNameField(key.SetName))
	}
	msg.Fields = append(msg.Fields, proto.DigestField(key.Digest()))

	if sendKey && key.UserKey != nil {
		f, err := proto.UserKeyField(key.UserKey)
		if err != nil {
			return err
		}
		msg.Fields = append(msg.Fields, f)
	}
	return nil
}

// applyWritePolicy folds a write policy into the message's attribute
// flags and metadata slots
func applyWritePolicy(msg *proto.Message, p *policy.WritePolicy) {
	msg.Info2 |= proto.Info2Write

	switch p.RecordExistsAction {
	case policy.UpdateOnly:
		msg.Info3 |= proto.Info3UpdateOnly
	case policy.Replace:
		msg.Info3 |= proto.Info3CreateOrReplace
	case policy.ReplaceOnly:
		msg.Info3 |= proto.Info3ReplaceOnly
	case policy.CreateOnly:
		msg.Info2 |= proto.Info2CreateOnly
	}

	switch p.GenerationPolicy {
	case policy.ExpectGenEqual:
		msg.Info2 |= proto.Info2Generation
		msg.Generation = p.Generation
	case policy.ExpectGenGreater:
		msg.Info2 |= proto.Info2GenerationGT
		msg.Generation = p.Generation
	}

	if p.DurableDelete {
		msg.Info2 |= proto.Info2DurableDelete
	}

	msg.Expiration = p.Expiration
	applyBasePolicy(msg, &p.BasePolicy)
}

// applyBasePolicy tells the server how long the client will wait and
// attaches the filter expression when one is set
func applyBasePolicy(msg *proto.Message, p *policy.BasePolicy) {
	if p.TotalTimeout > 0 {
		msg.TransactionTTL = uint32(p.TotalTimeout / time.Millisecond)
	}
	if len(p.FilterExpression) > 0 {
		msg.Fields = append(msg.Fields, proto.FilterExpressionField(p.FilterExpression))
	}
}

// writeBinOp encodes one bin write
func writeBinOp(binName string, value types.Value) (*types.Operation, error) {
	if value == nil {
		value = types.NullValue{}
	}
	ptype, data, err := codec.EncodeParticle(value)
	if err != nil {
		return nil, err
	}
	return &types.Operation{
		OpType:       types.OpWrite,
		BinName:      binName,
		ParticleType: ptype,
		Data:         data,
	}, nil
}
