package client

import (
	"errors"
	"math/rand"
	"net"
	"time"

	"github.com/ValentinKolb/aspike/cluster"
	"github.com/ValentinKolb/aspike/lib/policy"
	"github.com/ValentinKolb/aspike/lib/types"
	"github.com/ValentinKolb/aspike/proto"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("client")

// command is one single-record exchange through all its attempts.
type command struct {
	cluster *cluster.Cluster
	policy  *policy.BasePolicy
	key     *types.Key
	msg     *proto.Message

	// isWrite routes to the master replica and, together with
	// retryOnTimeout, decides whether a socket timeout is retryable.
	isWrite        bool
	retryOnTimeout bool
}

// execute drives the retry state machine and returns the raw response
// message body.
//
// Terminal: server result codes, malformed responses, the total timeout,
// and socket timeouts of writes without retryOnTimeout. Retryable:
// transport errors and (idempotent) socket timeouts, re-resolving the
// node each attempt. Topology errors refresh the partition map before
// the retry.
func (c *command) execute() ([]byte, error) {
	metricRequests.Inc()

	var deadline time.Time
	if c.policy.TotalTimeout > 0 {
		deadline = time.Now().Add(c.policy.TotalTimeout)
	}

	frame := c.msg.Marshal()

	backoff := c.policy.SleepBetweenRetries
	if backoff <= 0 {
		backoff = time.Millisecond
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		payload, err := c.attempt(attempt, deadline, frame)
		if err == nil {
			return payload, nil
		}
		lastErr = err

		var serverErr *types.ServerError
		if errors.As(err, &serverErr) {
			metricServerErrors.Inc()
			return nil, err
		}
		switch {
		case errors.Is(err, types.ErrBadResponse),
			errors.Is(err, types.ErrInvalidUTF8),
			errors.Is(err, types.ErrClientClosed),
			errors.Is(err, types.ErrTotalTimeout):
			return nil, err
		}

		if errors.Is(err, types.ErrTimeout) {
			metricTimeouts.Inc()
			if c.isWrite && !c.retryOnTimeout {
				// The write may already be applied; retrying could double it.
				return nil, err
			}
		}

		if errors.Is(err, types.ErrInvalidNode) || errors.Is(err, types.ErrNoMoreConnections) {
			if refreshErr := c.cluster.Refresh(); refreshErr != nil {
				Logger.Warningf("partition map refresh failed: %v", refreshErr)
			}
		}

		if attempt >= c.policy.MaxRetries {
			return nil, err
		}

		metricRetries.Inc()
		Logger.Debugf("attempt %d/%d for %s failed: %v",
			attempt+1, c.policy.MaxRetries+1, c.key, err)

		// Exponential backoff with a small random jitter (+-10%)
		jitter := time.Duration(float64(backoff) * (0.9 + 0.2*rand.Float64()))
		time.Sleep(jitter)
		backoff *= 2

		if !deadline.IsZero() && !time.Now().Before(deadline) {
			metricTimeouts.Inc()
			return nil, types.WrapError(types.ErrTotalTimeout, c.key.String(), lastErr)
		}
	}
}

// attempt performs one network exchange against the node resolved for
// this attempt
func (c *command) attempt(seq int, deadline time.Time, frame []byte) ([]byte, error) {
	replica := c.policy.Replica
	if c.isWrite {
		replica = policy.ReplicaMaster
	}

	node, err := c.cluster.NodeFor(c.key.Namespace, c.key.Digest(), replica, seq)
	if err != nil {
		return nil, err
	}

	conn, err := node.GetConnection()
	if err != nil {
		return nil, err
	}

	// Per-attempt socket deadline, clamped to the total deadline.
	var socketDeadline time.Time
	if c.policy.SocketTimeout > 0 {
		socketDeadline = time.Now().Add(c.policy.SocketTimeout)
	}
	if !deadline.IsZero() && (socketDeadline.IsZero() || deadline.Before(socketDeadline)) {
		socketDeadline = deadline
	}
	conn.SetDeadline(socketDeadline)

	if _, err := conn.Write(frame); err != nil {
		node.DiscardConnection(conn)
		return nil, wrapNetError("write request", err)
	}
	metricBytesSent.Add(len(frame))

	frameType, payload, err := proto.ReadFrame(conn)
	if err != nil {
		node.DiscardConnection(conn)
		if errors.Is(err, types.ErrBadResponse) {
			return nil, err
		}
		return nil, wrapNetError("read response", err)
	}
	metricBytesReceived.Add(len(payload) + 8) // payload plus proto header

	if frameType != proto.FrameMessage {
		node.DiscardConnection(conn)
		return nil, types.NewErrorf(types.ErrBadResponse,
			"expected message frame, got type %d", frameType)
	}

	conn.SetDeadline(time.Time{})
	node.PutConnection(conn)
	return payload, nil
}

// wrapNetError classifies a socket error: deadline hits become
// ErrTimeout, everything else ErrConnection
func wrapNetError(msg string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.WrapError(types.ErrTimeout, msg, err)
	}
	if errors.Is(err, types.ErrConnection) {
		return err
	}
	return types.WrapError(types.ErrConnection, msg, err)
}
