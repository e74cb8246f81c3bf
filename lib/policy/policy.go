package policy

import "time"

// --------------------------------------------------------------------------
// Replica Selection
// --------------------------------------------------------------------------

// Replica selects which replica of a partition serves a read.
type Replica uint8

const (
	// ReplicaMaster always reads from the partition master. Writes ignore
	// this setting - they always go to the master.
	ReplicaMaster Replica = iota
	// ReplicaSequence rotates over the replica columns, advancing on retry.
	ReplicaSequence
	// ReplicaRandom picks a random replica column per attempt.
	ReplicaRandom
	// ReplicaPreferRack prefers nodes in the configured rack ids, falling
	// back to sequence order.
	ReplicaPreferRack
)

// --------------------------------------------------------------------------
// Base / Read Policy
// --------------------------------------------------------------------------

// BasePolicy holds the options every single-record operation consults.
type BasePolicy struct {
	// TotalTimeout bounds the whole operation including retries. Zero
	// means no total deadline. Exceeding it is terminal, never retried.
	TotalTimeout time.Duration

	// SocketTimeout bounds a single socket read/write. A socket timeout is
	// retryable; zero falls back to TotalTimeout.
	SocketTimeout time.Duration

	// MaxRetries caps retransmissions after the first attempt.
	MaxRetries int

	// SleepBetweenRetries is the initial backoff before a retry; each
	// subsequent retry doubles it (with jitter).
	SleepBetweenRetries time.Duration

	// Replica selects the replica read policy.
	Replica Replica

	// SendKey stores the user key on the server alongside the record.
	SendKey bool

	// FilterExpression is a packed filter expression the server evaluates
	// before applying the operation. A record failing the filter answers
	// with the filtered-out result code, which is terminal and never
	// retried. Nil sends no filter.
	FilterExpression []byte
}

// NewBasePolicy returns the defaults for reads.
func NewBasePolicy() *BasePolicy {
	return &BasePolicy{
		TotalTimeout:        time.Second,
		SocketTimeout:       30 * time.Second,
		MaxRetries:          2,
		SleepBetweenRetries: time.Millisecond,
		Replica:             ReplicaSequence,
	}
}

// --------------------------------------------------------------------------
// Write Policy
// --------------------------------------------------------------------------

// RecordExistsAction controls create-versus-update semantics of a write.
type RecordExistsAction uint8

const (
	// Update creates or updates; merges bins.
	Update RecordExistsAction = iota
	// UpdateOnly updates an existing record; fails if absent.
	UpdateOnly
	// Replace creates or replaces the whole record.
	Replace
	// ReplaceOnly replaces an existing record; fails if absent.
	ReplaceOnly
	// CreateOnly creates; fails if the record exists.
	CreateOnly
)

// GenerationPolicy qualifies a write with an expected generation.
type GenerationPolicy uint8

const (
	// NoGeneration writes regardless of generation.
	NoGeneration GenerationPolicy = iota
	// ExpectGenEqual writes only when the generation matches.
	ExpectGenEqual
	// ExpectGenGreater writes only when the given generation is greater.
	ExpectGenGreater
)

// WritePolicy holds the options for writes and operate calls.
type WritePolicy struct {
	BasePolicy

	RecordExistsAction RecordExistsAction
	GenerationPolicy   GenerationPolicy

	// Generation is the expected generation for ExpectGenEqual/Greater.
	Generation uint32

	// Expiration in seconds. 0 uses the namespace default, NeverExpire
	// keeps the record forever.
	Expiration uint32

	// DurableDelete leaves a tombstone instead of expunging.
	DurableDelete bool

	// RespondPerEachOp returns a result for every operation of an operate
	// call instead of only the last one per bin.
	RespondPerEachOp bool

	// RetryOnTimeout allows retrying a non-idempotent write after a socket
	// timeout. Off by default - the write may already have been applied.
	RetryOnTimeout bool
}

// NeverExpire as WritePolicy.Expiration keeps the record forever.
const NeverExpire = ^uint32(0)

// NewWritePolicy returns the defaults for writes: no retries, update
// semantics.
func NewWritePolicy() *WritePolicy {
	p := &WritePolicy{BasePolicy: *NewBasePolicy()}
	p.MaxRetries = 0
	return p
}

// --------------------------------------------------------------------------
// Scan / Query Policies
// --------------------------------------------------------------------------

// ScanPolicy holds the options for partition scans.
type ScanPolicy struct {
	BasePolicy

	// MaxRecords caps the total records returned across all partitions of
	// one scan call. Zero means unlimited.
	MaxRecords uint64

	// RecordsPerSecond throttles the server-side scan. Zero disables.
	RecordsPerSecond uint32

	// IncludeBinData set false returns digests and metadata only.
	IncludeBinData bool

	// MaxConcurrentNodes bounds parallel per-node streams. Zero scans all
	// nodes at once.
	MaxConcurrentNodes int
}

// NewScanPolicy returns the defaults for scans.
func NewScanPolicy() *ScanPolicy {
	p := &ScanPolicy{BasePolicy: *NewBasePolicy(), IncludeBinData: true}
	p.TotalTimeout = 0 // scans run until drained
	p.SocketTimeout = 30 * time.Second
	return p
}

// QueryPolicy holds the options for queries. Queries share the scan
// mechanics plus an optional bin projection.
type QueryPolicy struct {
	ScanPolicy
}

// NewQueryPolicy returns the defaults for queries.
func NewQueryPolicy() *QueryPolicy {
	return &QueryPolicy{ScanPolicy: *NewScanPolicy()}
}

// --------------------------------------------------------------------------
// Info Policy
// --------------------------------------------------------------------------

// InfoPolicy bounds an info-protocol exchange.
type InfoPolicy struct {
	Timeout time.Duration
}

// NewInfoPolicy returns the defaults for info commands.
func NewInfoPolicy() *InfoPolicy {
	return &InfoPolicy{Timeout: time.Second}
}

// --------------------------------------------------------------------------
// Client Policy
// --------------------------------------------------------------------------

// ClientPolicy configures cluster bootstrap and per-node connection pools.
type ClientPolicy struct {
	// ConnectTimeout bounds the initial dial of a node.
	ConnectTimeout time.Duration

	// ConnectionQueueSize is the pool capacity per node.
	ConnectionQueueSize int

	// MinConnectionsPerNode is pre-opened at node creation.
	MinConnectionsPerNode int

	// AcquireTimeout bounds waiting for a pooled connection when the pool
	// is exhausted. Zero fails fast with NoMoreConnections.
	AcquireTimeout time.Duration

	// RackIds are this client's racks, consulted by ReplicaPreferRack.
	RackIds []int
}

// NewClientPolicy returns the connection pool defaults.
func NewClientPolicy() *ClientPolicy {
	return &ClientPolicy{
		ConnectTimeout:      time.Second,
		ConnectionQueueSize: 16,
		AcquireTimeout:      time.Second,
	}
}
