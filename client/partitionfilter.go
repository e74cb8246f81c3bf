package client

import (
	"sync/atomic"

	"github.com/ValentinKolb/aspike/cluster"
	"github.com/ValentinKolb/aspike/lib/types"
)

// PartitionStatus tracks one partition's progress through a scan or
// query: the last seen digest and bval form the resume cursor.
type PartitionStatus struct {
	// ID is the partition id.
	ID int
	// Digest of the last record received, valid when HasDigest.
	Digest    [types.DigestSize]byte
	HasDigest bool
	// BVal of the last record received (queries only).
	BVal int64
	// Done is set when the server reported the partition drained.
	Done bool
	// Retry marks partitions interrupted by an error; a re-run of the
	// same filter picks them up again.
	Retry bool
}

// PartitionFilter selects the partitions of a scan or query and carries
// their cursors across calls. A filter is single-owner: it must not be
// used by two concurrent scans, and a finished scan leaves it ready for
// a resuming call. The zero of the cursor state means "start from the
// beginning".
type PartitionFilter struct {
	// Begin is the first partition id covered.
	Begin int
	// Count is the number of partitions covered.
	Count int

	partitions []*PartitionStatus
	inUse      atomic.Bool
	done       bool
}

// NewPartitionFilterAll covers all partitions.
func NewPartitionFilterAll() *PartitionFilter {
	return NewPartitionFilterRange(0, cluster.Partitions)
}

// NewPartitionFilterRange covers count partitions starting at begin.
func NewPartitionFilterRange(begin, count int) *PartitionFilter {
	return &PartitionFilter{Begin: begin, Count: count}
}

// NewPartitionFilterByID covers a single partition.
func NewPartitionFilterByID(id int) *PartitionFilter {
	return NewPartitionFilterRange(id, 1)
}

// NewPartitionFilterByKey covers the key's partition, resuming after the
// key's digest.
func NewPartitionFilterByKey(key *types.Key) *PartitionFilter {
	pf := NewPartitionFilterRange(cluster.PartitionID(key.Digest()), 1)
	pf.init()
	pf.partitions[0].Digest = key.Digest()
	pf.partitions[0].HasDigest = true
	return pf
}

// Done reports whether every covered partition has been drained. A
// filter whose scan was interrupted reports false and can be passed to a
// new scan to resume.
func (pf *PartitionFilter) Done() bool { return pf.done }

// Partitions exposes the per-partition cursors (nil before first use).
func (pf *PartitionFilter) Partitions() []*PartitionStatus { return pf.partitions }

// init materializes the status slice on first use
func (pf *PartitionFilter) init() {
	if pf.partitions != nil {
		return
	}
	pf.partitions = make([]*PartitionStatus, pf.Count)
	for i := range pf.partitions {
		pf.partitions[i] = &PartitionStatus{ID: pf.Begin + i}
	}
}

// validate bounds-checks the covered range
func (pf *PartitionFilter) validate() error {
	if pf.Begin < 0 || pf.Count < 1 || pf.Begin+pf.Count > cluster.Partitions {
		return types.NewErrorf(types.ErrValue,
			"partition filter [%d, %d) out of range", pf.Begin, pf.Begin+pf.Count)
	}
	return nil
}

// acquire takes single ownership for the duration of one scan
func (pf *PartitionFilter) acquire() error {
	if !pf.inUse.CompareAndSwap(false, true) {
		return types.NewError(types.ErrValue,
			"partition filter is already driving another scan")
	}
	return nil
}

func (pf *PartitionFilter) release() { pf.inUse.Store(false) }

// pending returns the partitions still to be scanned, clearing their
// retry marks
func (pf *PartitionFilter) pending() []*PartitionStatus {
	pending := make([]*PartitionStatus, 0, len(pf.partitions))
	for _, ps := range pf.partitions {
		if !ps.Done {
			ps.Retry = false
			pending = append(pending, ps)
		}
	}
	return pending
}

// finalize recomputes Done after a scan run
func (pf *PartitionFilter) finalize() {
	for _, ps := range pf.partitions {
		if !ps.Done {
			pf.done = false
			return
		}
	}
	pf.done = true
}
