package client

import (
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/aspike/lib/types"
)

// Result is one element of a record stream: either a record (with its
// bval cursor for queries) or an error from one of the node streams.
type Result struct {
	Record *types.Record
	BVal   int64
	Err    error
}

// Recordset is the consumer side of a scan or query. Records arrive on
// Results until all node streams finish, then the channel closes. Close
// aborts the producers early; the driving partition filter keeps the
// cursors either way.
type Recordset struct {
	results chan *Result
	cancel  chan struct{}
	active  atomic.Bool

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newRecordset(queueSize int) *Recordset {
	rs := &Recordset{
		results: make(chan *Result, queueSize),
		cancel:  make(chan struct{}),
	}
	rs.active.Store(true)
	return rs
}

// Results is the stream of records and errors. It closes when the scan
// is drained or aborted.
func (rs *Recordset) Results() <-chan *Result { return rs.results }

// Active reports whether producers are still running.
func (rs *Recordset) Active() bool { return rs.active.Load() }

// Close aborts the scan. The Results channel still closes normally once
// the node streams have wound down; pending partitions stay marked for
// retry in the filter.
func (rs *Recordset) Close() {
	rs.closeOnce.Do(func() { close(rs.cancel) })
}

// send delivers one result, giving up when the consumer closed the set.
// Reports whether the producer should keep going.
func (rs *Recordset) send(res *Result) bool {
	select {
	case rs.results <- res:
		return true
	case <-rs.cancel:
		return false
	}
}

// cancelled reports whether Close was called
func (rs *Recordset) cancelled() bool {
	select {
	case <-rs.cancel:
		return true
	default:
		return false
	}
}

// finish waits for the producers and closes the stream; run once in its
// own goroutine per scan
func (rs *Recordset) finish(onDone func()) {
	rs.wg.Wait()
	onDone()
	rs.active.Store(false)
	close(rs.results)
}
