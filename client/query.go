package client

import (
	"github.com/ValentinKolb/aspike/lib/policy"
)

// QueryPartitions streams the records of the covered partitions like a
// scan, projecting to the given bins via a bin list instead of read
// operations and tracking the per-record bval cursor so an interrupted
// query can resume exactly after the last record seen.
func (c *Client) QueryPartitions(p *policy.QueryPolicy, pf *PartitionFilter, namespace, setName string, binNames ...string) (*Recordset, error) {
	if p == nil {
		p = policy.NewQueryPolicy()
	}
	return c.streamPartitions(&p.ScanPolicy, pf, namespace, setName, binNames, true)
}
