package policy

import "github.com/ValentinKolb/aspike/lib/types"

// --------------------------------------------------------------------------
// List Policy
// --------------------------------------------------------------------------

// ListWriteFlags modify list write operations.
type ListWriteFlags int

const (
	// ListWriteDefault allows duplicates and unbounded inserts.
	ListWriteDefault ListWriteFlags = 0
	// ListWriteAddUnique rejects elements already present.
	ListWriteAddUnique ListWriteFlags = 1
	// ListWriteInsertBounded rejects inserts past the list end.
	ListWriteInsertBounded ListWriteFlags = 2
	// ListWriteNoFail turns policy violations into no-ops.
	ListWriteNoFail ListWriteFlags = 4
	// ListWritePartial applies the acceptable subset of a multi-element write.
	ListWritePartial ListWriteFlags = 8
)

// ListPolicy controls ordering and write semantics of list operations.
type ListPolicy struct {
	Order types.ListOrder
	Flags ListWriteFlags
}

// NewListPolicy returns the defaults: unordered, no restrictions.
func NewListPolicy() *ListPolicy {
	return &ListPolicy{}
}

// --------------------------------------------------------------------------
// Map Policy
// --------------------------------------------------------------------------

// MapWriteFlags modify map write operations.
type MapWriteFlags int

const (
	// MapWriteDefault creates or updates entries.
	MapWriteDefault MapWriteFlags = 0
	// MapWriteCreateOnly rejects keys already present.
	MapWriteCreateOnly MapWriteFlags = 1
	// MapWriteUpdateOnly rejects keys not present.
	MapWriteUpdateOnly MapWriteFlags = 2
	// MapWriteNoFail turns policy violations into no-ops.
	MapWriteNoFail MapWriteFlags = 4
	// MapWritePartial applies the acceptable subset of a multi-entry write.
	MapWritePartial MapWriteFlags = 8
)

// MapPolicy controls ordering and write semantics of map operations. A
// key-ordered or key-value-ordered policy guarantees entries serialize in
// sorted key order on every write.
type MapPolicy struct {
	Order types.MapOrder
	Flags MapWriteFlags
}

// NewMapPolicy returns the defaults: unordered, create-or-update.
func NewMapPolicy() *MapPolicy {
	return &MapPolicy{}
}

// NewOrderedMapPolicy returns a key-ordered policy.
func NewOrderedMapPolicy() *MapPolicy {
	return &MapPolicy{Order: types.MapKeyOrdered}
}

// --------------------------------------------------------------------------
// Bit Policy
// --------------------------------------------------------------------------

// BitWriteFlags modify bitwise blob operations.
type BitWriteFlags int

const (
	// BitWriteDefault creates or updates the blob bin.
	BitWriteDefault BitWriteFlags = 0
	// BitWriteCreateOnly rejects existing bins.
	BitWriteCreateOnly BitWriteFlags = 1
	// BitWriteUpdateOnly rejects missing bins.
	BitWriteUpdateOnly BitWriteFlags = 2
	// BitWriteNoFail turns policy violations into no-ops.
	BitWriteNoFail BitWriteFlags = 4
	// BitWritePartial applies as much of the operation as fits.
	BitWritePartial BitWriteFlags = 8
)

// BitPolicy controls write semantics of bit operations.
type BitPolicy struct {
	Flags BitWriteFlags
}

// NewBitPolicy returns the defaults.
func NewBitPolicy() *BitPolicy {
	return &BitPolicy{}
}

// --------------------------------------------------------------------------
// HLL Policy
// --------------------------------------------------------------------------

// HLLWriteFlags modify HyperLogLog operations.
type HLLWriteFlags int

const (
	// HLLWriteDefault creates or updates the HLL bin.
	HLLWriteDefault HLLWriteFlags = 0
	// HLLWriteCreateOnly rejects existing bins.
	HLLWriteCreateOnly HLLWriteFlags = 1
	// HLLWriteUpdateOnly rejects missing bins.
	HLLWriteUpdateOnly HLLWriteFlags = 2
	// HLLWriteNoFail turns policy violations into no-ops.
	HLLWriteNoFail HLLWriteFlags = 4
	// HLLWriteAllowFold allows folding to a smaller index bit count.
	HLLWriteAllowFold HLLWriteFlags = 8
)

// HLLPolicy controls write semantics of HyperLogLog operations.
type HLLPolicy struct {
	Flags HLLWriteFlags
}

// NewHLLPolicy returns the defaults.
func NewHLLPolicy() *HLLPolicy {
	return &HLLPolicy{}
}
