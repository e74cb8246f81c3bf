package types

// --------------------------------------------------------------------------
// Collection order attributes
// --------------------------------------------------------------------------

// ListOrder determines whether the server maintains a list bin sorted.
type ListOrder uint8

const (
	// ListUnordered keeps elements in insertion order.
	ListUnordered ListOrder = 0
	// ListOrdered keeps elements sorted by the canonical value ordering.
	ListOrdered ListOrder = 1
)

// MapOrder determines the index the server maintains for a map bin. Maps
// declared KeyOrdered or KeyValueOrdered serialize their entries in sorted
// key order on every write so that byte-level comparisons (filter
// expressions, context map lookups) are stable.
type MapOrder uint8

const (
	// MapUnordered maps have no ordering guarantee; round trips preserve
	// only set-equality of their entries.
	MapUnordered MapOrder = 0
	// MapKeyOrdered maps are indexed by key.
	MapKeyOrdered MapOrder = 1
	// MapKeyValueOrdered maps are indexed by key and value.
	MapKeyValueOrdered MapOrder = 3
)

// Flag returns the attribute bits used in CDT context-create descriptors.
func (o MapOrder) Flag() int {
	switch o {
	case MapKeyOrdered:
		return 0x80
	case MapKeyValueOrdered:
		return 0xc0
	default:
		return 0x40
	}
}

// Sorted reports whether entries must serialize in sorted key order.
func (o MapOrder) Sorted() bool {
	return o == MapKeyOrdered || o == MapKeyValueOrdered
}
