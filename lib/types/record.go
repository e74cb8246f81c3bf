package types

// BinMap maps bin names to their values. A bin absent from the map means
// "does not exist" - the server never returns nil-valued bins and the
// response decoder preserves that.
type BinMap map[string]Value

// Record is the result of a read. Produced by the response parser only;
// never constructed by callers.
type Record struct {
	// Key the record was requested with. For scan/query results only the
	// digest (and namespace/set, when the server sends them) is filled in.
	Key *Key
	// Bins holds the returned bin values.
	Bins BinMap
	// Generation counts the record's modification cycles.
	Generation uint32
	// Expiration is the remaining TTL in seconds as reported by the server
	// (0 = never expires).
	Expiration uint32
}
