package cdt

// ReturnType selects what list/map read and remove operations echo back.
type ReturnType int

const (
	// ReturnNone returns nothing.
	ReturnNone ReturnType = 0
	// ReturnIndex returns element indexes.
	ReturnIndex ReturnType = 1
	// ReturnReverseIndex returns indexes counted from the end.
	ReturnReverseIndex ReturnType = 2
	// ReturnRank returns value ranks.
	ReturnRank ReturnType = 3
	// ReturnReverseRank returns ranks counted from the highest value.
	ReturnReverseRank ReturnType = 4
	// ReturnCount returns the number of selected elements.
	ReturnCount ReturnType = 5
	// ReturnKey returns map keys.
	ReturnKey ReturnType = 6
	// ReturnValue returns element values.
	ReturnValue ReturnType = 7
	// ReturnKeyValue returns map keys and values.
	ReturnKeyValue ReturnType = 8
	// ReturnExists returns whether any element matched.
	ReturnExists ReturnType = 13

	// returnInverted flips the selection to all non-matching elements.
	returnInverted ReturnType = 0x10000
)

// Inverted returns the same selection with the inverted flag set: the
// operation applies to everything except the selected elements.
func (r ReturnType) Inverted() ReturnType {
	return r | returnInverted
}
