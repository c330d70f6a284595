package afpoint

// NoReading is the maker-note value reported when the camera did not record
// a primary AF point.
const NoReading = 0

// DefaultInitialIndex seeds the cursor before the first photograph.
const DefaultInitialIndex = 1

// ResolveIndex returns reported unless it is NoReading, in which case the
// last good index is carried over.
func ResolveIndex(reported, lastGood int) int {
	if reported == NoReading {
		return lastGood
	}
	return reported
}

// Cursor carries the last good AF index from one photograph to the next.
// It is a plain value; callers thread it through successive calls in the
// order photographs are processed.
type Cursor struct {
	LastGood int
}

// NewCursor starts a chain at the given index
func NewCursor(initial int) Cursor {
	return Cursor{LastGood: initial}
}

// Resolve returns the index for a photograph reporting the given index and
// the cursor to use for the next photograph.
func (c Cursor) Resolve(reported int) (int, Cursor) {
	index := ResolveIndex(reported, c.LastGood)
	return index, Cursor{LastGood: index}
}

// ResolveSequence resolves a whole ordered run in one pass. The result can be
// used to fan out per-photograph work without sharing the cursor.
func ResolveSequence(reported []int, initial int) []int {
	resolved := make([]int, len(reported))
	cursor := NewCursor(initial)
	for i, r := range reported {
		resolved[i], cursor = cursor.Resolve(r)
	}
	return resolved
}
