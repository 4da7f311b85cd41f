// Package schedule keeps scheduled items ordered by start time and detects
// overlapping intervals.
package schedule

import (
	"time"

	"github.com/google/btree"
)

// Slot is the half-open interval [Start, End) occupied by item ID.
type Slot struct {
	ID    int64
	Start time.Time
	End   time.Time
}

// Overlaps reports whether a and b intersect. Slots that only touch at an
// endpoint do not overlap.
func Overlaps(a, b Slot) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// less orders by start time, then id. End is carried along but never
// compared, so Remove only needs ID and Start.
func less(a, b Slot) bool {
	if !a.Start.Equal(b.Start) {
		return a.Start.Before(b.Start)
	}
	return a.ID < b.ID
}

const degree = 8

// Index is the priority ordering of scheduled items. It is not safe for
// concurrent use.
type Index struct {
	tree *btree.BTreeG[Slot]
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{tree: btree.NewG[Slot](degree, less)}
}

// Insert adds s, replacing a slot with the same id and start.
func (x *Index) Insert(s Slot) {
	x.tree.ReplaceOrInsert(s)
}

// Remove deletes s. It reports false when s was not indexed.
func (x *Index) Remove(s Slot) bool {
	_, ok := x.tree.Delete(s)
	return ok
}

// Len returns the number of indexed slots.
func (x *Index) Len() int {
	return x.tree.Len()
}

// Slots returns every slot in ascending start order.
func (x *Index) Slots() []Slot {
	out := make([]Slot, 0, x.tree.Len())
	x.tree.Ascend(func(s Slot) bool {
		out = append(out, s)
		return true
	})
	return out
}

// Conflict returns the first indexed slot, other than candidate's own id,
// that overlaps candidate. Only slots starting before candidate ends can
// intersect it, so the walk stops there.
func (x *Index) Conflict(candidate Slot) (Slot, bool) {
	var found Slot
	var ok bool
	x.tree.AscendLessThan(Slot{Start: candidate.End}, func(s Slot) bool {
		if s.ID == candidate.ID || !Overlaps(s, candidate) {
			return true
		}
		found, ok = s, true
		return false
	})
	return found, ok
}

// Clear removes every slot.
func (x *Index) Clear() {
	x.tree.Clear(false)
}
