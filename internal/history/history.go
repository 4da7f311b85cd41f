// Package history records which items were fetched, most recent last.
//
// Each id appears at most once; fetching it again moves it to the end.
// Only ids and kinds are kept; the owning store resolves them to current
// values. A Tracker is not safe for concurrent use; the owning store
// serialises access to it.
package history

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"tasktracker/internal/models"
)

// Entry identifies one fetched item.
type Entry struct {
	ID   int64
	Kind models.Kind
}

// Tracker is an access log keyed by item id.
type Tracker struct {
	entries *orderedmap.OrderedMap[int64, models.Kind]
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{entries: orderedmap.New[int64, models.Kind]()}
}

// Add records an access to id, discarding any earlier entry for it.
func (t *Tracker) Add(id int64, kind models.Kind) {
	t.entries.Delete(id)
	t.entries.Set(id, kind)
}

// Remove forgets id. Unknown ids are ignored.
func (t *Tracker) Remove(id int64) {
	t.entries.Delete(id)
}

// History returns the entries from oldest to most recent. The slice is
// freshly allocated on every call.
func (t *Tracker) History() []Entry {
	out := make([]Entry, 0, t.entries.Len())
	for pair := t.entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Entry{ID: pair.Key, Kind: pair.Value})
	}
	return out
}

// Len returns the number of distinct ids recorded.
func (t *Tracker) Len() int {
	return t.entries.Len()
}

// Clear drops every entry.
func (t *Tracker) Clear() {
	t.entries = orderedmap.New[int64, models.Kind]()
}
