// Package lbts implements the per-federate lower-bound-timestamp map:
// the multi-index structure that yields GALT and next-message GALT in
// O(1), supports fast commit updates, and detects next-message
// termination via commit-id matching.
package lbts

import (
	"sort"

	"github.com/onox/openrti-timecore/pkg/rticore/ltime"
)

// countMap is a reference-counted multiset of logical times, kept sorted
// so the front (minimum) element is always known in O(1). Entries are
// addressed by a stable *countEntry pointer so callers can hold onto an
// occupied bucket across later moves and erases.
type countEntry struct {
	time  ltime.Time
	count int
}

type countMap struct {
	entries []*countEntry // kept sorted by time
}

func newCountMap() *countMap {
	return &countMap{}
}

func (m *countMap) empty() bool {
	return len(m.entries) == 0
}

func (m *countMap) front() *countEntry {
	return m.entries[0]
}

// indexOf returns the position of t in entries (sorted search), and
// whether it was found.
func (m *countMap) indexOf(t ltime.Time) (int, bool) {
	i := sort.Search(len(m.entries), func(i int) bool {
		return !m.entries[i].time.Less(t)
	})
	if i < len(m.entries) && m.entries[i].time.Equal(t) {
		return i, true
	}
	return i, false
}

// insert adds one occurrence of t, creating the bucket if it is new.
func (m *countMap) insert(t ltime.Time) *countEntry {
	i, found := m.indexOf(t)
	if found {
		m.entries[i].count++
		return m.entries[i]
	}
	e := &countEntry{time: t, count: 1}
	m.entries = append(m.entries, nil)
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = e
	return e
}

// move shifts one occurrence from entry to t, returning the (possibly new)
// entry and whether the global front may have changed because entry was
// the unique occupant of the old front bucket.
func (m *countMap) move(entry *countEntry, t ltime.Time) (*countEntry, bool) {
	if entry.time.Equal(t) {
		return entry, false
	}
	wasFront := entry == m.entries[0]

	newEntry := m.insert(t)
	// insert may have returned `entry` itself only if t == entry.time,
	// already handled above, so newEntry is always distinct here.

	entry.count--
	firstChanged := false
	if entry.count == 0 {
		firstChanged = wasFront
		m.removeEntry(entry)
	}
	return newEntry, firstChanged
}

// erase drops one occurrence from entry, removing the bucket if it hits
// zero, and reports whether the global front may have changed.
func (m *countMap) erase(entry *countEntry) bool {
	wasFront := entry == m.entries[0]
	entry.count--
	if entry.count != 0 {
		return false
	}
	m.removeEntry(entry)
	return wasFront
}

// removeEntry drops entry's bucket, using the same sorted binary search as
// insert rather than a linear scan by pointer identity.
func (m *countMap) removeEntry(entry *countEntry) {
	i, found := m.indexOf(entry.time)
	if !found {
		return
	}
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
}
