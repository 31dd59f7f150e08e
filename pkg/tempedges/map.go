// Package tempedges implements an ordered multimap from a random uint64
// key to a pending (not-yet-final) edge. The generator uses the key
// ordering to pick a pseudo-random pending edge to retire: it probes the
// map at a random key and takes the first entry at or after it, wrapping
// around to the smallest key when the probe lands past the end.
//
// Multiple edges can legitimately share the same key (birthday collisions
// among random uint64s happen at scale), so the map is backed by an
// ordered tree keyed on (key, edge) rather than a set keyed on key alone.
package tempedges

import (
	"github.com/google/btree"

	"github.com/gilchrisn/graphlog-ggu/internal/glerr"
	"github.com/gilchrisn/graphlog-ggu/pkg/edgekey"
)

type entry struct {
	key  uint64
	edge edgekey.Edge
}

func less(a, b entry) bool {
	if a.key != b.key {
		return a.key < b.key
	}
	return a.edge.Less(b.edge)
}

// Map is an ordered multimap of uint64 keys to edges.
type Map struct {
	tree *btree.BTreeG[entry]
	size int
}

// New returns an empty map.
func New() *Map {
	return &Map{tree: btree.NewG(32, less)}
}

// Len returns the number of (key, edge) pairs currently stored.
func (m *Map) Len() int { return m.size }

// Empty reports whether the map holds no entries.
func (m *Map) Empty() bool { return m.size == 0 }

// Insert adds edge under key. If another edge is already stored under the
// same key, both are kept as distinct entries.
func (m *Map) Insert(key uint64, edge edgekey.Edge) {
	m.tree.ReplaceOrInsert(entry{key: key, edge: edge})
	m.size++
}

// Remove deletes and returns one edge stored under key, chosen arbitrarily
// among duplicates. Returns false if no entry has that key.
func (m *Map) Remove(key uint64) (edgekey.Edge, bool) {
	var found entry
	var ok bool
	m.tree.AscendGreaterOrEqual(entry{key: key}, func(e entry) bool {
		if e.key != key {
			return false
		}
		found, ok = e, true
		return false
	})
	if !ok {
		return edgekey.Edge{}, false
	}
	m.tree.Delete(found)
	m.size--
	return found.edge, true
}

// Peek returns one edge stored under key without removing it.
func (m *Map) Peek(key uint64) (edgekey.Edge, bool) {
	var found entry
	var ok bool
	m.tree.AscendGreaterOrEqual(entry{key: key}, func(e entry) bool {
		if e.key != key {
			return false
		}
		found, ok = e, true
		return false
	})
	return found.edge, ok
}

// FindFrom returns the first (key, edge) pair at or after from, wrapping
// around to the smallest stored key when nothing qualifies. Fails on an
// empty map.
func (m *Map) FindFrom(from uint64) (uint64, edgekey.Edge, error) {
	if m.Empty() {
		return 0, edgekey.Edge{}, glerr.Wrap(glerr.ErrInvariant, "FindFrom on empty temporary-edge map")
	}

	var found entry
	var ok bool
	m.tree.AscendGreaterOrEqual(entry{key: from}, func(e entry) bool {
		found, ok = e, true
		return false
	})
	if ok {
		return found.key, found.edge, nil
	}

	k, e, kok := m.min()
	if !kok {
		return 0, edgekey.Edge{}, glerr.Wrap(glerr.ErrInvariant, "FindFrom found nothing on a non-empty map")
	}
	return k, e, nil
}

// KeyMin returns the smallest key currently stored.
func (m *Map) KeyMin() (uint64, error) {
	k, _, ok := m.min()
	if !ok {
		return 0, glerr.Wrap(glerr.ErrInvariant, "KeyMin on empty temporary-edge map")
	}
	return k, nil
}

func (m *Map) min() (uint64, edgekey.Edge, bool) {
	item, ok := m.tree.Min()
	if !ok {
		return 0, edgekey.Edge{}, false
	}
	return item.key, item.edge, true
}
