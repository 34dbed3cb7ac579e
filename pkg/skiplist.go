package dupblock

import (
	"strings"

	zcsl "github.com/mattkeenan/zerocopyskiplist"
)

const defaultSkiplistLevels = 16

// pathEntry is the item stored per path; the node context carries the fingerprint
type pathEntry struct {
	path string
}

// pathSkiplist wraps the generic zerocopyskiplist as an ordered path -> fingerprint map
type pathSkiplist struct {
	skiplist *zcsl.ZeroCopySkiplist[pathEntry, string, string]
}

// newPathSkiplist creates an empty skiplist ordered by path
func newPathSkiplist(maxLevels int) *pathSkiplist {
	if maxLevels < 8 {
		maxLevels = defaultSkiplistLevels
	}

	getKeyFromItem := func(entry *pathEntry) string {
		return entry.path
	}

	getItemSize := func(entry *pathEntry) int {
		return len(entry.path)
	}

	cmpKey := func(a, b string) int {
		return strings.Compare(a, b)
	}

	return &pathSkiplist{
		skiplist: zcsl.MakeZeroCopySkiplist[pathEntry, string, string](
			maxLevels,
			getKeyFromItem,
			getItemSize,
			cmpKey,
		),
	}
}

// Insert adds path with its fingerprint; false if the path is already present
func (ps *pathSkiplist) Insert(path, fingerprint string) bool {
	return ps.skiplist.Insert(&pathEntry{path: path}, fingerprint)
}

// Find returns the fingerprint recorded for path
func (ps *pathSkiplist) Find(path string) (string, bool) {
	node, fingerprint := ps.skiplist.Find(path)
	if node == nil {
		return "", false
	}
	return fingerprint, true
}

// Update replaces the fingerprint of an existing path
func (ps *pathSkiplist) Update(path, fingerprint string) bool {
	return ps.skiplist.UpdateContext(path, fingerprint)
}

// ForEach visits every path in sorted order until the callback returns false
func (ps *pathSkiplist) ForEach(callback func(path, fingerprint string) bool) {
	for current := ps.skiplist.First(); current != nil; current = current.Next() {
		entry := current.Item()
		if entry == nil {
			continue
		}
		if !callback(entry.path, current.Context()) {
			break
		}
	}
}

// Length returns the number of paths
func (ps *pathSkiplist) Length() int {
	return ps.skiplist.Length()
}
