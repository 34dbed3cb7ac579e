package dupblock

import (
	"sync"
)

// DuplicateGroup represents a group of files with the same content fingerprint
type DuplicateGroup struct {
	Hash  string   `json:"hash"`
	Files []string `json:"files"`
	Count int      `json:"count"`
}

// DuplicateIndex relates paths to whole-content fingerprints.
// Each path maps to at most one fingerprint (recording it again replaces the
// old one) while a fingerprint maps to any number of paths. Both directions
// are updated together under one lock, so size groups processed on different
// goroutines can record matches concurrently.
type DuplicateIndex struct {
	mutex   sync.Mutex
	forward *pathSkiplist      // path -> fingerprint, ordered by path
	reverse map[string]PathSet // fingerprint -> paths
}

// NewDuplicateIndex creates an empty index
func NewDuplicateIndex() *DuplicateIndex {
	return &DuplicateIndex{
		forward: newPathSkiplist(defaultSkiplistLevels),
		reverse: make(map[string]PathSet),
	}
}

// RecordMatch stores the fingerprints of a pair that Equal confirmed.
// Both fingerprints must come from WholeContentFingerprint of exhausted streams.
func (di *DuplicateIndex) RecordMatch(pathA, fingerprintA, pathB, fingerprintB string) {
	di.mutex.Lock()
	defer di.mutex.Unlock()

	di.replace(pathA, fingerprintA)
	di.replace(pathB, fingerprintB)
}

// replace sets the fingerprint of path, dropping any previous association
func (di *DuplicateIndex) replace(path, fingerprint string) {
	if old, ok := di.forward.Find(path); ok {
		if old == fingerprint {
			return
		}
		if paths := di.reverse[old]; paths != nil {
			paths.Remove(path)
			if paths.Len() == 0 {
				delete(di.reverse, old)
			}
		}
		di.forward.Update(path, fingerprint)
		DebugLog(DebugIndex, "replaced fingerprint of %s: %s -> %s", path, old, fingerprint)
	} else {
		di.forward.Insert(path, fingerprint)
	}

	paths, ok := di.reverse[fingerprint]
	if !ok {
		paths = make(PathSet)
		di.reverse[fingerprint] = paths
	}
	paths.Add(path)
}

// Fingerprint returns the fingerprint currently recorded for path
func (di *DuplicateIndex) Fingerprint(path string) (string, bool) {
	di.mutex.Lock()
	defer di.mutex.Unlock()
	return di.forward.Find(path)
}

// Paths returns the sorted paths currently recorded under fingerprint
func (di *DuplicateIndex) Paths(fingerprint string) []string {
	di.mutex.Lock()
	defer di.mutex.Unlock()
	return di.reverse[fingerprint].Sorted()
}

// Len returns the number of recorded paths
func (di *DuplicateIndex) Len() int {
	di.mutex.Lock()
	defer di.mutex.Unlock()
	return di.forward.Length()
}

// Flatten returns one group per fingerprint shared by at least two paths.
// Groups are ordered by their first path and files within a group are sorted.
func (di *DuplicateIndex) Flatten() []DuplicateGroup {
	di.mutex.Lock()
	defer di.mutex.Unlock()

	processed := make(map[string]struct{}, len(di.reverse))
	var result []DuplicateGroup

	di.forward.ForEach(func(path, fingerprint string) bool {
		if _, seen := processed[fingerprint]; seen {
			return true
		}
		processed[fingerprint] = struct{}{}

		paths := di.reverse[fingerprint]
		if paths.Len() < 2 {
			return true
		}
		files := paths.Sorted()
		result = append(result, DuplicateGroup{
			Hash:  fingerprint,
			Files: files,
			Count: len(files),
		})
		return true
	})

	DebugLog(DebugIndex, "flattened %d paths into %d groups", di.forward.Length(), len(result))
	return result
}
