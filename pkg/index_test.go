package dupblock

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
)

func TestDuplicateIndexRecordMatch(t *testing.T) {
	index := NewDuplicateIndex()

	index.RecordMatch("/a/1", "fp1", "/b/1", "fp1")
	index.RecordMatch("/a/1", "fp1", "/c/1", "fp1")
	index.RecordMatch("/x", "fp2", "/y", "fp2")

	if index.Len() != 5 {
		t.Errorf("Expected 5 recorded paths, got %d", index.Len())
	}

	fp, ok := index.Fingerprint("/c/1")
	if !ok || fp != "fp1" {
		t.Errorf("Expected /c/1 -> fp1, got %q (found=%t)", fp, ok)
	}
	if _, ok := index.Fingerprint("/missing"); ok {
		t.Error("Expected no fingerprint for unrecorded path")
	}

	expected := []string{"/a/1", "/b/1", "/c/1"}
	if got := index.Paths("fp1"); !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected paths %v for fp1, got %v", expected, got)
	}
}

func TestDuplicateIndexReplace(t *testing.T) {
	index := NewDuplicateIndex()

	index.RecordMatch("/a", "old", "/b", "old")
	index.RecordMatch("/a", "new", "/c", "new")

	fp, _ := index.Fingerprint("/a")
	if fp != "new" {
		t.Errorf("Expected /a to be re-associated with 'new', got %q", fp)
	}
	if got := index.Paths("old"); !reflect.DeepEqual(got, []string{"/b"}) {
		t.Errorf("Expected only /b under 'old', got %v", got)
	}
	if got := index.Paths("new"); !reflect.DeepEqual(got, []string{"/a", "/c"}) {
		t.Errorf("Expected /a and /c under 'new', got %v", got)
	}

	groups := index.Flatten()
	if len(groups) != 1 {
		t.Fatalf("Expected 1 group, got %d: %+v", len(groups), groups)
	}
	if groups[0].Hash != "new" || groups[0].Count != 2 {
		t.Errorf("Unexpected group %+v", groups[0])
	}
}

func TestDuplicateIndexFlatten(t *testing.T) {
	index := NewDuplicateIndex()
	index.RecordMatch("/d", "fpB", "/b", "fpB")
	index.RecordMatch("/c", "fpA", "/a", "fpA")
	index.RecordMatch("/e", "fpA", "/c", "fpA")

	groups := index.Flatten()
	expected := []DuplicateGroup{
		{Hash: "fpA", Files: []string{"/a", "/c", "/e"}, Count: 3},
		{Hash: "fpB", Files: []string{"/b", "/d"}, Count: 2},
	}
	if !reflect.DeepEqual(groups, expected) {
		t.Errorf("Expected %+v, got %+v", expected, groups)
	}

	// Flatten keeps no state between calls
	if again := index.Flatten(); !reflect.DeepEqual(again, groups) {
		t.Errorf("Second Flatten differs: %+v", again)
	}
}

func TestDuplicateIndexFlattenExhaustive(t *testing.T) {
	index := NewDuplicateIndex()
	for g := 0; g < 10; g++ {
		fp := fmt.Sprintf("fp%d", g)
		for p := 1; p <= g%3+1; p++ {
			index.RecordMatch(fmt.Sprintf("/g%d/0", g), fp, fmt.Sprintf("/g%d/%d", g, p), fp)
		}
	}

	seen := make(map[string]string)
	for _, group := range index.Flatten() {
		if group.Count < 2 || group.Count != len(group.Files) {
			t.Errorf("Invalid group %+v", group)
		}
		for _, file := range group.Files {
			if prev, dup := seen[file]; dup {
				t.Errorf("%s appears in groups %s and %s", file, prev, group.Hash)
			}
			seen[file] = group.Hash
		}
	}
	if len(seen) != index.Len() {
		t.Errorf("Expected every recorded path in a group: %d of %d", len(seen), index.Len())
	}
}

func TestDuplicateIndexEmpty(t *testing.T) {
	index := NewDuplicateIndex()
	if groups := index.Flatten(); len(groups) != 0 {
		t.Errorf("Expected no groups from an empty index, got %+v", groups)
	}
}

func TestDuplicateIndexConcurrentWriters(t *testing.T) {
	index := NewDuplicateIndex()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			fp := fmt.Sprintf("fp%d", w)
			for i := 0; i < 50; i++ {
				index.RecordMatch(fmt.Sprintf("/w%d/base", w), fp, fmt.Sprintf("/w%d/%03d", w, i), fp)
			}
		}(w)
	}
	wg.Wait()

	groups := index.Flatten()
	if len(groups) != 8 {
		t.Fatalf("Expected 8 groups, got %d", len(groups))
	}
	for _, group := range groups {
		if group.Count != 51 {
			t.Errorf("Expected 51 files in group %s, got %d", group.Hash, group.Count)
		}
	}
}
