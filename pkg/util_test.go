package dupblock

import (
	"reflect"
	"testing"
)

func TestParseHumanSize(t *testing.T) {
	testCases := []struct {
		input    string
		expected int
		valid    bool
	}{
		{"5", 5, true},
		{"512B", 512, true},
		{"4k", 4096, true},
		{"4K", 4096, true},
		{"4KiB", 4096, true},
		{"1.5K", 1536, true},
		{"2M", 2 * 1024 * 1024, true},
		{"1G", 1024 * 1024 * 1024, true},
		{" 64K ", 65536, true},
		{"0", 0, false},
		{"", 0, false},
		{"K", 0, false},
		{"12Q", 0, false},
		{"-4", 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseHumanSize(tc.input)
			if tc.valid {
				if err != nil {
					t.Fatalf("ParseHumanSize(%q) failed: %v", tc.input, err)
				}
				if got != tc.expected {
					t.Errorf("ParseHumanSize(%q) = %d, expected %d", tc.input, got, tc.expected)
				}
			} else if err == nil {
				t.Errorf("ParseHumanSize(%q) = %d, expected an error", tc.input, got)
			}
		})
	}
}

func TestParseHumanSizeAllowZero(t *testing.T) {
	if size, err := ParseHumanSizeAllowZero("0"); err != nil || size != 0 {
		t.Errorf("Expected 0, got %d (%v)", size, err)
	}
	if size, err := ParseHumanSizeAllowZero("1k"); err != nil || size != 1024 {
		t.Errorf("Expected 1024, got %d (%v)", size, err)
	}
	if _, err := ParseHumanSizeAllowZero("lots"); err == nil {
		t.Error("Expected error for non-numeric size")
	}
}

func TestDeduplicatePaths(t *testing.T) {
	testCases := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"single", []string{"/a"}, []string{"/a"}},
		{"nested", []string{"/home/user/docs/old", "/home/user/docs", "/home/user/photos"}, []string{"/home/user/docs", "/home/user/photos"}},
		{"duplicate", []string{"/a", "/a"}, []string{"/a"}},
		{"prefix but not nested", []string{"/data", "/data2"}, []string{"/data", "/data2"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			input := append([]string(nil), tc.input...)
			if got := deduplicatePaths(input); !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("deduplicatePaths(%v) = %v, expected %v", tc.input, got, tc.expected)
			}
			if !reflect.DeepEqual(input, tc.input) {
				t.Errorf("Input was modified: %v", input)
			}
		})
	}
}

func TestIsPathUnder(t *testing.T) {
	testCases := []struct {
		child, parent string
		expected      bool
	}{
		{"/a/b", "/a", true},
		{"/a/b/c", "/a", true},
		{"/a", "/a", false},
		{"/ab", "/a", false},
		{"/a", "/a/b", false},
		{"/a/b/", "/a/", true},
	}

	for _, tc := range testCases {
		if got := isPathUnder(tc.child, tc.parent); got != tc.expected {
			t.Errorf("isPathUnder(%q, %q) = %t, expected %t", tc.child, tc.parent, got, tc.expected)
		}
	}
}

func TestPathSetAndSizeGroups(t *testing.T) {
	groups := make(SizeGroups)
	groups.Add(10, "/b")
	groups.Add(10, "/a")
	groups.Add(10, "/a")
	groups.Add(3, "/c")

	if groups.Candidates() != 3 {
		t.Errorf("Expected 3 candidates, got %d", groups.Candidates())
	}
	if got := groups.Sizes(); !reflect.DeepEqual(got, []uint64{3, 10}) {
		t.Errorf("Expected sizes [3 10], got %v", got)
	}
	if got := groups[10].Sorted(); !reflect.DeepEqual(got, []string{"/a", "/b"}) {
		t.Errorf("Expected [/a /b], got %v", got)
	}

	groups[10].Remove("/a")
	if groups[10].Contains("/a") || groups[10].Len() != 1 {
		t.Error("Expected /a to be removed")
	}
}
