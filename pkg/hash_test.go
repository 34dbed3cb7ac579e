package dupblock

import (
	"sync"
	"testing"
)

func TestHashStrategyKnownValues(t *testing.T) {
	testCases := []struct {
		algorithm string
		input     string
		expected  string
	}{
		{"crc32", "hello", "907060870"},
		{"crc32", "", "0"},
		{"md5", "hello", "5d41402abc4b2a76b9719d911017c592"},
		{"md5", "", "d41d8cd98f00b204e9800998ecf8427e"},
		{"sha1", "hello", "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"},
		{"sha256", "hello", "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
	}

	for _, tc := range testCases {
		t.Run(tc.algorithm+"/"+tc.input, func(t *testing.T) {
			strategy := mustStrategy(t, tc.algorithm)
			if got := strategy.Hash([]byte(tc.input)); got != tc.expected {
				t.Errorf("%s(%q) = %s, expected %s", tc.algorithm, tc.input, got, tc.expected)
			}
		})
	}
}

func TestHashStrategyDigestLengths(t *testing.T) {
	for _, name := range SupportedHashAlgorithms() {
		algorithm, err := GetHashAlgorithm(name)
		if err != nil {
			t.Fatalf("Failed to get %s: %v", name, err)
		}
		if algorithm.Strategy().Name() != name {
			t.Errorf("Expected strategy name %s, got %s", name, algorithm.Strategy().Name())
		}
		if name == "crc32" {
			continue
		}
		if got := len(algorithm.Hash([]byte("data"))); got != algorithm.Size*2 {
			t.Errorf("%s: expected %d hex characters, got %d", name, algorithm.Size*2, got)
		}
	}
}

func TestHashAlgorithmSelectors(t *testing.T) {
	testCases := []struct {
		name     string
		expected string
	}{
		{"crc32", "crc32"},
		{"CRC32", "crc32"},
		{"0", "crc32"},
		{"1", "md5"},
		{"MD5", "md5"},
		{"xxh64", "xxhash"},
		{"blake3", "blake3"},
	}

	for _, tc := range testCases {
		strategy, err := GetHashStrategy(tc.name)
		if err != nil {
			t.Errorf("GetHashStrategy(%q) failed: %v", tc.name, err)
			continue
		}
		if strategy.Name() != tc.expected {
			t.Errorf("GetHashStrategy(%q) = %s, expected %s", tc.name, strategy.Name(), tc.expected)
		}
	}

	for _, bad := range []string{"", "2", "crc64", "sha3"} {
		if err := ValidateHashAlgorithm(bad); err == nil {
			t.Errorf("Expected %q to be rejected", bad)
		}
	}
}

func TestHashTypeNames(t *testing.T) {
	for id := HashTypeCRC32; id <= HashTypeBLAKE3; id++ {
		algorithm, err := GetHashAlgorithmByType(id)
		if err != nil {
			t.Fatalf("GetHashAlgorithmByType(%d) failed: %v", id, err)
		}
		if HashTypeName(id) != algorithm.Name {
			t.Errorf("Type %d: name %s, algorithm %s", id, HashTypeName(id), algorithm.Name)
		}
	}
	if HashTypeName(0) != "unknown" || HashTypeName(99) != "unknown" {
		t.Error("Expected unknown for out of range type IDs")
	}
	if _, err := GetHashAlgorithmByType(99); err == nil {
		t.Error("Expected error for unknown type ID")
	}
}

func TestHashStrategyConcurrentUse(t *testing.T) {
	strategy := mustStrategy(t, "blake3")
	expected := strategy.Hash([]byte("shared"))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if got := strategy.Hash([]byte("shared")); got != expected {
					t.Errorf("Concurrent hash mismatch: %s != %s", got, expected)
					return
				}
			}
		}()
	}
	wg.Wait()
}
